package cluster

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAdvisoryRegistryUpdateAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_nodes.txt")
	reg := NewAdvisoryRegistry(path)

	if err := reg.Update(217, true, "leader", false); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := reg.Update(536, true, "replica", false); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got := reg.Read()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["217"].Role != "leader" {
		t.Errorf("node 217 role = %q, want leader", got["217"].Role)
	}
	if !got["536"].Online {
		t.Error("node 536 should be online")
	}
}

func TestAdvisoryRegistryMissingFileReadsEmpty(t *testing.T) {
	reg := NewAdvisoryRegistry(filepath.Join(t.TempDir(), "missing.txt"))
	if got := reg.Read(); len(got) != 0 {
		t.Errorf("expected empty registry for missing file, got %d entries", len(got))
	}
}

func TestAdvisoryRegistryCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_nodes.txt")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	reg := NewAdvisoryRegistry(path)
	if got := reg.Read(); len(got) != 0 {
		t.Errorf("expected empty registry for corrupt file, got %d entries", len(got))
	}
}
