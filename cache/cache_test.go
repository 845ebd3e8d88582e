package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFingerprintLowercasesAndJoins(t *testing.T) {
	got := Fingerprint("Toyota", "Camry", " San Francisco ")
	want := "toyota_camry_san francisco"
	if got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestWriteAtomicThenReadBack(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	if err := dir.WriteAtomic("a.csv", []byte("hello")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	data, ok, err := dir.Read("a.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok || string(data) != "hello" {
		t.Errorf("Read() = (%q, %v), want (hello, true)", data, ok)
	}
}

func TestIsFreshWithinWindow(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if err := dir.WriteAtomic("a.csv", []byte("x")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	fresh, err := dir.IsFresh("a.csv", time.Now())
	if err != nil {
		t.Fatalf("IsFresh: %v", err)
	}
	if !fresh {
		t.Error("freshly written file should be fresh")
	}

	fresh, err = dir.IsFresh("a.csv", time.Now().Add(25*time.Hour))
	if err != nil {
		t.Fatalf("IsFresh: %v", err)
	}
	if fresh {
		t.Error("file older than 24h should not be fresh")
	}
}

func TestIsFreshMissingFile(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	fresh, err := dir.IsFresh("missing.csv", time.Now())
	if err != nil {
		t.Fatalf("IsFresh: %v", err)
	}
	if fresh {
		t.Error("a missing file should never be fresh")
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	path := t.TempDir()
	dir, err := NewDir(path)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if err := dir.WriteAtomic("a.csv", []byte("x")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "b.csv.tmp"), []byte("y"), 0644); err != nil {
		t.Fatalf("seed tmp file: %v", err)
	}

	names, err := dir.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "a.csv" {
		t.Errorf("List() = %v, want [a.csv]", names)
	}
}
