package raft

import "testing"

func TestCommandRoundTripSetLeader(t *testing.T) {
	original := SetLeaderCommand{LeaderID: 657}

	encoded, err := MarshalCommand(original)
	if err != nil {
		t.Fatalf("MarshalCommand: %v", err)
	}

	decoded, err := UnmarshalCommand(encoded)
	if err != nil {
		t.Fatalf("UnmarshalCommand: %v", err)
	}

	cmd, ok := decoded.(SetLeaderCommand)
	if !ok {
		t.Fatalf("decoded type = %T, want SetLeaderCommand", decoded)
	}
	if cmd != original {
		t.Errorf("decoded = %+v, want %+v", cmd, original)
	}
}

func TestCommandRoundTripReplicateFile(t *testing.T) {
	original := ReplicateFileCommand{Filename: "honda_civic_austin.json", Bytes: []byte{0x00, 0xFF, 0x10, 0x42}}

	encoded, err := MarshalCommand(original)
	if err != nil {
		t.Fatalf("MarshalCommand: %v", err)
	}

	decoded, err := UnmarshalCommand(encoded)
	if err != nil {
		t.Fatalf("UnmarshalCommand: %v", err)
	}

	cmd, ok := decoded.(ReplicateFileCommand)
	if !ok {
		t.Fatalf("decoded type = %T, want ReplicateFileCommand", decoded)
	}
	if cmd.Filename != original.Filename {
		t.Errorf("filename = %q, want %q", cmd.Filename, original.Filename)
	}
	if string(cmd.Bytes) != string(original.Bytes) {
		t.Errorf("bytes = %v, want %v", cmd.Bytes, original.Bytes)
	}
}

func TestUnmarshalUnknownCommandType(t *testing.T) {
	_, err := UnmarshalCommand([]byte(`{"type":"bogus","payload":{}}`))
	if err == nil {
		t.Error("expected an error for an unknown command type")
	}
}
