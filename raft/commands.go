package raft

import (
	"encoding/json"
	"fmt"
)

// Command is the sum type carried in each log entry. The original
// implementation shipped these as dynamically-typed dicts; here the type
// discriminator is explicit and JSON round-trips through a concrete Go type
// rather than an untyped map (see SPEC_FULL.md on the binary-in-JSON note).
type Command interface {
	commandType() string
}

// SetLeaderCommand is the entry a newly elected leader appends to its log.
// Applying it does not change any node's leader hint: nodes learn the
// leader from the leader_id field of AppendEntries. cmd/node watches for the
// node's own SetLeaderCommand being applied to start a reconciliation sweep.
type SetLeaderCommand struct {
	LeaderID int `json:"leader_id"`
}

func (SetLeaderCommand) commandType() string { return "set_leader" }

// ReplicateFileCommand carries one whole cache file's bytes through the log.
// Bytes marshals as a base64 string via encoding/json's native []byte
// handling, which is what actually resolves the "binary data in a JSON
// envelope" tension the spec calls out — no separate encoding step needed.
type ReplicateFileCommand struct {
	Filename string `json:"filename"`
	Bytes    []byte `json:"bytes"`
}

func (ReplicateFileCommand) commandType() string { return "replicate_file" }

// envelope is the wire format: a type discriminator plus the raw payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalCommand serializes a Command to its tagged JSON envelope.
func MarshalCommand(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal command payload: %w", err)
	}
	return json.Marshal(envelope{Type: cmd.commandType(), Payload: payload})
}

// UnmarshalCommand parses a tagged JSON envelope back into a concrete
// Command implementation.
func UnmarshalCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal command envelope: %w", err)
	}

	switch env.Type {
	case "set_leader":
		var cmd SetLeaderCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return nil, fmt.Errorf("unmarshal set_leader payload: %w", err)
		}
		return cmd, nil
	case "replicate_file":
		var cmd ReplicateFileCommand
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return nil, fmt.Errorf("unmarshal replicate_file payload: %w", err)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
}
