package session

import (
	"encoding/json"
	"fmt"
)

const codecVersion = 1

type envelope struct {
	V       int          `json:"v"`
	Session *TestSession `json:"session"`
}

// Marshal encodes a session for a Session Store.
func Marshal(s *TestSession) ([]byte, error) {
	data, err := json.Marshal(envelope{V: codecVersion, Session: s})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a session written by Marshal.
func Unmarshal(data []byte) (*TestSession, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if env.V != codecVersion {
		return nil, fmt.Errorf("unmarshal session: unsupported version %d", env.V)
	}
	if env.Session == nil {
		return nil, fmt.Errorf("unmarshal session: empty payload")
	}
	return env.Session, nil
}
