package extension

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// States maps extension names to whether they are enabled.
type States map[string]bool

// ReadStates reads the extension state file.
func ReadStates(path string) (States, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read extension states: %w", err)
	}
	var s States
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("couldn't decode extension states from %s: %w", path, err)
	}
	if s == nil {
		s = make(States)
	}
	return s, nil
}

// Encode formats states with sorted keys and four-space indentation.
func (s States) Encode() ([]byte, error) {
	var b bytes.Buffer
	enc := jsontext.NewEncoder(&b, jsontext.WithIndent("    "))
	if err := json.MarshalEncode(enc, s, json.Deterministic(true)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// WriteStates replaces the extension state file.
// The file is written to a temporary file in the same directory and then
// renamed over the original.
func WriteStates(path string, s States) error {
	b, err := s.Encode()
	if err != nil {
		return fmt.Errorf("couldn't encode extension states: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("couldn't create extension states: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("couldn't write extension states: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("couldn't write extension states: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("couldn't replace extension states: %w", err)
	}
	return nil
}
