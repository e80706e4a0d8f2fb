package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jackfish212/remotefs/types"
	gojsonq "github.com/thedevsaddam/gojsonq/v2"
)

var _ Store = (*StateStore)(nil)

// StateStore keeps credentials in a plain JSON state document that may
// hold other keys too. A dotted key addresses a nested object, so the
// default key lives at {"remotefs": {"credentials": {...}}}.
type StateStore struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewStateStore uses the document at path. An empty key means DefaultKey.
func NewStateStore(path, key string) *StateStore {
	if key == "" {
		key = DefaultKey
	}
	return &StateStore{path: path, key: key}
}

func (s *StateStore) Name() string { return "state" }

func (s *StateStore) Load(context.Context) (types.Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return types.Credentials{}, false, nil
	}
	if err != nil {
		return types.Credentials{}, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Credentials{}, false, nil
	}
	if !json.Valid(data) {
		return types.Credentials{}, false, fmt.Errorf("credstore: %s is not valid JSON", s.path)
	}

	v := gojsonq.New().Reader(bytes.NewReader(data)).Find(s.key)
	if v == nil {
		return types.Credentials{}, false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return types.Credentials{}, false, err
	}
	var c types.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return types.Credentials{}, false, fmt.Errorf("credstore: decoding %s: %w", s.key, err)
	}
	if c.IsZero() {
		return types.Credentials{}, false, nil
	}
	return c, true, nil
}

func (s *StateStore) Save(_ context.Context, c types.Credentials) error {
	return s.update(func(doc map[string]any) {
		setPath(doc, strings.Split(s.key, "."), c)
	})
}

func (s *StateStore) Clear(context.Context) error {
	return s.update(func(doc map[string]any) {
		deletePath(doc, strings.Split(s.key, "."))
	})
}

// update rewrites the document atomically, preserving unrelated keys.
func (s *StateStore) update(fn func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := map[string]any{}
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil && len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("credstore: %s: %w", s.path, err)
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return err
	}

	fn(doc)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(out, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func setPath(doc map[string]any, keys []string, v any) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := doc[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			doc[k] = next
		}
		doc = next
	}
	doc[keys[len(keys)-1]] = v
}

func deletePath(doc map[string]any, keys []string) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := doc[k].(map[string]any)
		if !ok {
			return
		}
		doc = next
	}
	delete(doc, keys[len(keys)-1])
}
