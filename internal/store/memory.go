package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Memory is an in-process Store for tests and local development. The tree is
// held as nested map[string]any, mirroring the JSON document model of the
// production binding.
type Memory struct {
	mu   sync.RWMutex
	root map[string]any

	subMu   sync.Mutex
	subs    map[int]subscription
	nextSub int
}

type subscription struct {
	path string
	fn   func(json.RawMessage)
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		root: make(map[string]any),
		subs: make(map[int]subscription),
	}
}

// Seed loads an initial tree from a JSON document. Helper for tests.
func (m *Memory) Seed(doc []byte) error {
	var tree map[string]any
	if err := json.Unmarshal(doc, &tree); err != nil {
		return err
	}
	m.mu.Lock()
	m.root = tree
	m.mu.Unlock()
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Fetch returns a deep snapshot of the subtree at path, or nil if absent.
func (m *Memory) Fetch(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var node any = m.root
	for _, part := range splitPath(path) {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, nil
		}
		node, ok = obj[part]
		if !ok {
			return nil, nil
		}
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Patch merges fields into the document at path, creating intermediate
// objects along the way. Sibling fields are preserved.
func (m *Memory) Patch(_ context.Context, path string, fields map[string]any) error {
	// Round-trip through JSON so stored values match what the production
	// binding would hand back (float64 numbers, plain maps).
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return err
	}

	m.mu.Lock()
	node := m.root
	for _, part := range splitPath(path) {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	for k, v := range normalized {
		node[k] = v
	}
	m.mu.Unlock()

	m.notify(path)
	return nil
}

// Subscribe registers a change callback for the subtree at path. Delivery is
// synchronous and best-effort, matching the eventual-consistency stance of
// the production store.
func (m *Memory) Subscribe(path string, onChange func(json.RawMessage)) (func(), error) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = subscription{path: path, fn: onChange}
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}, nil
}

func (m *Memory) notify(changed string) {
	m.subMu.Lock()
	var fire []subscription
	for _, s := range m.subs {
		if strings.HasPrefix(changed+"/", s.path+"/") || strings.HasPrefix(s.path+"/", changed+"/") {
			fire = append(fire, s)
		}
	}
	m.subMu.Unlock()

	for _, s := range fire {
		raw, err := m.Fetch(context.Background(), s.path)
		if err == nil {
			s.fn(raw)
		}
	}
}
