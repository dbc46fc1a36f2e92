// Package store abstracts the shared document tree the control engine reads
// and writes. The production binding is the Firebase Realtime Database REST
// surface; an in-memory binding backs tests and local runs. Paths are
// slash-separated ("devices/Outlet_3/control").
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the narrow contract the engine is written against.
//
// Patch has merge semantics: the given fields are merged into the document
// at path without disturbing sibling fields. A full-document overwrite would
// destroy concurrently written sensor data, so no such operation exists.
type Store interface {
	// Fetch returns a point-in-time snapshot of the subtree at path, or nil
	// when nothing exists there.
	Fetch(ctx context.Context, path string) (json.RawMessage, error)

	// Patch merges fields into the document at path, creating intermediate
	// documents as needed.
	Patch(ctx context.Context, path string, fields map[string]any) error

	// Subscribe delivers snapshots of the subtree at path as it changes.
	// The returned function cancels the subscription. Used by UI-facing
	// surfaces; the engine itself polls via Fetch.
	Subscribe(path string, onChange func(json.RawMessage)) (func(), error)
}

// Decode unmarshals a snapshot into v. A nil snapshot leaves v untouched and
// reports absence via the bool.
func Decode(raw json.RawMessage, v any) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return true, nil
}
