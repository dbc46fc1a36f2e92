package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// RTDB binds Store to the Firebase Realtime Database REST surface: every
// subtree is addressable as <base>/<path>.json, GET reads it, PATCH merges
// into it, and a text/event-stream GET streams changes.
type RTDB struct {
	baseURL string
	auth    string
	client  *http.Client
}

// NewRTDB creates a binding for the database at baseURL
// (e.g. "https://ecoplugs-default-rtdb.firebaseio.com"). auth is a database
// secret or ID token appended as the auth query parameter; empty means the
// database rules allow unauthenticated access.
func NewRTDB(baseURL, auth string) *RTDB {
	return &RTDB{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *RTDB) url(path string) string {
	u := r.baseURL + "/" + strings.Trim(path, "/") + ".json"
	if r.auth != "" {
		u += "?auth=" + r.auth
	}
	return u
}

// Fetch reads the subtree at path. A missing subtree comes back from the
// REST API as the JSON literal null, which is reported as absence.
func (r *RTDB) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}
	return body, nil
}

// Patch merges fields into the document at path. The REST PATCH verb has
// exactly the partial-update semantics Store requires.
func (r *RTDB) Patch(ctx context.Context, path string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal patch for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.url(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to patch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("patch %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// Subscribe opens a Server-Sent Events stream on the subtree and re-fetches
// a snapshot whenever the stream reports a change. The stream reconnects
// with a fixed delay until cancelled.
func (r *RTDB) Subscribe(path string, onChange func(json.RawMessage)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		for {
			if err := r.stream(ctx, path, onChange); err != nil && ctx.Err() == nil {
				log.Printf("RTDB stream for %s ended: %v, reconnecting", path, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()

	return cancel, nil
}

func (r *RTDB) stream(ctx context.Context, path string, onChange func(json.RawMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout on the streaming request; cancellation comes from ctx.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream %s: unexpected status %d", path, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if event != "put" && event != "patch" {
				continue
			}
			snap, err := r.Fetch(ctx, path)
			if err != nil {
				log.Printf("Error re-fetching %s after stream event: %v", path, err)
				continue
			}
			onChange(snap)
		}
	}
	return scanner.Err()
}
