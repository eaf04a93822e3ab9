// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileDocument is the on-disk layout.
type fileDocument struct {
	Watermarks map[string]string `json:"watermarks"`
}

// File persists watermarks as a small JSON document. Every save rewrites the
// document through a temp file and rename so a crash never leaves it torn.
type File struct {
	path string

	mu         sync.Mutex
	watermarks map[string]time.Time
}

var _ Store = (*File)(nil)

// NewFile opens path, loading any existing document. A missing file is an
// empty store; the directory is created on first save.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("checkpoint file path not set")
	}
	f := &File{path: path, watermarks: make(map[string]time.Time)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode checkpoint file %s: %w", path, err)
	}
	for entity, raw := range doc.Watermarks {
		t, err := parseTime(entity, raw)
		if err != nil {
			return nil, err
		}
		f.watermarks[entity] = t
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// TryLoad implements Loader.
func (f *File) TryLoad(_ context.Context, entity string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.watermarks[entity]
	return t, ok, nil
}

// Save implements Saver.
func (f *File) Save(ctx context.Context, entity string, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if cur, ok := f.watermarks[entity]; ok && !t.After(cur) {
		return nil
	}
	prev, had := f.watermarks[entity]
	f.watermarks[entity] = t.UTC()
	if err := f.flush(); err != nil {
		if had {
			f.watermarks[entity] = prev
		} else {
			delete(f.watermarks, entity)
		}
		return err
	}
	return nil
}

func (f *File) flush() error {
	doc := fileDocument{Watermarks: make(map[string]string, len(f.watermarks))}
	for entity, t := range f.watermarks {
		doc.Watermarks[entity] = formatTime(t)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace checkpoint file: %w", err)
	}
	return nil
}
