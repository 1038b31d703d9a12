package volume

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Binding couples a Store with a local staging directory. The staging
// directory is what the runtime mounts as its workspace; the Store is
// where its contents become durable. Push and Pull are full
// synchronizations, not deltas: Push makes the store mirror the staging
// directory (including removals) and Pull makes the staging directory
// mirror the store, discarding unpushed local changes.
type Binding struct {
	store Store
	stage string
}

// NewBinding creates a Binding staging into dir, creating it if needed.
func NewBinding(store Store, dir string) (*Binding, error) {
	if store == nil {
		return nil, fmt.Errorf("volume: Store is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("volume: staging directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("volume: resolve staging directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("volume: create staging directory: %w", err)
	}
	return &Binding{store: store, stage: abs}, nil
}

// StagePath returns the absolute path of the staging directory.
func (b *Binding) StagePath() string { return b.stage }

// Push commits the staging directory to the store. Every local file is
// uploaded under its slash-separated relative path and store keys with
// no local counterpart are deleted. On return the store reflects the
// staged state; other bindings observe it only after their next Pull.
func (b *Binding) Push(ctx context.Context) error {
	local, err := b.localKeys()
	if err != nil {
		return err
	}
	for _, key := range local {
		data, err := os.ReadFile(filepath.Join(b.stage, filepath.FromSlash(key)))
		if err != nil {
			return fmt.Errorf("volume: read staged file %q: %w", key, err)
		}
		if err := b.store.Put(ctx, key, data); err != nil {
			return fmt.Errorf("volume: push %q: %w", key, err)
		}
	}
	remote, err := b.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("volume: list store: %w", err)
	}
	staged := make(map[string]struct{}, len(local))
	for _, key := range local {
		staged[key] = struct{}{}
	}
	for _, key := range remote {
		if _, ok := staged[key]; ok {
			continue
		}
		if err := b.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("volume: delete stale %q: %w", key, err)
		}
	}
	return nil
}

// Pull replaces the staging directory contents with the store contents.
// Unpushed local changes are discarded.
func (b *Binding) Pull(ctx context.Context) error {
	remote, err := b.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("volume: list store: %w", err)
	}
	entries, err := os.ReadDir(b.stage)
	if err != nil {
		return fmt.Errorf("volume: read staging directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(b.stage, e.Name())); err != nil {
			return fmt.Errorf("volume: clear staging directory: %w", err)
		}
	}
	for _, key := range remote {
		data, err := b.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("volume: pull %q: %w", key, err)
		}
		dst := filepath.Join(b.stage, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("volume: create directory for %q: %w", key, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("volume: write %q: %w", key, err)
		}
	}
	return nil
}

// UploadBatch writes host files and directory trees straight into the
// store, bypassing the staging directory. dirs maps a local directory to
// a key prefix under which its tree is stored; files maps a local file
// to its exact key. Existing objects are overwritten unconditionally.
// Bindings that already pulled do not observe the uploads until they
// pull again.
func (b *Binding) UploadBatch(ctx context.Context, dirs map[string]string, files map[string]string) error {
	for _, local := range sortedKeys(dirs) {
		prefix := dirs[local]
		err := filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(local, p)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			return b.store.Put(ctx, path.Join(prefix, filepath.ToSlash(rel)), data)
		})
		if err != nil {
			return fmt.Errorf("volume: upload directory %q: %w", local, err)
		}
	}
	for _, local := range sortedKeys(files) {
		data, err := os.ReadFile(local)
		if err != nil {
			return fmt.Errorf("volume: upload file %q: %w", local, err)
		}
		if err := b.store.Put(ctx, files[local], data); err != nil {
			return fmt.Errorf("volume: upload file %q: %w", local, err)
		}
	}
	return nil
}

func (b *Binding) localKeys() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.stage, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(b.stage, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("volume: walk staging directory: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
