package state

import (
	"context"
	"testing"

	"github.com/jonwraymond/codesession/runtime/inproc"
	"github.com/jonwraymond/codesession/session"
	"github.com/jonwraymond/codesession/volume"
	"github.com/jonwraymond/codesession/volume/inmem"
)

// newTestManager builds a Manager over a real in-process session whose
// workspace is a staged durable volume.
func newTestManager(t *testing.T, cfg Config) (*Manager, *inmem.Store) {
	t.Helper()
	store := inmem.New()
	m := newTestManagerWithStore(t, cfg, store)
	return m, store
}

func newTestManagerWithStore(t *testing.T, cfg Config, store *inmem.Store) *Manager {
	t.Helper()
	binding, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}

	c, err := session.New(session.Config{
		Runtime:      inproc.New(inproc.Options{}),
		Volume:       binding,
		WorkspaceDir: binding.StagePath(),
	})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	cfg.Session = c
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}
