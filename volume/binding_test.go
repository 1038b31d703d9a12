package volume_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jonwraymond/codesession/volume"
	"github.com/jonwraymond/codesession/volume/inmem"
)

func writeStaged(t *testing.T, dir, rel, content string) {
	t.Helper()
	dst := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewBindingValidation(t *testing.T) {
	if _, err := volume.NewBinding(nil, t.TempDir()); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := volume.NewBinding(inmem.New(), ""); err == nil {
		t.Fatal("expected error for empty staging directory")
	}
}

func TestNewBindingCreatesStagingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workspace")
	b, err := volume.NewBinding(inmem.New(), dir)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	info, err := os.Stat(b.StagePath())
	if err != nil || !info.IsDir() {
		t.Fatalf("staging directory not created: %v", err)
	}
}

func TestPushThenPullAcrossBindings(t *testing.T) {
	ctx := context.Background()
	store := inmem.New()

	src, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	writeStaged(t, src.StagePath(), "notes.txt", "hello")
	writeStaged(t, src.StagePath(), "scripts/run.lua", "return 1")
	if err := src.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	dst, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	if err := dst.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst.StagePath(), "scripts", "run.lua"))
	if err != nil {
		t.Fatalf("read pulled file: %v", err)
	}
	if string(data) != "return 1" {
		t.Fatalf("pulled content = %q, want %q", data, "return 1")
	}
}

func TestPushRemovesStaleObjects(t *testing.T) {
	ctx := context.Background()
	store := inmem.New()
	if err := store.Put(ctx, "stale.txt", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	b, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	writeStaged(t, b.StagePath(), "fresh.txt", "new")
	if err := b.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	keys, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"fresh.txt"}) {
		t.Fatalf("keys = %v, want [fresh.txt]", keys)
	}
	if _, err := store.Get(ctx, "stale.txt"); !errors.Is(err, volume.ErrNotFound) {
		t.Fatalf("stale object still present, err = %v", err)
	}
}

func TestPullDiscardsUnpushedChanges(t *testing.T) {
	ctx := context.Background()
	store := inmem.New()
	if err := store.Put(ctx, "remote.txt", []byte("durable")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	b, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	writeStaged(t, b.StagePath(), "local.txt", "uncommitted")
	if err := b.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	if _, err := os.Stat(filepath.Join(b.StagePath(), "local.txt")); !os.IsNotExist(err) {
		t.Fatal("unpushed local file survived Pull")
	}
	data, err := os.ReadFile(filepath.Join(b.StagePath(), "remote.txt"))
	if err != nil || string(data) != "durable" {
		t.Fatalf("remote.txt = %q, %v", data, err)
	}
}

func TestUploadBatchBypassesStaging(t *testing.T) {
	ctx := context.Background()
	store := inmem.New()
	b, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	srcDir := t.TempDir()
	writeStaged(t, srcDir, "a.txt", "alpha")
	writeStaged(t, srcDir, "nested/b.txt", "beta")
	srcFile := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(srcFile, []byte("cfg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err = b.UploadBatch(ctx,
		map[string]string{srcDir: "data"},
		map[string]string{srcFile: "conf/app.yaml"},
	)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	keys, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"conf/app.yaml", "data/a.txt", "data/nested/b.txt"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}

	entries, err := os.ReadDir(b.StagePath())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging directory touched by UploadBatch: %v", entries)
	}
}

func TestUploadBatchOverwrites(t *testing.T) {
	ctx := context.Background()
	store := inmem.New()
	if err := store.Put(ctx, "conf/app.yaml", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := volume.NewBinding(store, t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	srcFile := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(srcFile, []byte("new"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.UploadBatch(ctx, nil, map[string]string{srcFile: "conf/app.yaml"}); err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	data, err := store.Get(ctx, "conf/app.yaml")
	if err != nil || string(data) != "new" {
		t.Fatalf("object = %q, %v; want new", data, err)
	}
}

func TestUploadBatchMissingSource(t *testing.T) {
	b, err := volume.NewBinding(inmem.New(), t.TempDir())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	err = b.UploadBatch(context.Background(), nil, map[string]string{"/does/not/exist": "x"})
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
}
