package ml

import (
	"os"
	"sort"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("registry init: %v", err)
	}
	return registry
}

func TestRegistrySaveAndGet(t *testing.T) {
	registry := newTestRegistry(t)
	pipeline := fitModernPipeline(t)

	if err := registry.Save("crop", pipeline); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, ok := registry.Get("crop")
	if !ok || got != pipeline {
		t.Fatal("saved pipeline must be resident")
	}
	if !registry.HasArtifact("crop") {
		t.Fatal("saved pipeline must have a disk artifact")
	}
}

func TestRegistryListUnion(t *testing.T) {
	registry := newTestRegistry(t)
	pipeline := fitModernPipeline(t)

	if err := registry.Save("persisted", pipeline); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	registry.Put("memory_only", pipeline)

	names := registry.List()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("list must be sorted: %v", names)
	}
	want := map[string]bool{"persisted": true, "memory_only": true}
	for _, name := range names {
		delete(want, name)
	}
	if len(want) != 0 {
		t.Fatalf("list %v missing names %v", names, want)
	}
}

func TestRegistrySurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	first, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("registry init: %v", err)
	}
	if err := first.Save("crop", fitModernPipeline(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Fresh registry over the same directory simulates a restart.
	second, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("registry init: %v", err)
	}
	if _, ok := second.Get("crop"); ok {
		t.Fatal("fresh registry must start with an empty cache")
	}
	if !second.HasArtifact("crop") {
		t.Fatal("artifact must survive restart")
	}
	loaded, err := second.Load("crop")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Schema != SchemaModern {
		t.Fatalf("unexpected schema after restart: %q", loaded.Schema)
	}

	names := second.List()
	if len(names) != 1 || names[0] != "crop" {
		t.Fatalf("expected [crop], got %v", names)
	}
}

func TestRegistryNameLockStable(t *testing.T) {
	registry := newTestRegistry(t)
	if registry.NameLock("a") != registry.NameLock("a") {
		t.Fatal("same name must map to the same lock")
	}
	if registry.NameLock("a") == registry.NameLock("b") {
		t.Fatal("different names must not share a lock")
	}
}

func TestWatchKeepsOwnSaves(t *testing.T) {
	registry := newTestRegistry(t)
	if err := registry.Watch(); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer registry.Close()

	if err := registry.Save("crop", fitModernPipeline(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Give the watcher time to deliver the write event for our own save;
	// it must not evict the entry the save just installed.
	time.Sleep(300 * time.Millisecond)
	if _, ok := registry.Get("crop"); !ok {
		t.Fatal("saving must not evict the registry's own cache entry")
	}
}

func TestWatchEvictsRemovedArtifact(t *testing.T) {
	registry := newTestRegistry(t)
	if err := registry.Watch(); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer registry.Close()

	if err := registry.Save("crop", fitModernPipeline(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.Remove(registry.ArtifactPath("crop")); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := registry.Get("crop"); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("deleted artifact must evict the cached pipeline")
}

func TestRegistryListIgnoresForeignFiles(t *testing.T) {
	registry := newTestRegistry(t)
	if err := os.WriteFile(registry.ArtifactPath("real"), []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := os.WriteFile(registry.dir+"/notes.txt", []byte("x"), 0o600); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}

	names := registry.List()
	if len(names) != 1 || names[0] != "real" {
		t.Fatalf("expected [real], got %v", names)
	}
}
