package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const artifactExt = ".json"

// registryCacheSize bounds resident pipelines; evicted entries reload
// from disk on the next reference.
const registryCacheSize = 64

// selfWriteWindow is how long the watcher treats a Write event on an
// artifact as an echo of the registry's own Save.
const selfWriteWindow = 2 * time.Second

// Registry owns the mapping from model name to loaded pipeline, backed by
// one artifact file per name under a models directory. It is the only
// process-wide shared mutable state of the subsystem. Last write wins:
// retraining a name replaces both the artifact and the cache entry.
type Registry struct {
	dir   string
	log   *zap.Logger
	cache *lru.Cache[string, *Pipeline]

	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	selfWrites map[string]time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRegistry creates a registry over the given models directory, creating
// the directory if it does not exist.
func NewRegistry(dir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	cache, err := lru.New[string, *Pipeline](registryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		dir:        dir,
		log:        logger,
		cache:      cache,
		locks:      make(map[string]*sync.Mutex),
		selfWrites: make(map[string]time.Time),
	}, nil
}

// ArtifactPath returns the deterministic artifact location for a name.
func (r *Registry) ArtifactPath(name string) string {
	return filepath.Join(r.dir, name+artifactExt)
}

// Get returns the resident pipeline for a name, if any.
func (r *Registry) Get(name string) (*Pipeline, bool) {
	return r.cache.Get(name)
}

// Put registers a pipeline in memory without touching disk.
func (r *Registry) Put(name string, p *Pipeline) {
	r.cache.Add(name, p)
}

// Save persists the pipeline artifact and registers it in memory. The
// cache entry is replaced only after the artifact write succeeds, so a
// failed persist leaves the prior registration intact.
func (r *Registry) Save(name string, p *Pipeline) error {
	if err := p.Save(r.ArtifactPath(name)); err != nil {
		return fmt.Errorf("persist model %q: %w", name, err)
	}
	r.markSelfWrite(name)
	r.cache.Add(name, p)
	r.log.Info("model persisted", zap.String("model", name), zap.String("schema", string(p.Schema)))
	return nil
}

// Load materializes a pipeline from its artifact and registers it.
func (r *Registry) Load(name string) (*Pipeline, error) {
	p, err := LoadPipeline(r.ArtifactPath(name))
	if err != nil {
		return nil, err
	}
	r.cache.Add(name, p)
	r.log.Info("model loaded from disk", zap.String("model", name))
	return p, nil
}

// HasArtifact reports whether a persisted artifact exists for the name.
func (r *Registry) HasArtifact(name string) bool {
	info, err := os.Stat(r.ArtifactPath(name))
	return err == nil && !info.IsDir()
}

// List returns the union of resident and persisted model names, sorted
// and deduplicated.
func (r *Registry) List() []string {
	seen := make(map[string]bool)
	for _, name := range r.cache.Keys() {
		seen[name] = true
	}
	if entries, err := os.ReadDir(r.dir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExt) {
				continue
			}
			seen[strings.TrimSuffix(entry.Name(), artifactExt)] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameLock returns the per-name mutex guarding load/train for that name.
// The guard only suppresses duplicate work; concurrent load/train of the
// same name is harmless because overwrite is idempotent.
func (r *Registry) NameLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

func (r *Registry) markSelfWrite(name string) {
	r.mu.Lock()
	r.selfWrites[name] = time.Now()
	r.mu.Unlock()
}

// recentSelfWrite reports whether a Write event for the name is an echo
// of the registry's own Save. Expired marks are dropped on the way out.
func (r *Registry) recentSelfWrite(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.selfWrites[name]
	if !ok {
		return false
	}
	if time.Since(at) > selfWriteWindow {
		delete(r.selfWrites, name)
		return false
	}
	return true
}

// Watch starts evicting cache entries when artifacts are deleted or
// rewritten out-of-band, so stale pipelines do not outlive their files.
// Write events echoing the registry's own saves are ignored; the cache
// entry installed by Save is already the artifact's content.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher
	r.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, artifactExt) {
					continue
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
					continue
				}
				name := strings.TrimSuffix(filepath.Base(event.Name), artifactExt)
				if event.Op&fsnotify.Write != 0 && r.recentSelfWrite(name) {
					continue
				}
				if r.cache.Remove(name) {
					r.log.Info("model evicted after artifact change",
						zap.String("model", name), zap.String("op", event.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("models dir watch error", zap.Error(err))
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if running.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	return r.watcher.Close()
}
