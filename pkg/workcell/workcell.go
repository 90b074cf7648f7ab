// Package workcell loads and serves the work cell definitions that
// drive queue filtering. Definitions live in a JSON file and reload
// automatically when the file changes.
package workcell

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	cerr "github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Workcell is one shop floor work center with the operation codes
// whose jobs appear in its queue.
type Workcell struct {
	ID              string   `json:"-"`
	Name            string   `json:"name" validate:"required"`
	Ops             []string `json:"ops" validate:"required,min=1,dive,required"`
	GroupByMaterial bool     `json:"group_by_material"`
	GroupByColor    bool     `json:"group_by_color"`
	RefreshSeconds  int      `json:"refresh_seconds"`
}

type definitionsFile struct {
	Workcells map[string]Workcell `json:"workcells" validate:"required,min=1"`
}

// Registry holds the current definitions and answers lookups.
type Registry struct {
	mu        sync.RWMutex
	path      string
	workcells map[string]Workcell
	watcher   *fsnotify.Watcher
}

// Load reads and validates the definitions file.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// reload replaces the definition set. A broken file leaves the
// previous definitions in place.
func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return cerr.Wrapf(err, "read workcell definitions %s", r.path)
	}

	var file definitionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cerr.Wrapf(err, "parse workcell definitions %s", r.path)
	}
	if err := validator.New().Struct(file); err != nil {
		return cerr.Wrapf(err, "invalid workcell definitions %s", r.path)
	}

	for id, wc := range file.Workcells {
		wc.ID = id
		file.Workcells[id] = wc
	}

	r.mu.Lock()
	r.workcells = file.Workcells
	r.mu.Unlock()
	return nil
}

// Watch reloads the definitions whenever the file is rewritten. It
// returns once the watcher is installed and stops when ctx ends.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cerr.Wrap(err, "create definitions watcher")
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return cerr.Wrapf(err, "watch %s", r.path)
	}
	r.watcher = watcher

	logger := otelzap.Ctx(ctx)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := r.reload(); err != nil {
					logger.Warn("Workcell definitions reload failed, keeping previous set",
						zap.String("path", r.path), zap.Error(err))
					continue
				}
				logger.Info("Workcell definitions reloaded",
					zap.String("path", r.path),
					zap.Int("workcells", r.Count()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Workcell definitions watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// List returns every work cell sorted by name for the home page.
func (r *Registry) List() []Workcell {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Workcell, 0, len(r.workcells))
	for _, wc := range r.workcells {
		out = append(out, wc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get looks up one work cell by id.
func (r *Registry) Get(id string) (Workcell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.workcells[id]
	return wc, ok
}

// Ops returns the operation codes for a work cell, nil when unknown.
func (r *Registry) Ops(id string) []string {
	wc, ok := r.Get(id)
	if !ok {
		return nil
	}
	return wc.Ops
}

// Count reports how many work cells are defined.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workcells)
}
