// Package envfile loads a local KEY=VALUE overrides file into an in-memory
// overlay consulted ahead of the real process environment.
//
// The overlay feeds the resolver's environment-variable tiers during local
// development: it is the same mechanism as a process environment variable,
// not a separate fallback tier, and like that tier it should only be wired
// up in development contexts. The file is re-read on change via fsnotify.
package envfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/strata/pkg/observability"
)

// Overlay holds the parsed overrides and answers environment lookups,
// falling back to the real process environment on a miss.
type Overlay struct {
	path   string
	logger *observability.Logger

	mu   sync.RWMutex
	vars map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads an overrides file. A missing file is not an error; the overlay
// starts empty and picks the file up if it appears while watched.
func Load(path string, logger *observability.Logger) (*Overlay, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	o := &Overlay{
		path:   path,
		logger: logger,
		vars:   make(map[string]string),
	}
	if err := o.reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// Lookup returns the overlay value for name, or the process environment
// value when the overlay has none.
func (o *Overlay) Lookup(name string) (string, bool) {
	o.mu.RLock()
	v, ok := o.vars[name]
	o.mu.RUnlock()
	if ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// Len returns the number of loaded overrides.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.vars)
}

// Watch re-reads the file whenever it is written or recreated. Call Close
// to stop watching.
func (o *Overlay) Watch() error {
	if o.watcher != nil {
		return fmt.Errorf("overlay is already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors often replace the file,
	// which would orphan a direct watch.
	if err := watcher.Add(filepath.Dir(o.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(o.path), err)
	}

	o.watcher = watcher
	o.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(o.path) {
					continue
				}
				if err := o.reload(); err != nil {
					o.logger.WithError(err).Warn("failed to reload env overrides")
				} else {
					o.logger.WithField("path", o.path).Info("reloaded env overrides")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				o.logger.WithError(err).Warn("env overrides watcher error")
			case <-o.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the watcher, if any.
func (o *Overlay) Close() error {
	if o.watcher == nil {
		return nil
	}
	close(o.done)
	err := o.watcher.Close()
	o.watcher = nil
	return err
}

// reload parses the file and swaps the overlay contents.
func (o *Overlay) reload() error {
	f, err := os.Open(o.path)
	if os.IsNotExist(err) {
		o.mu.Lock()
		o.vars = make(map[string]string)
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open overrides file: %w", err)
	}
	defer f.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		name, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(name) == "" {
			o.logger.WithFields(map[string]interface{}{
				"path": o.path,
				"line": lineno,
			}).Warn("skipping malformed overrides line")
			continue
		}

		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		vars[strings.TrimSpace(name)] = value
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read overrides file: %w", err)
	}

	o.mu.Lock()
	o.vars = vars
	o.mu.Unlock()
	return nil
}
