// Package watch validates files dropped into a directory. Producers usually
// write a file in several chunks, so a path is handed to the handler only
// after it has been quiet for the debounce interval.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures a Watcher.
type Config struct {
	Dir string

	// Debounce is the quiet period after the last write (default 500ms).
	Debounce time.Duration

	// Extensions lists accepted file extensions (default .csv and .json).
	Extensions []string

	// Existing also hands files already present in Dir to the handler.
	Existing bool

	Verbose bool
}

// Handler receives settled file paths one at a time.
type Handler func(ctx context.Context, path string)

// Watcher watches one directory.
type Watcher struct {
	cfg Config
	fs  *fsnotify.Watcher

	now func() time.Time
}

// New creates a Watcher for cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch: dir must not be empty")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".csv", ".json"}
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fs.Add(cfg.Dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch: add %s: %w", cfg.Dir, err)
	}
	return &Watcher{cfg: cfg, fs: fs, now: time.Now}, nil
}

// Run delivers settled paths to handle until ctx is done. handle runs on a
// single goroutine, so files are validated one after another. Run closes
// the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.fs.Close()

	ready := make(chan string, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range ready {
			handle(ctx, p)
		}
	}()
	defer wg.Wait()
	defer close(ready)

	pending := map[string]time.Time{}
	if w.cfg.Existing {
		entries, err := os.ReadDir(w.cfg.Dir)
		if err != nil {
			return fmt.Errorf("watch: read %s: %w", w.cfg.Dir, err)
		}
		for _, e := range entries {
			p := filepath.Join(w.cfg.Dir, e.Name())
			if !e.IsDir() && w.accept(p) {
				pending[p] = time.Time{}
			}
		}
	}

	log.Printf("watch: dir=%s debounce=%s extensions=%s", w.cfg.Dir, w.cfg.Debounce, strings.Join(w.cfg.Extensions, ","))

	tick := time.NewTicker(max(w.cfg.Debounce/4, 5*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watch: event channel closed")
			}
			switch {
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
			case (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) && w.accept(ev.Name):
				pending[ev.Name] = w.now()
				if w.cfg.Verbose {
					log.Printf("watch: event=%s path=%s", ev.Op, ev.Name)
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watch: error channel closed")
			}
			log.Printf("watch: error=%v", err)

		case <-tick.C:
			now := w.now()
			for p, last := range pending {
				if now.Sub(last) < w.cfg.Debounce {
					continue
				}
				delete(pending, p)
				select {
				case ready <- p:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// accept reports whether path has a watched extension and is not hidden.
func (w *Watcher) accept(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.cfg.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
