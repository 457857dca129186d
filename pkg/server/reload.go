package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the structure must be quiet before a reload.
const DefaultDebounce = 300 * time.Millisecond

// ReloadHub watches help set directories. Once a root has been quiet for
// the debounce window it runs the change callback and pushes a reload
// event to every subscriber of the events stream.
type ReloadHub struct {
	fsw      *fsnotify.Watcher
	onChange func(root string)
	debounce time.Duration

	mu     sync.RWMutex
	roots  []string
	subs   map[int]chan struct{}
	nextID int

	debounceMu sync.Mutex
	pending    map[string]*time.Timer
	generation map[string]uint64

	ctx  context.Context
	stop context.CancelFunc
}

// NewReloadHub starts a hub. onChange receives the watched root that
// changed and may be nil.
func NewReloadHub(onChange func(root string), debounce time.Duration) (*ReloadHub, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, stop := context.WithCancel(context.Background())
	h := &ReloadHub{
		fsw:        fsw,
		onChange:   onChange,
		debounce:   debounce,
		subs:       make(map[int]chan struct{}),
		pending:    make(map[string]*time.Timer),
		generation: make(map[string]uint64),
		ctx:        ctx,
		stop:       stop,
	}
	go h.run()
	return h, nil
}

// Watch adds root and every non-hidden directory below it.
func (h *ReloadHub) Watch(root string) error {
	root = filepath.Clean(root)
	h.mu.Lock()
	known := slices.Contains(h.roots, root)
	if !known {
		h.roots = append(h.roots, root)
	}
	h.mu.Unlock()
	if known {
		return nil
	}
	return h.watchDirs(root)
}

func (h *ReloadHub) watchDirs(top string) error {
	return filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && path == top:
			return err
		case err != nil, !d.IsDir():
			return nil
		case path != top && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		if err := h.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Stop ends watching and closes every open events stream.
func (h *ReloadHub) Stop() {
	h.stop()
	h.fsw.Close()

	h.debounceMu.Lock()
	for root, t := range h.pending {
		t.Stop()
		delete(h.pending, root)
	}
	h.debounceMu.Unlock()

	h.mu.Lock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of open events streams.
func (h *ReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *ReloadHub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			h.handle(ev)
		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("warning: structure watcher: %v", err)
		}
	}
}

func (h *ReloadHub) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		// a new directory is not watched yet
		_ = h.watchDirs(ev.Name)
	}
	if root := h.rootFor(ev.Name); root != "" {
		h.settle(root)
	}
}

func (h *ReloadHub) rootFor(path string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return r
		}
	}
	return ""
}

// settle restarts the quiet period of root. Only the timer of the latest
// event fires.
func (h *ReloadHub) settle(root string) {
	h.debounceMu.Lock()
	defer h.debounceMu.Unlock()

	h.generation[root]++
	gen := h.generation[root]
	if t, ok := h.pending[root]; ok {
		t.Stop()
	}
	h.pending[root] = time.AfterFunc(h.debounce, func() {
		h.debounceMu.Lock()
		latest := h.generation[root] == gen
		if latest {
			delete(h.pending, root)
		}
		h.debounceMu.Unlock()

		if !latest || h.ctx.Err() != nil {
			return
		}
		if h.onChange != nil {
			h.onChange(root)
		}
		h.broadcast()
	})
}

// broadcast signals every subscriber. A subscriber with a signal still
// queued is skipped.
func (h *ReloadHub) broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *ReloadHub) subscribe() (int, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan struct{}, 1)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *ReloadHub) unsubscribe(id int) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func writeEvent(w http.ResponseWriter, name, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	w.(http.Flusher).Flush()
}

// EventsHandler serves the server-sent events stream: a "connected"
// event on subscribe, then a "reload" event after each settled change.
func (h *ReloadHub) EventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}
		hdr := w.Header()
		hdr.Set("Content-Type", "text/event-stream")
		hdr.Set("Cache-Control", "no-cache")
		hdr.Set("Connection", "keep-alive")

		id, signals := h.subscribe()
		defer h.unsubscribe(id)

		writeEvent(w, "connected", `{"status":"connected"}`)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-h.ctx.Done():
				return
			case _, open := <-signals:
				if !open {
					return
				}
				writeEvent(w, "reload", `{"action":"reload"}`)
			}
		}
	}
}
