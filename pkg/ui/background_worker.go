package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/helpview/pkg/client"
)

// WorkerState is the reload state of a BackgroundWorker.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerProcessing
	WorkerStopped
)

// WorkerError is a failed reload step.
type WorkerError struct {
	Phase   string // load or hash
	Cause   error
	Time    time.Time
	Retries int // consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("reload %s: %v (attempt %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error { return e.Cause }

// BundleLoader fetches content and translations. *client.Client satisfies it.
type BundleLoader interface {
	LoadAll(ctx context.Context, lang string) (*client.Bundle, error)
}

// EventSource streams change notifications. *client.Client satisfies it.
type EventSource interface {
	Subscribe(ctx context.Context, onReload func()) error
}

// WorkerConfig configures a BackgroundWorker.
type WorkerConfig struct {
	Loader     BundleLoader
	Events     EventSource // nil disables live reload
	Language   string
	RetryDelay time.Duration // first reconnect delay, doubled up to maxRetryDelay
	Send       func(tea.Msg) // usually (*tea.Program).Send
}

const maxRetryDelay = 30 * time.Second

// BackgroundWorker reloads the help bundle off the UI goroutine when the
// server reports a change. Triggers are coalesced: while a reload runs,
// any number of triggers queue exactly one more.
type BackgroundWorker struct {
	cfg WorkerConfig

	pending  chan struct{}
	loopOnce sync.Once

	mu       sync.RWMutex
	state    WorkerState
	started  bool
	lastHash string
	failures int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the event subscription ends
}

// NewBackgroundWorker returns an idle worker. Call Start to follow the
// server's change events.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.Loader == nil {
		return nil, errors.New("background worker needs a loader")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		cfg:     cfg,
		pending: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start subscribes to change events. Calling it again does nothing.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	first := !w.started
	w.started = true
	w.mu.Unlock()
	if !first {
		return nil
	}

	if w.cfg.Events == nil {
		close(w.done)
		return nil
	}
	go w.follow()
	return nil
}

// Stop cancels any reload and the event subscription and waits briefly
// for the subscription to end.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	started := w.started
	w.mu.Unlock()

	w.cancel()
	if !started {
		return
	}
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		log.Printf("warning: event subscription did not stop")
	}
}

// follow keeps the event stream connected with exponential backoff.
// A 404 from the events endpoint means the server has no live reload.
func (w *BackgroundWorker) follow() {
	defer close(w.done)

	delay := w.cfg.RetryDelay
	for w.ctx.Err() == nil {
		err := w.cfg.Events.Subscribe(w.ctx, w.TriggerRefresh)
		if w.ctx.Err() != nil {
			return
		}

		var fe *client.FetchError
		switch {
		case errors.As(err, &fe) && fe.Status == http.StatusNotFound:
			log.Printf("live reload unavailable: %v", err)
			return
		case err != nil:
			log.Printf("warning: event stream: %v (reconnecting in %v)", err, delay)
		default:
			delay = w.cfg.RetryDelay
		}

		t := time.NewTimer(delay)
		select {
		case <-w.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if err != nil {
			delay = min(delay*2, maxRetryDelay)
		}
	}
}

// TriggerRefresh queues a reload. It never blocks.
func (w *BackgroundWorker) TriggerRefresh() {
	if w.State() == WorkerStopped {
		return
	}
	w.loopOnce.Do(func() { go w.reloadLoop() })
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *BackgroundWorker) reloadLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.pending:
		}

		if !w.setState(WorkerProcessing) {
			return
		}
		b := w.reload()
		if w.ctx.Err() != nil {
			return
		}

		w.setState(WorkerIdle)

		if b != nil && w.cfg.Send != nil {
			w.cfg.Send(BundleReadyMsg{Bundle: b})
		}
	}
}

// setState moves a running worker to s; it reports false once stopped.
func (w *BackgroundWorker) setState(s WorkerState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WorkerStopped {
		return false
	}
	w.state = s
	return true
}

// reload loads the bundle and returns it when it differs from the last
// delivered one. Failures are reported to the UI and return nil.
func (w *BackgroundWorker) reload() *client.Bundle {
	start := time.Now()

	var b *client.Bundle
	if werr := w.safeCompute("load", func() (err error) {
		b, err = w.cfg.Loader.LoadAll(w.ctx, w.cfg.Language)
		return err
	}); werr != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		w.fail(werr)
		if w.cfg.Send != nil {
			w.cfg.Send(BundleErrorMsg{Err: werr, Recoverable: true})
		}
		return nil
	}

	var hash string
	if werr := w.safeCompute("hash", func() (err error) {
		hash, err = bundleHash(b)
		return err
	}); werr != nil {
		log.Printf("warning: %v", werr)
	}

	w.mu.Lock()
	w.failures = 0
	unchanged := hash != "" && hash == w.lastHash
	w.lastHash = hash
	w.mu.Unlock()

	if unchanged {
		log.Printf("reload: unchanged (%s)", hashPrefix(hash))
		return nil
	}
	log.Printf("reload: %d entries in %v (%s)", len(b.Entries), time.Since(start), hashPrefix(hash))
	return b
}

func (w *BackgroundWorker) fail(werr *WorkerError) {
	w.mu.Lock()
	w.failures++
	werr.Retries = w.failures
	w.mu.Unlock()
	log.Printf("warning: %v", werr)
}

// safeCompute runs fn, turning an error or a panic into a WorkerError.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) (werr *WorkerError) {
	defer func() {
		if r := recover(); r != nil {
			werr = &WorkerError{
				Phase: phase,
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	if err := fn(); err != nil {
		return &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
	}
	return nil
}

func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// SetHash seeds the fingerprint with b, typically the startup bundle, so
// an identical first reload is not delivered.
func (w *BackgroundWorker) SetHash(b *client.Bundle) {
	hash, err := bundleHash(b)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()
}

// bundleHash fingerprints entries and translations.
func bundleHash(b *client.Bundle) (string, error) {
	entries, err := json.Marshal(b.Entries)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(entries)

	props := b.Translations.Map()
	for _, k := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(h, "%s\x00%s\x00", k, props[k])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// BundleReadyMsg carries a reloaded bundle to the UI.
type BundleReadyMsg struct {
	Bundle *client.Bundle
}

// BundleErrorMsg reports a failed reload to the UI.
type BundleErrorMsg struct {
	Err         error
	Recoverable bool // a later change event may succeed
}
