package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReloadHubDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 10)

	hub, err := NewReloadHub(func(d string) { changed <- d }, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewReloadHub: %v", err)
	}
	defer hub.Stop()
	if err := hub.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "page.html"), strings.Repeat("x", i+1))
	}

	select {
	case got := <-changed:
		if got != filepath.Clean(dir) {
			t.Errorf("onChange(%q), want %q", got, dir)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onChange was not called")
	}

	// The burst collapses into one call.
	select {
	case got := <-changed:
		t.Errorf("unexpected second onChange(%q)", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestReloadHubWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 10)

	hub, err := NewReloadHub(func(d string) { changed <- d }, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewReloadHub: %v", err)
	}
	defer hub.Stop()
	if err := hub.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	sub := filepath.Join(dir, "03_New")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change for new directory")
	}

	writeFile(t, filepath.Join(sub, "page.html"), "new")
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change for file in new directory")
	}
}

func TestReloadHubWatchMissingDir(t *testing.T) {
	hub, err := NewReloadHub(nil, 0)
	if err != nil {
		t.Fatalf("NewReloadHub: %v", err)
	}
	defer hub.Stop()

	if err := hub.Watch(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestEventsHandlerStreamsReload(t *testing.T) {
	dir := t.TempDir()
	hub, err := NewReloadHub(nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewReloadHub: %v", err)
	}
	defer hub.Stop()
	if err := hub.Watch(dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	ts := httptest.NewServer(hub.EventsHandler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	if ev := readEvent(); ev != "connected" {
		t.Fatalf("first event = %q", ev)
	}
	if n := hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d", n)
	}

	writeFile(t, filepath.Join(dir, "page.html"), "changed")
	if ev := readEvent(); ev != "reload" {
		t.Fatalf("second event = %q", ev)
	}
}
