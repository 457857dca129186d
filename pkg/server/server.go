// Package server implements helpd, the help services: content listing,
// translations and search over help roots on disk, plus the static pages.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/helpview/pkg/config"
	"github.com/vanderheijden86/helpview/pkg/model"
	"github.com/vanderheijden86/helpview/pkg/search"
	"github.com/vanderheijden86/helpview/pkg/structure"
)

// DefaultPrefix is the mount path of the services and pages.
const DefaultPrefix = "/onlineHelpServices"

// Config holds server configuration.
type Config struct {
	Addr      string // listen address, e.g. ":8085"
	Root      string // document root; help roots are found below it
	Prefix    string // mount path (default: DefaultPrefix, "/" for none)
	IndexPath string // sqlite search index; empty keeps it in memory
	MaxDepth  int    // how deep to look for help roots (default 3)
	AllowAll  bool   // allow all CORS origins
	Watch     bool   // re-index when a structure changes
	Debounce  time.Duration
}

// Server serves the help services over HTTP.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	hub        *ReloadHub

	mu      sync.Mutex
	indexes map[string]*search.Index // by structure directory
	closed  bool
	builds  singleflight.Group // first builds, keyed by directory
}

// New creates a server. With cfg.Watch it also starts watching every help
// root below cfg.Root.
func New(cfg Config) (*Server, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}
	cfg.Root = root
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}

	s := &Server{cfg: cfg, indexes: make(map[string]*search.Index)}

	if cfg.Watch {
		hub, err := NewReloadHub(s.reindex, cfg.Debounce)
		if err != nil {
			return nil, err
		}
		for _, helpRoot := range config.DiscoverHelpRoots(root, cfg.MaxDepth) {
			if err := hub.Watch(filepath.Join(helpRoot, config.StructureDir)); err != nil {
				hub.Stop()
				return nil, err
			}
		}
		s.hub = hub
	}

	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mount := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/services/help/api/content", s.handleContent)
			r.Get("/services/help/api/translation", s.handleTranslation)
			r.Get("/services/help/api/search", s.handleSearch)
		})
		if s.hub != nil {
			r.Get("/services/help/api/events", s.hub.EventsHandler())
		}
		r.Handle("/*", s.staticHandler())
	}
	if s.cfg.Prefix == "/" {
		mount(r)
	} else {
		r.Route(s.cfg.Prefix, mount)
	}
	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("helpd serving %s on %s%s", s.cfg.Root, s.cfg.Addr, s.cfg.Prefix)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listener, the watcher and closes the search indexes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.hub != nil {
		s.hub.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for dir, ix := range s.indexes {
		if cerr := ix.Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(s.indexes, dir)
	}
	return err
}

// helpRoot resolves the help root a request addresses with its path parameter.
func (s *Server) helpRoot(r *http.Request) (string, error) {
	return config.ResolveHelpRoot(s.cfg.Root, r.URL.Query().Get("path"), s.cfg.MaxDepth)
}

// language returns the language parameter, else the primary language of
// Accept-Language, else the default.
func language(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("language")); lang != "" {
		return strings.ToLower(lang)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		tag := strings.TrimSpace(strings.SplitN(accept, ",", 2)[0])
		tag = strings.SplitN(tag, ";", 2)[0]
		tag = strings.SplitN(tag, "-", 2)[0]
		if tag != "" && tag != "*" {
			return strings.ToLower(tag)
		}
	}
	return config.DefaultLanguage
}

func (s *Server) walker(root string, r *http.Request) *structure.Walker {
	table, err := structure.LoadTranslation(root, language(r))
	if err != nil {
		log.Printf("warning: translation for %s: %v", root, err)
	}
	var tr structure.Translator
	if table != nil {
		tr = table
	}
	return &structure.Walker{Root: root, URLBase: s.cfg.Root, Translate: tr}
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	root, err := s.helpRoot(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	entries, err := s.walker(root, r).Entries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	root, err := s.helpRoot(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	lang := language(r)
	table, err := structure.LoadTranslation(root, lang)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.TranslationPayload{Language: table.Language(), AsProperties: table.Map()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	root, err := s.helpRoot(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	term := r.URL.Query().Get("term")

	walker := s.walker(root, r)
	ix, err := s.index(r.Context(), walker.StructureDir())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	paths, err := ix.Search(r.Context(), term, search.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hits := make([]model.SearchHit, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue // removed since the last rebuild
		}
		hit, err := walker.FileEntry(p)
		if err != nil {
			log.Printf("warning: search hit %s: %v", p, err)
			continue
		}
		hits = append(hits, hit)
	}
	writeJSON(w, http.StatusOK, hits)
}

// index returns the search index of a structure directory, building it on
// first use. The build runs without s.mu, so searches on other help roots
// are not held up; concurrent first requests for dir share one build.
func (s *Server) index(ctx context.Context, dir string) (*search.Index, error) {
	if ix := s.lookupIndex(dir); ix != nil {
		return ix, nil
	}

	v, err, _ := s.builds.Do(dir, func() (any, error) {
		if ix := s.lookupIndex(dir); ix != nil {
			return ix, nil
		}
		ix, err := search.Open(s.indexPathFor(dir))
		if err != nil {
			return nil, err
		}
		// Shared by every waiting request, so one caller leaving must not
		// abort it.
		n, err := ix.Rebuild(context.WithoutCancel(ctx), dir)
		if err != nil {
			ix.Close()
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			ix.Close()
			return nil, errors.New("server is shutting down")
		}
		if existing, ok := s.indexes[dir]; ok {
			ix.Close()
			return existing, nil
		}
		s.indexes[dir] = ix
		log.Printf("indexed %d files below %s", n, dir)
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*search.Index), nil
}

func (s *Server) lookupIndex(dir string) *search.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexes[dir]
}

// reindex rebuilds the index of a changed structure directory, if one exists.
func (s *Server) reindex(dir string) {
	ix := s.lookupIndex(dir)
	if ix == nil {
		return
	}
	n, err := ix.Rebuild(context.Background(), dir)
	if err != nil {
		log.Printf("warning: re-index %s: %v", dir, err)
		return
	}
	log.Printf("re-indexed %d files below %s", n, dir)
}

// indexPathFor derives one index file per structure directory from the
// configured path. The help root directly below Root keeps the plain name.
func (s *Server) indexPathFor(dir string) string {
	if s.cfg.IndexPath == "" {
		return ""
	}
	rel, err := filepath.Rel(s.cfg.Root, filepath.Dir(dir))
	if err != nil || rel == "." {
		return s.cfg.IndexPath
	}
	key := strings.NewReplacer(string(filepath.Separator), "_", " ", "_").Replace(rel)
	ext := filepath.Ext(s.cfg.IndexPath)
	return strings.TrimSuffix(s.cfg.IndexPath, ext) + "-" + key + ext
}

// staticHandler serves the help pages, images and documents below Root.
func (s *Server) staticHandler() http.Handler {
	fsrv := http.FileServer(http.Dir(s.cfg.Root))
	prefix := s.cfg.Prefix
	if prefix == "/" {
		prefix = ""
	}
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(part, ".") && part != "." {
				writeError(w, http.StatusNotFound, "not found")
				return
			}
		}
		fsrv.ServeHTTP(w, r)
	}))
}
