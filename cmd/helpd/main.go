package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanderheijden86/helpview/pkg/server"
	"github.com/vanderheijden86/helpview/pkg/version"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")

	var cfg server.Config
	flag.StringVar(&cfg.Root, "root", ".", "Document root containing the help sets")
	flag.StringVar(&cfg.Addr, "addr", ":8085", "Listen address")
	flag.StringVar(&cfg.Prefix, "prefix", server.DefaultPrefix, "Path the services are mounted under (\"/\" for none)")
	flag.StringVar(&cfg.IndexPath, "index", "", "SQLite search index file (default: in memory)")
	flag.IntVar(&cfg.MaxDepth, "max-depth", 3, "How deep to look for help sets below the root")
	flag.BoolVar(&cfg.Watch, "watch", false, "Re-index and notify viewers when a help set changes")
	flag.DurationVar(&cfg.Debounce, "debounce", 500*time.Millisecond, "Quiet period before re-indexing (with -watch)")
	flag.BoolVar(&cfg.AllowAll, "cors", false, "Allow cross-origin requests from any origin")
	flag.Parse()

	if *help {
		fmt.Println("Usage: helpd [options]")
		fmt.Println("\nServes help sets to hv and browsers.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("helpd %s\n", version.Version)
		os.Exit(0)
	}

	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: shutdown: %v", err)
	}
}
