package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/helpview/pkg/client"
	"github.com/vanderheijden86/helpview/pkg/config"
	"github.com/vanderheijden86/helpview/pkg/i18n"
	"github.com/vanderheijden86/helpview/pkg/menu"
	"github.com/vanderheijden86/helpview/pkg/model"
	"github.com/vanderheijden86/helpview/pkg/ui"
	"github.com/vanderheijden86/helpview/pkg/version"
)

// overrides are the command line settings that win over config and env.
type overrides struct {
	pageURL     string
	baseURL     string
	contentURL  string
	helpPath    string
	language    string
	downloadDir string
	timeout     time.Duration
}

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", config.DefaultPath(), "Config file")
	initConfig := flag.Bool("init", false, "Interactively write the config file and exit")
	dump := flag.Bool("dump", false, "Print the table of contents as text and exit")
	robotSearch := flag.String("robot-search", "", "Search the help and print the hits as JSON")
	debug := flag.Bool("debug", false, "Write a debug log to hv-debug.log")

	var o overrides
	flag.StringVar(&o.pageURL, "url", "", "Help page URL; its language and path parameters are applied")
	flag.StringVar(&o.baseURL, "base-url", "", "Help services base URL (e.g. http://host:8085/onlineHelpServices/)")
	flag.StringVar(&o.contentURL, "content-url", "", "Base URL for help pages (default: base URL)")
	flag.StringVar(&o.helpPath, "path", "", "Help set to show when the server hosts several")
	flag.StringVar(&o.language, "language", "", "Translation language (e.g. en, de)")
	flag.StringVar(&o.downloadDir, "download-dir", "", "Directory for saved documents")
	flag.DurationVar(&o.timeout, "timeout", 0, "Request timeout (default 10s)")
	flag.Parse()

	if *help {
		fmt.Println("Usage: hv [options]")
		fmt.Println("\nA terminal viewer for online help.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("hv %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	if *initConfig {
		if err := runInitForm(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := config.Save(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *configPath)
		os.Exit(0)
	}

	cfg, lang, err := resolveConfig(cfg, o, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, err := client.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *robotSearch != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		hits, err := c.Search(ctx, *robotSearch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching: %v\n", err)
			os.Exit(1)
		}
		if err := writeHits(os.Stdout, hits, c.PageURL); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding hits: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *dump || !term.IsTerminal(int(os.Stdout.Fd())) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Timeout)
		defer cancel()
		b, err := c.LoadAll(ctx, lang)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading help: %v\n", err)
			os.Exit(1)
		}
		tree, err := menu.Build(b.Entries, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building menu: %v\n", err)
			os.Exit(1)
		}
		dumpTree(os.Stdout, tree, b.Translations)
		os.Exit(0)
	}

	if *debug {
		f, err := tea.LogToFile("hv-debug.log", "hv")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	// Live reload when the server streams change events. The worker is
	// created after the program, so the model reaches it through this var.
	var worker *ui.BackgroundWorker
	m := ui.NewModel(c, ui.Options{
		Language:    lang,
		DownloadDir: cfg.DownloadDir,
		OnLoad: func(b *client.Bundle) {
			if worker != nil {
				worker.SetHash(b)
			}
		},
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	worker, err = ui.NewBackgroundWorker(ui.WorkerConfig{
		Loader:   c,
		Events:   c,
		Language: lang,
		Send:     p.Send,
	})
	if err != nil {
		log.Printf("warning: live reload disabled: %v", err)
		worker = nil
	} else {
		if err := worker.Start(); err != nil {
			log.Printf("warning: live reload disabled: %v", err)
		}
		defer worker.Stop()
	}

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running help viewer: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig layers env, page URL and flags over cfg and picks the
// language: flag, page URL, config, $LANG, then the default.
func resolveConfig(cfg config.Config, o overrides, getenv func(string) string) (config.Config, string, error) {
	cfg.ApplyEnv(getenv)
	if err := cfg.ApplyPageURL(o.pageURL); err != nil {
		return cfg, "", err
	}

	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.contentURL != "" {
		cfg.ContentURL = o.contentURL
	}
	if o.helpPath != "" {
		cfg.HelpPath = o.helpPath
	}
	if o.language != "" {
		cfg.Language = o.language
	}
	if o.downloadDir != "" {
		cfg.DownloadDir = o.downloadDir
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}

	if err := cfg.Normalize(); err != nil {
		return cfg, "", err
	}
	return cfg, cfg.ResolveLanguage(getenv("LANG")), nil
}

// robotHit is one search hit with its absolute page URL.
type robotHit struct {
	Name string         `json:"name"`
	Type model.ItemType `json:"type"`
	URL  string         `json:"url"`
	Page string         `json:"page"`
}

// writeHits prints hits as indented JSON; an empty result is [].
func writeHits(w io.Writer, hits []model.SearchHit, pageURL func(string) string) error {
	out := make([]robotHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, robotHit{Name: h.Name, Type: h.Type, URL: h.URL, Page: pageURL(h.URL)})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// dumpTree prints a header with the topic count, then the table of
// contents one node per line.
func dumpTree(w io.Writer, tree *menu.Tree, tr *i18n.Table) {
	title := tr.Title()
	if title == "" {
		title = "Help"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len([]rune(title))))
	if tree.HomeURL != "" {
		fmt.Fprintf(w, "%s: %s\n", tr.Get(i18n.KeyHome), tree.HomeURL)
	}
	fmt.Fprintf(w, "%d topics\n", tree.Count())
	fmt.Fprintln(w)

	tree.Walk(func(n *menu.Node, depth int) bool {
		line := strings.Repeat("  ", depth) + nodeMarker(n) + " " + n.Label
		if n.URL != "" {
			line += "  " + n.URL
		}
		fmt.Fprintln(w, line)
		return true
	})
}

func nodeMarker(n *menu.Node) string {
	switch {
	case !n.IsLeaf():
		return "+"
	case n.Action == menu.ActionDownload:
		return "↓"
	default:
		return "-"
	}
}

// runInitForm asks for the settings and stores them in cfg.
func runInitForm(cfg *config.Config) error {
	baseURL := cfg.BaseURL
	contentURL := cfg.ContentURL
	helpPath := cfg.HelpPath
	language := cfg.Language
	if language == "" {
		language = config.DefaultLanguage
	}
	downloadDir := cfg.DownloadDir

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Help services URL").
				Description("e.g. http://localhost:8085/onlineHelpServices/").
				Value(&baseURL).
				Validate(validateAbsoluteURL),
			huh.NewInput().
				Title("Help pages URL").
				Description("Leave empty to use the services URL").
				Value(&contentURL),
			huh.NewInput().
				Title("Help set").
				Description("Leave empty when the server hosts a single help set").
				Value(&helpPath),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(huh.NewOptions("en", "de", "fr", "it", "nl")...).
				Value(&language),
			huh.NewInput().
				Title("Download directory").
				Value(&downloadDir),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return err
	}

	cfg.BaseURL = strings.TrimSpace(baseURL)
	cfg.ContentURL = strings.TrimSpace(contentURL)
	cfg.HelpPath = strings.TrimSpace(helpPath)
	cfg.Language = language
	cfg.DownloadDir = strings.TrimSpace(downloadDir)
	return nil
}

func validateAbsoluteURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL such as http://host:8085/onlineHelpServices/")
	}
	return nil
}
