package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/helpview/pkg/config"
	"github.com/vanderheijden86/helpview/pkg/i18n"
	"github.com/vanderheijden86/helpview/pkg/menu"
	"github.com/vanderheijden86/helpview/pkg/model"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveConfig_LanguagePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		cfgLang  string
		env      map[string]string
		o        overrides
		expected string
	}{
		{"default", "", nil, overrides{}, "en"},
		{"locale", "", map[string]string{"LANG": "de_AT.UTF-8"}, overrides{}, "de"},
		{"config beats locale", "fr", map[string]string{"LANG": "de_AT.UTF-8"}, overrides{}, "fr"},
		{"env beats config", "fr", map[string]string{"HV_LANGUAGE": "it"}, overrides{}, "it"},
		{"page url beats env", "fr", map[string]string{"HV_LANGUAGE": "it"}, overrides{pageURL: "http://h/help/?language=nl"}, "nl"},
		{"flag beats page url", "", nil, overrides{pageURL: "http://h/help/?language=nl", language: "de"}, "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Language = tt.cfgLang
			_, lang, err := resolveConfig(cfg, tt.o, envMap(tt.env))
			if err != nil {
				t.Fatalf("resolveConfig: %v", err)
			}
			if lang != tt.expected {
				t.Errorf("language = %q, want %q", lang, tt.expected)
			}
		})
	}
}

func TestResolveConfig_FlagsOverride(t *testing.T) {
	cfg := config.Default()
	cfg.HelpPath = "fromconfig"

	got, _, err := resolveConfig(cfg, overrides{
		pageURL:    "http://h/help/?path=showcase",
		baseURL:    "http://help.example:9000/svc",
		contentURL: "http://static.example/",
		timeout:    3 * time.Second,
	}, envMap(nil))
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if got.BaseURL != "http://help.example:9000/svc/" {
		t.Errorf("BaseURL = %q", got.BaseURL)
	}
	if got.ContentURL != "http://static.example" {
		t.Errorf("ContentURL = %q", got.ContentURL)
	}
	if got.HelpPath != "showcase" {
		t.Errorf("HelpPath = %q, want page url value", got.HelpPath)
	}
	if got.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", got.Timeout)
	}
}

func TestResolveConfig_InvalidBaseURL(t *testing.T) {
	if _, _, err := resolveConfig(config.Default(), overrides{baseURL: "not a url"}, envMap(nil)); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestWriteHits(t *testing.T) {
	var buf bytes.Buffer
	hits := []model.SearchHit{{Name: "Intro", Type: model.TypeFile, URL: "/intro.html"}}
	if err := writeHits(&buf, hits, func(u string) string { return "http://h" + u }); err != nil {
		t.Fatalf("writeHits: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"name": "Intro"`, `"url": "/intro.html"`, `"page": "http://h/intro.html"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeHits(&buf, nil, func(u string) string { return u }); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty hits = %q, want []", got)
	}
}

func TestDumpTree(t *testing.T) {
	tree, err := menu.Build([]model.Entry{
		model.NewRoot("/home.html"),
		model.NewFolder(1, model.RootID, "A"),
		model.NewLeaf(1, "B", model.TypeFile, "/b.html"),
		model.NewLeaf(model.RootID, "Manual", model.TypeDownload, "/manual.pdf"),
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tr := i18n.New("de")
	tr.Set(i18n.KeyHome, "Startseite")

	var buf bytes.Buffer
	dumpTree(&buf, tree, tr)

	want := strings.Join([]string{
		"Help",
		"====",
		"Startseite: /home.html",
		"3 topics",
		"",
		"+ A",
		"  - B  /b.html",
		"↓ Manual  /manual.pdf",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("dump mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestValidateAbsoluteURL(t *testing.T) {
	if err := validateAbsoluteURL("http://localhost:8085/onlineHelpServices/"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "localhost:8085", "/relative"} {
		if err := validateAbsoluteURL(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
