package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const samplePage = `# Orders

Open the **order list** from the sales menu.

- Create
- Approve

See [Introduction](/common/intro.html).`

func TestMarkdownRendererRendersHelpPage(t *testing.T) {
	for _, tc := range []struct {
		name string
		mr   *MarkdownRenderer
	}{
		{"auto style", NewMarkdownRenderer(60)},
		{"themed", NewMarkdownRendererWithTheme(60, newMenuTestTheme())},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.mr.Render(samplePage)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			plain := ansi.Strip(out)
			for _, want := range []string{"Orders", "order list", "Approve", "Introduction"} {
				if !strings.Contains(plain, want) {
					t.Errorf("rendered page missing %q:\n%s", want, plain)
				}
			}
		})
	}
}

func TestMarkdownRendererWrapsToWidth(t *testing.T) {
	mr := NewMarkdownRenderer(30)
	out, err := mr.Render(strings.Repeat("word ", 40))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, line := range strings.Split(ansi.Strip(out), "\n") {
		if w := lipgloss.Width(strings.TrimRight(line, " ")); w > 30 {
			t.Fatalf("line wider than 30 (%d): %q", w, line)
		}
	}
}

func TestMarkdownRendererWithoutGlamourPassesThrough(t *testing.T) {
	mr := &MarkdownRenderer{width: 40}
	out, err := mr.Render("plain *text*")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "plain *text*" {
		t.Errorf("got %q", out)
	}
}

func TestMarkdownRendererWidthChanges(t *testing.T) {
	mr := NewMarkdownRendererWithTheme(50, newMenuTestTheme())
	before := mr.renderer

	for _, w := range []int{0, -3, 50} {
		mr.SetWidth(w)
		if mr.width != 50 || mr.renderer != before {
			t.Fatalf("SetWidth(%d) rebuilt renderer or changed width to %d", w, mr.width)
		}
	}

	mr.SetWidth(72)
	if mr.width != 72 {
		t.Errorf("width = %d, want 72", mr.width)
	}
	if !mr.useTheme || mr.theme == nil {
		t.Error("theme lost after resize")
	}
}

func TestMarkdownRendererSwitchesToTheme(t *testing.T) {
	mr := NewMarkdownRenderer(40)
	if mr.useTheme || mr.theme != nil {
		t.Fatal("plain renderer should start without a theme")
	}
	mr.SetWidthWithTheme(0, newMenuTestTheme())
	if mr.width != 40 {
		t.Errorf("width = %d, want unchanged 40", mr.width)
	}
	if !mr.useTheme || mr.theme == nil {
		t.Error("theme not applied")
	}
	if mr.renderer == nil {
		t.Error("renderer not rebuilt")
	}
}

func TestThemeStyleColors(t *testing.T) {
	theme := newMenuTestTheme()
	for _, dark := range []bool{true, false} {
		cfg := buildStyleFromTheme(theme, dark)
		checks := map[string]*string{
			extractHex(theme.Text, dark):      cfg.Document.Color,
			extractHex(theme.Primary, dark):   cfg.H1.Color,
			extractHex(theme.Highlight, dark): cfg.Link.Color,
		}
		for want, got := range checks {
			if got == nil || *got != want {
				t.Errorf("dark=%v: color = %v, want %s", dark, got, want)
			}
		}
		if cfg.H1.BackgroundColor != nil {
			t.Errorf("dark=%v: H1 should have no background", dark)
		}
	}

	c := lipgloss.AdaptiveColor{Light: "#101010", Dark: "#efefef"}
	if extractHex(c, true) != "#efefef" || extractHex(c, false) != "#101010" {
		t.Error("extractHex picked the wrong variant")
	}
}
