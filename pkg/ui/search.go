package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/helpview/pkg/menu"
	"github.com/vanderheijden86/helpview/pkg/model"
)

// Searcher runs server-side searches. *client.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, term string) ([]model.SearchHit, error)
}

// searchResultMsg delivers the hits of request seq.
type searchResultMsg struct {
	seq  uint64
	term string
	hits []model.SearchHit
	err  error
}

// SearchModel is the search input plus its result list. While a search is
// active the results replace the menu.
type SearchModel struct {
	input   textinput.Model
	results []model.SearchHit
	cursor  int
	active  bool   // results are shown instead of the menu
	pending bool   // a request is in flight
	seq     uint64 // sequence number of the latest request
	term    string // term of the latest request
	err     error  // last server failure, results are the local fallback

	width int
	theme Theme
}

// NewSearchModel creates the search input with a translated placeholder.
func NewSearchModel(theme Theme, placeholder string) SearchModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	ti.CharLimit = 200
	return SearchModel{input: ti, theme: theme}
}

// SetPlaceholder updates the placeholder, e.g. after translations arrive.
func (s *SearchModel) SetPlaceholder(p string) { s.input.Placeholder = p }

// SetWidth sets the rendered width.
func (s *SearchModel) SetWidth(w int) {
	s.width = w
	s.input.Width = w - 3
}

// Focus moves keyboard focus to the input.
func (s *SearchModel) Focus() tea.Cmd { return s.input.Focus() }

// Focused reports whether the input has keyboard focus
func (s *SearchModel) Focused() bool { return s.input.Focused() }

// Active reports whether results replace the menu
func (s *SearchModel) Active() bool { return s.active }

// Results returns the current hits
func (s *SearchModel) Results() []model.SearchHit { return s.results }

// Value returns the current input text
func (s *SearchModel) Value() string { return s.input.Value() }

// SetValue replaces the input text.
func (s *SearchModel) SetValue(v string) { s.input.SetValue(v) }

// Submit blurs the input and starts a search for its value. An empty value
// ends search mode without a request.
func (s *SearchModel) Submit(ctx context.Context, searcher Searcher) tea.Cmd {
	s.input.Blur()
	term := strings.TrimSpace(s.input.Value())

	s.seq++
	s.cursor = 0
	s.err = nil
	if term == "" {
		s.results = nil
		s.active = false
		s.pending = false
		s.term = ""
		return nil
	}

	s.active = true
	s.pending = true
	s.term = term
	if searcher == nil {
		return nil
	}
	seq := s.seq
	return func() tea.Msg {
		hits, err := searcher.Search(ctx, term)
		return searchResultMsg{seq: seq, term: term, hits: hits, err: err}
	}
}

// apply stores a response. Responses to superseded requests are dropped;
// returns false for those. On failure the results come from leaves.
func (s *SearchModel) apply(msg searchResultMsg, leaves []*menu.Node) bool {
	if msg.seq != s.seq {
		return false
	}
	s.pending = false
	s.cursor = 0
	if msg.err != nil {
		s.err = msg.err
		s.results = fuzzyHits(msg.term, leaves)
		return true
	}
	s.err = nil
	s.results = msg.hits
	return true
}

// Close leaves search mode and clears the input.
func (s *SearchModel) Close() {
	s.input.Blur()
	s.input.SetValue("")
	s.results = nil
	s.active = false
	s.pending = false
	s.err = nil
	s.seq++ // drop in-flight responses
}

// Update forwards key input to the focused text field.
func (s *SearchModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

// MoveDown moves the result cursor down.
func (s *SearchModel) MoveDown() {
	if s.cursor < len(s.results)-1 {
		s.cursor++
	}
}

// MoveUp moves the result cursor up.
func (s *SearchModel) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// Selected returns the hit under the cursor.
func (s *SearchModel) Selected() (model.SearchHit, bool) {
	if s.cursor >= 0 && s.cursor < len(s.results) {
		return s.results[s.cursor], true
	}
	return model.SearchHit{}, false
}

// InputView renders the input line.
func (s *SearchModel) InputView() string {
	return s.input.View()
}

// ResultsView renders the result list, height rows at most.
func (s *SearchModel) ResultsView(height int, focused bool, active string) string {
	r := s.theme.Renderer
	muted := r.NewStyle().Foreground(s.theme.Muted)

	switch {
	case s.pending:
		return muted.Render("Searching for " + s.term + "…")
	case len(s.results) == 0:
		return muted.Render("No results for " + s.term + ".")
	}

	var b strings.Builder
	start := 0
	if height > 0 && s.cursor >= height {
		start = s.cursor - height + 1
	}
	end := len(s.results)
	if height > 0 && end > start+height {
		end = start + height
	}
	for i := start; i < end; i++ {
		hit := s.results[i]
		line := typeGlyph(hit.Type) + " " + runewidth.Truncate(hit.Name, max(s.width-2, 8), "…")
		switch {
		case i == s.cursor && focused:
			line = s.theme.Selected.Render(line)
		case hit.URL != "" && hit.URL == active:
			line = s.theme.Active.Render(line)
		}
		if i > start {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// leafSource adapts menu leaves to fuzzy.Source.
type leafSource []*menu.Node

func (l leafSource) String(i int) string { return l[i].Label }
func (l leafSource) Len() int            { return len(l) }

// fuzzyHits ranks leaves by fuzzy match of their label against term.
func fuzzyHits(term string, leaves []*menu.Node) []model.SearchHit {
	matches := fuzzy.FindFrom(term, leafSource(leaves))
	hits := make([]model.SearchHit, 0, len(matches))
	for _, m := range matches {
		n := leaves[m.Index]
		hits = append(hits, model.SearchHit{Name: n.Label, Type: n.Type, Icon: n.Icon, URL: n.URL})
	}
	return hits
}
