package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vanderheijden86/helpview/pkg/model"
)

type stubSearcher struct {
	hits  []model.SearchHit
	err   error
	terms []string
}

func (s *stubSearcher) Search(_ context.Context, term string) ([]model.SearchHit, error) {
	s.terms = append(s.terms, term)
	return s.hits, s.err
}

func newTestSearch(value string) SearchModel {
	s := NewSearchModel(newMenuTestTheme(), "Search")
	s.SetWidth(30)
	s.SetValue(value)
	return s
}

func TestSearchEmptyTermMakesNoRequest(t *testing.T) {
	searcher := &stubSearcher{}
	s := newTestSearch("   ")

	if cmd := s.Submit(context.Background(), searcher); cmd != nil {
		t.Error("expected no command for an empty term")
	}
	if s.Active() {
		t.Error("empty term must not activate results")
	}
	if len(searcher.terms) != 0 {
		t.Errorf("unexpected requests %v", searcher.terms)
	}
}

func TestSearchSubmitAndApply(t *testing.T) {
	searcher := &stubSearcher{hits: []model.SearchHit{
		{Name: "Intro", Type: model.TypeFile, URL: "/intro.html"},
		{Name: "Manual", Type: model.TypeDownload, URL: "/manual.pdf"},
	}}
	s := newTestSearch(" intro ")

	cmd := s.Submit(context.Background(), searcher)
	if cmd == nil {
		t.Fatal("expected a search command")
	}
	if !s.Active() || !strings.Contains(s.ResultsView(10, true, ""), "Searching for intro") {
		t.Errorf("expected pending state, got %q", s.ResultsView(10, true, ""))
	}

	msg := cmd().(searchResultMsg)
	if msg.term != "intro" {
		t.Errorf("expected trimmed term, got %q", msg.term)
	}
	if !s.apply(msg, nil) {
		t.Fatal("current response was dropped")
	}
	if len(s.Results()) != 2 {
		t.Fatalf("expected 2 results, got %d", len(s.Results()))
	}

	s.MoveDown()
	s.MoveDown() // clamps
	if hit, ok := s.Selected(); !ok || hit.Name != "Manual" {
		t.Errorf("expected Manual selected, got %v", hit)
	}
	s.MoveUp()
	if hit, _ := s.Selected(); hit.Name != "Intro" {
		t.Errorf("expected Intro selected, got %v", hit)
	}
}

func TestSearchDropsStaleResponses(t *testing.T) {
	searcher := &stubSearcher{hits: []model.SearchHit{{Name: "Old"}}}
	s := newTestSearch("first")
	first := s.Submit(context.Background(), searcher)

	s.SetValue("second")
	second := s.Submit(context.Background(), searcher)

	if s.apply(first().(searchResultMsg), nil) {
		t.Error("stale response was applied")
	}
	searcher.hits = []model.SearchHit{{Name: "New"}}
	if !s.apply(second().(searchResultMsg), nil) {
		t.Fatal("latest response was dropped")
	}
	if got := s.Results(); len(got) != 1 || got[0].Name != "New" {
		t.Errorf("expected latest results, got %v", got)
	}
}

func TestSearchCloseDropsInFlight(t *testing.T) {
	searcher := &stubSearcher{hits: []model.SearchHit{{Name: "Late"}}}
	s := newTestSearch("late")
	cmd := s.Submit(context.Background(), searcher)

	s.Close()
	if s.apply(cmd().(searchResultMsg), nil) {
		t.Error("response after Close was applied")
	}
	if s.Active() || s.Value() != "" {
		t.Error("Close should clear the search")
	}
}

func TestSearchFallsBackToFuzzyMatches(t *testing.T) {
	tree := buildSampleTree(t)
	searcher := &stubSearcher{err: errors.New("offline")}
	s := newTestSearch("ordrs")

	cmd := s.Submit(context.Background(), searcher)
	s.apply(cmd().(searchResultMsg), tree.Leaves())

	got := s.Results()
	if len(got) == 0 || got[0].Name != "Orders" {
		t.Fatalf("expected Orders first, got %v", got)
	}
	if got[0].URL != "/sales/orders.html" {
		t.Errorf("expected url of the leaf, got %q", got[0].URL)
	}
}

func TestSearchResultsViewMarksActive(t *testing.T) {
	s := newTestSearch("x")
	s.apply(searchResultMsg{seq: s.seq, hits: []model.SearchHit{{Name: "Only", URL: "/only.html"}}}, nil)
	s.active = true

	if view := s.ResultsView(5, false, "/only.html"); !strings.Contains(view, "Only") {
		t.Errorf("expected hit in view, got %q", view)
	}

	s.results = nil
	s.term = "nothing"
	if view := s.ResultsView(5, false, ""); !strings.Contains(view, "No results for nothing") {
		t.Errorf("unexpected empty view %q", view)
	}
}
