// Package history implements the back/forward navigation stack of the viewer.
package history

// History tracks visited help pages. The index is -1 while empty and always
// points into the visited list otherwise.
type History struct {
	urls       []string
	index      int
	current    string
	generation uint64
}

// New returns an empty history
func New() *History {
	return &History{index: -1}
}

// Navigate shows url and records it, dropping any forward entries first.
// An empty url only bumps the generation so views re-render the current page.
func (h *History) Navigate(url string) {
	h.generation++
	if url == "" {
		return
	}

	if h.index != len(h.urls)-1 {
		h.urls = h.urls[:h.index+1]
	}
	h.urls = append(h.urls, url)
	h.index = len(h.urls) - 1
	h.current = url
}

// Home navigates to the home page, recording it like any other page.
func (h *History) Home(homeURL string) {
	h.Navigate(homeURL)
}

// Back moves one entry back. Returns false at the start of history.
func (h *History) Back() bool {
	if !h.CanBack() {
		return false
	}
	h.index--
	h.current = h.urls[h.index]
	h.generation++
	return true
}

// Forward moves one entry forward. Returns false at the end of history.
func (h *History) Forward() bool {
	if !h.CanForward() {
		return false
	}
	h.index++
	h.current = h.urls[h.index]
	h.generation++
	return true
}

// Clear blanks the current page without touching the recorded history.
// Used when a search result is deselected.
func (h *History) Clear() {
	h.current = ""
	h.generation++
}

// CanBack reports whether Back would move
func (h *History) CanBack() bool {
	return len(h.urls) > 0 && h.index > 0
}

// CanForward reports whether Forward would move
func (h *History) CanForward() bool {
	return len(h.urls) > 0 && h.index < len(h.urls)-1
}

// Current returns the page being shown, "" when none
func (h *History) Current() string {
	return h.current
}

// Index returns the position in the visited list, -1 when empty
func (h *History) Index() int {
	return h.index
}

// Len returns the number of recorded pages
func (h *History) Len() int {
	return len(h.urls)
}

// Entries returns a copy of the recorded pages
func (h *History) Entries() []string {
	out := make([]string, len(h.urls))
	copy(out, h.urls)
	return out
}

// Generation changes on every navigation event, including re-selecting
// the page already shown.
func (h *History) Generation() uint64 {
	return h.generation
}
