// Package page turns help pages into markdown for the terminal and into
// plain text for the search index.
package page

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a help page converted to markdown.
type Document struct {
	Title    string
	Markdown string
}

var (
	blankRuns       = regexp.MustCompile(`\n{3,}`)
	markdownSpecial = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)
)

// ToMarkdown converts an HTML help page. Relative links and images are
// resolved against pageURL when it is absolute.
func ToMarkdown(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	title := titleOf(doc)
	doc.Find("script, style, noscript, head").Remove()

	c := &converter{doc: doc}
	if base, err := url.Parse(pageURL); err == nil && base.IsAbs() {
		c.base = base
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	for _, n := range body.Nodes {
		c.children(n)
	}

	return &Document{
		Title:    title,
		Markdown: tidy(c.buf.String()),
	}, nil
}

// FromPlainText wraps a non-HTML text page so it renders verbatim.
func FromPlainText(text string) *Document {
	return &Document{Markdown: "```\n" + strings.TrimRight(text, "\n") + "\n```"}
}

type converter struct {
	doc       *goquery.Document
	base      *url.URL
	buf       strings.Builder
	space     bool // whitespace seen but not yet written
	listDepth int
}

func (c *converter) children(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child)
	}
}

func (c *converter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data)
	case html.ElementNode:
		c.element(n)
	case html.DocumentNode:
		c.children(n)
	}
}

func (c *converter) element(n *html.Node) {
	sel := c.doc.FindNodes(n)

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapse(sel.Text())
		if text == "" {
			return
		}
		level := int(n.Data[1] - '0')
		c.block()
		c.write(strings.Repeat("#", level) + " " + markdownSpecial.Replace(text))
		c.block()

	case "p", "div", "section", "article", "header", "footer", "main", "nav", "dl", "dt", "dd", "center", "form":
		c.block()
		c.children(n)
		c.block()

	case "br":
		c.write("  \n")
		c.space = false

	case "hr":
		c.block()
		c.write("---")
		c.block()

	case "strong", "b":
		c.wrapInline(sel, "**")
	case "em", "i":
		c.wrapInline(sel, "_")
	case "code", "kbd", "tt":
		if text := collapse(sel.Text()); text != "" {
			c.inline("`" + strings.ReplaceAll(text, "`", "'") + "`")
		}

	case "a":
		c.link(n, sel)
	case "img":
		c.image(n)

	case "ul", "ol":
		c.list(n)

	case "pre":
		c.block()
		c.write("```\n" + strings.Trim(sel.Text(), "\n") + "\n```")
		c.block()

	case "blockquote":
		c.quote(n)

	case "table":
		c.table(sel)

	default:
		c.children(n)
	}
}

// block starts a new paragraph. Inside lists blocks collapse into the item.
func (c *converter) block() {
	c.space = false
	if c.listDepth > 0 || c.buf.Len() == 0 {
		return
	}
	s := c.buf.String()
	switch {
	case strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		c.buf.WriteByte('\n')
	default:
		c.buf.WriteString("\n\n")
	}
}

func (c *converter) newline() {
	c.space = false
	if c.buf.Len() > 0 && !strings.HasSuffix(c.buf.String(), "\n") {
		c.buf.WriteByte('\n')
	}
}

func (c *converter) write(s string) {
	c.buf.WriteString(s)
}

// inline writes s after any pending whitespace
func (c *converter) inline(s string) {
	if c.space && !c.atBoundary() {
		c.buf.WriteByte(' ')
	}
	c.space = false
	c.buf.WriteString(s)
}

func (c *converter) atBoundary() bool {
	s := c.buf.String()
	if s == "" {
		return true
	}
	last := s[len(s)-1]
	return last == '\n' || last == ' '
}

func (c *converter) text(s string) {
	if strings.TrimSpace(s) == "" {
		if s != "" {
			c.space = true
		}
		return
	}
	if isSpace(s[0]) {
		c.space = true
	}
	c.inline(markdownSpecial.Replace(collapse(s)))
	if isSpace(s[len(s)-1]) {
		c.space = true
	}
}

func (c *converter) wrapInline(sel *goquery.Selection, marker string) {
	if text := collapse(sel.Text()); text != "" {
		c.inline(marker + markdownSpecial.Replace(text) + marker)
	}
}

func (c *converter) link(n *html.Node, sel *goquery.Selection) {
	label := collapse(sel.Text())
	href, _ := sel.Attr("href")
	href = strings.TrimSpace(href)

	if label == "" {
		if sel.Find("img").Length() > 0 {
			c.children(n)
		}
		return
	}
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		c.inline(markdownSpecial.Replace(label))
		return
	}
	c.inline("[" + markdownSpecial.Replace(label) + "](" + c.resolve(href) + ")")
}

func (c *converter) image(n *html.Node) {
	var src, alt string
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			src = strings.TrimSpace(a.Val)
		case "alt":
			alt = collapse(a.Val)
		}
	}
	if src == "" {
		return
	}
	c.inline("![" + markdownSpecial.Replace(alt) + "](" + c.resolve(src) + ")")
}

func (c *converter) resolve(ref string) string {
	ref = strings.ReplaceAll(ref, " ", "%20")
	if c.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *converter) list(n *html.Node) {
	if c.listDepth == 0 {
		c.block()
	}
	c.listDepth++
	ordered := n.Data == "ol"
	index := 0

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.Data != "li" {
			continue
		}
		index++
		c.newline()
		c.write(strings.Repeat("  ", c.listDepth-1))
		if ordered {
			c.write(fmt.Sprintf("%d. ", index))
		} else {
			c.write("- ")
		}
		c.children(child)
	}

	c.listDepth--
	if c.listDepth == 0 {
		c.block()
	} else {
		c.newline()
	}
}

func (c *converter) quote(n *html.Node) {
	sub := &converter{doc: c.doc, base: c.base}
	sub.children(n)
	body := tidy(sub.buf.String())
	if body == "" {
		return
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	c.block()
	c.write(strings.Join(lines, "\n"))
	c.block()
}

func (c *converter) table(sel *goquery.Selection) {
	var rows [][]string
	width := 0
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := markdownSpecial.Replace(collapse(cell.Text()))
			row = append(row, strings.ReplaceAll(text, "|", `\|`))
		})
		if len(row) == 0 {
			return
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
	})
	if len(rows) == 0 {
		return
	}

	c.block()
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		c.write("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			c.write(strings.Repeat("| --- ", width) + "|\n")
		}
	}
	c.block()
}

func titleOf(doc *goquery.Document) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return collapse(doc.Find("h1").First().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func tidy(s string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
}
