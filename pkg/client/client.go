// Package client talks to the help services: the content tree, translations,
// search, and the help pages themselves.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/helpview/pkg/config"
	"github.com/vanderheijden86/helpview/pkg/i18n"
	"github.com/vanderheijden86/helpview/pkg/model"
)

// Endpoints below {base}services/help/.
const (
	EndpointContent     = "api/content"
	EndpointTranslation = "api/translation"
	EndpointSearch      = "api/search"
)

// ContentType is sent as Accept and Content-Type on every service request.
const ContentType = "application/json; charset=ISO-8859-1"

var (
	// ErrTimeout is returned when a request does not finish within the timeout.
	ErrTimeout = fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	// ErrStatus is returned for any non-200 response.
	ErrStatus = errors.New("unexpected response status")
)

// FetchError describes a failed request.
type FetchError struct {
	Endpoint string
	Status   int // 0 when no response was received
	Cause    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.Status, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Client fetches help data. It is safe for concurrent use.
type Client struct {
	baseURL    string
	contentURL string
	pathParam  string
	timeout    time.Duration
	http       *http.Client
}

// New creates a client from a normalized config. The cookie jar keeps the
// session cookies the services hand out.
func New(cfg config.Config) (*Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		contentURL: cfg.ContentURL,
		pathParam:  cfg.HelpPathParam(),
		timeout:    cfg.Timeout,
		http:       &http.Client{Jar: jar},
	}, nil
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration { return c.timeout }

// EndpointURL builds {base}services/help/{endpoint}?path=/...{extra}.
func (c *Client) EndpointURL(endpoint, extra string) string {
	return c.baseURL + "services/help/" + endpoint + "?" + c.pathParam + extra
}

// PageURL resolves a menu or search url against the content base.
// Absolute urls are returned unchanged.
func (c *Client) PageURL(u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return c.contentURL + u
}

// Content fetches the flat entry list of the table of contents.
func (c *Client) Content(ctx context.Context) ([]model.Entry, error) {
	var entries []model.Entry
	if err := c.getJSON(ctx, EndpointContent, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Translation fetches the translation table for lang. An empty payload
// yields an empty table.
func (c *Client) Translation(ctx context.Context, lang string) (*i18n.Table, error) {
	var payload model.TranslationPayload
	extra := "&language=" + url.QueryEscape(lang)
	if err := c.getJSON(ctx, EndpointTranslation, extra, &payload); err != nil {
		return nil, err
	}
	if payload.Language == "" {
		payload.Language = lang
	}
	table := i18n.New(payload.Language)
	table.Merge(payload.AsProperties)
	return table, nil
}

// Search runs a full-text search on the server.
func (c *Client) Search(ctx context.Context, term string) ([]model.SearchHit, error) {
	var hits []model.SearchHit
	extra := "&term=" + url.QueryEscape(term)
	if err := c.getJSON(ctx, EndpointSearch, extra, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Bundle is everything the viewer needs before it can show the menu.
type Bundle struct {
	Entries      []model.Entry
	Translations *i18n.Table
}

// LoadAll fetches content and translation concurrently. The first failure
// cancels the other request.
func (c *Client) LoadAll(ctx context.Context, lang string) (*Bundle, error) {
	g, gctx := errgroup.WithContext(ctx)
	var b Bundle

	g.Go(func() error {
		entries, err := c.Content(gctx)
		if err != nil {
			return err
		}
		b.Entries = entries
		return nil
	})
	g.Go(func() error {
		table, err := c.Translation(gctx, lang)
		if err != nil {
			return err
		}
		b.Translations = table
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Page is a fetched help page, decoded to UTF-8 when it is text.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// IsHTML reports whether the page is an HTML document
func (p *Page) IsHTML() bool {
	return strings.Contains(strings.ToLower(p.ContentType), "html")
}

// FetchPage fetches a help page by its menu url.
func (c *Client) FetchPage(ctx context.Context, u string) (*Page, error) {
	full := c.PageURL(u)
	resp, cancel, err := c.get(ctx, full, full, "")
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	var r io.Reader = resp.Body
	if strings.HasPrefix(ct, "text/") || ct == "" {
		decoded, err := charset.NewReader(resp.Body, ct)
		switch {
		case errors.Is(err, io.EOF):
			return &Page{URL: full, ContentType: ct, Body: []byte{}}, nil
		case err != nil:
			return nil, &FetchError{Endpoint: full, Cause: fmt.Errorf("decode charset: %w", err)}
		}
		r = decoded
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, c.wrap(ctx, full, 0, err)
	}
	return &Page{URL: full, ContentType: ct, Body: body}, nil
}

// Download stores the document behind u in dir and returns the file path.
func (c *Client) Download(ctx context.Context, u, dir string) (string, error) {
	full := c.PageURL(u)
	resp, cancel, err := c.get(ctx, full, full, "")
	if err != nil {
		return "", err
	}
	defer cancel()
	defer resp.Body.Close()

	name := downloadName(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	target := filepath.Join(dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return "", c.wrap(ctx, full, 0, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	return target, nil
}

func downloadName(full string) string {
	name := "download"
	if u, err := url.Parse(full); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			name = base
		}
	}
	return filepath.Base(name)
}

func (c *Client) getJSON(ctx context.Context, endpoint, extra string, v any) error {
	resp, cancel, err := c.get(ctx, endpoint, c.EndpointURL(endpoint, extra), ContentType)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if errors.Is(err, io.EOF) {
		return nil // empty body
	}
	if err != nil {
		return &FetchError{Endpoint: endpoint, Cause: fmt.Errorf("decode charset: %w", err)}
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body
		}
		return c.wrap(ctx, endpoint, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// get issues a GET bounded by the client timeout. The caller must call
// cancel once the body is consumed.
func (c *Client) get(ctx context.Context, endpoint, target, contentType string) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, nil, &FetchError{Endpoint: endpoint, Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Accept", contentType)
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, nil, c.wrap(ctx, endpoint, 0, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Cause: ErrStatus}
	}
	return resp, cancel, nil
}

func (c *Client) wrap(ctx context.Context, endpoint string, status int, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}
	return &FetchError{Endpoint: endpoint, Status: status, Cause: err}
}
