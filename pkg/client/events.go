package client

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"strings"
)

// EndpointEvents streams server-sent events when a help structure changes.
const EndpointEvents = "api/events"

// Subscribe connects to the events stream and calls onReload for every
// reload event until ctx is cancelled or the stream ends. Only the connect
// is bounded by the client timeout.
func (c *Client) Subscribe(ctx context.Context, onReload func()) error {
	target := c.EndpointURL(EndpointEvents, "")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &FetchError{Endpoint: EndpointEvents, Cause: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	httpClient := *c.http
	httpClient.Timeout = 0
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = c.timeout
	httpClient.Transport = transport

	resp, err := httpClient.Do(req)
	if err != nil {
		return c.wrap(ctx, EndpointEvents, 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &FetchError{Endpoint: EndpointEvents, Status: resp.StatusCode, Cause: ErrStatus}
	}

	scanner := bufio.NewScanner(resp.Body)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "reload" && onReload != nil {
				onReload()
			}
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return c.wrap(ctx, EndpointEvents, 0, err)
	}
	return ctx.Err()
}
