// Package spotify talks to the public Spotify embed endpoints: the iframe API script,
// the oEmbed lookup and the track embed player.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultScriptURL    = "https://open.spotify.com/embed/iframe-api/v1"
	DefaultOEmbedURL    = "https://open.spotify.com/oembed"
	DefaultEmbedBaseURL = "https://open.spotify.com/embed/track/"

	maxBody = 1 << 20
)

// ErrUnavailable wraps every failure to reach the embed endpoints.
var ErrUnavailable = errors.New("spotify: embed unavailable")

var (
	trackURLPattern = regexp.MustCompile(`^/(?:intl-[a-zA-Z-]+/)?track/([A-Za-z0-9]{22})/?$`)
	trackURIPattern = regexp.MustCompile(`^spotify:track:([A-Za-z0-9]{22})$`)
)

// ParseTrackID extracts the track identifier from an open.spotify.com track link or a
// spotify:track URI.
func ParseTrackID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if m := trackURIPattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), "open.spotify.com") {
		return "", false
	}
	if m := trackURLPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}
	return "", false
}

// Client fetches the embed capability.
type Client struct {
	HTTP         *http.Client
	ScriptURL    string
	OEmbedURL    string
	EmbedBaseURL string
}

// NewClient returns a client over the public endpoints. Empty values use the defaults.
func NewClient(httpClient *http.Client, scriptURL, oembedURL, embedBaseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{HTTP: httpClient, ScriptURL: scriptURL, OEmbedURL: oembedURL, EmbedBaseURL: embedBaseURL}
	if c.ScriptURL == "" {
		c.ScriptURL = DefaultScriptURL
	}
	if c.OEmbedURL == "" {
		c.OEmbedURL = DefaultOEmbedURL
	}
	if c.EmbedBaseURL == "" {
		c.EmbedBaseURL = DefaultEmbedBaseURL
	}
	return c
}

// Embed is the acquired capability. The page loads Script and starts players over the
// resolved embed sources.
type Embed struct {
	client *Client
	script string
}

// Script returns the iframe API script the page loads before commanding playback.
func (e *Embed) Script() string { return e.script }

// TrackURI returns the spotify:track URI the iframe API controller is bound to.
func TrackURI(trackID string) string { return "spotify:track:" + trackID }

// Acquire checks that the iframe API script is reachable. It is the one network round
// trip that gates every later Mount.
func (c *Client) Acquire(ctx context.Context) (*Embed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ScriptURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: script status %d", ErrUnavailable, resp.StatusCode)
	}
	return &Embed{client: c, script: c.ScriptURL}, nil
}

type oembedResponse struct {
	HTML         string `json:"html"`
	IframeURL    string `json:"iframe_url"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Mount resolves the player source for trackID. The oEmbed iframe is preferred; when
// the lookup fails the canonical embed URL is used.
func (e *Embed) Mount(ctx context.Context, trackID string) (string, error) {
	if trackID == "" {
		return "", fmt.Errorf("%w: empty track id", ErrUnavailable)
	}
	fallback := e.client.EmbedBaseURL + url.PathEscape(trackID)

	src, err := e.lookup(ctx, trackID)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		return fallback, nil
	}
	return src, nil
}

func (e *Embed) lookup(ctx context.Context, trackID string) (string, error) {
	endpoint, err := url.Parse(e.client.OEmbedURL)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("url", "https://open.spotify.com/track/"+trackID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := e.client.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	var payload oembedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&payload); err != nil {
		return "", err
	}
	if src := IframeSrc(payload.HTML); src != "" {
		return src, nil
	}
	if src := httpsURL(payload.IframeURL); src != "" {
		return src, nil
	}
	return "", errors.New("oembed response without iframe")
}

// IframeSrc returns the src of the first iframe in an HTML snippet, or "" when there is
// none or it is not an https URL.
func IframeSrc(snippet string) string {
	z := html.NewTokenizer(strings.NewReader(snippet))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "iframe" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "src" {
					continue
				}
				return httpsURL(attr.Val)
			}
			return ""
		}
	}
}

func httpsURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}
