// Package pagemeta looks up the title and favicon of a game's page.
package pagemeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxPageBytes caps how much of a page is parsed; the head comes first.
const maxPageBytes = 1 << 20

// Fetcher downloads pages to extract their metadata.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher using client, or a client with a 10s timeout if nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch returns the title and favicon of pageURL. The favicon falls back to
// /favicon.ico on the page's host when the page declares none.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (games.PageMeta, error) {
	meta := games.PageMeta{URL: pageURL}

	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return meta, fmt.Errorf("not an http(s) URL: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return meta, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return meta, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return meta, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return meta, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	// Redirects change the base for relative links.
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	meta.Title = findTitle(doc)
	meta.Favicon = resolve(base, findIcon(doc))
	if meta.Favicon == "" {
		meta.Favicon = resolve(base, "/favicon.ico")
	}
	return meta, nil
}

// findTitle extracts the <title> text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.Join(strings.Fields(n.FirstChild.Data), " ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// findIcon returns the href of the first <link> whose rel names an icon.
// "icon" and "shortcut icon" are preferred over "apple-touch-icon".
func findIcon(n *html.Node) string {
	var fallback string
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Link {
			rel, href := attr(n, "rel"), attr(n, "href")
			if href != "" {
				for _, r := range strings.Fields(strings.ToLower(rel)) {
					switch r {
					case "icon":
						return href
					case "apple-touch-icon":
						if fallback == "" {
							fallback = href
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if href := walk(c); href != "" {
				return href
			}
		}
		return ""
	}

	if href := walk(n); href != "" {
		return href
	}
	return fallback
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}
