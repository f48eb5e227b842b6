package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxBodySize  = 1 << 20
	fetchTimeout = 5 * time.Second
	maxRedirects = 3
	userAgent    = "StackSiftBot/1.0 (+https://stacksift.dev/bot)"
)

var (
	errNoMetadata  = errors.New("no page metadata")
	errNotHTML     = errors.New("not an html document")
	errBlockedAddr = errors.New("destination address is not allowed")
	errTooManyHops = errors.New("too many redirects")
)

// Fetcher reads page metadata over HTTP and caches the outcome.
type Fetcher struct {
	repo   *Repository
	client *http.Client
}

// NewFetcher returns a Fetcher whose client refuses to connect to loopback,
// private and link-local addresses.
func NewFetcher(repo *Repository) *Fetcher {
	return NewFetcherWithClient(repo, nil)
}

// NewFetcherWithClient returns a Fetcher using client, or the guarded
// default client when client is nil.
func NewFetcherWithClient(repo *Repository, client *http.Client) *Fetcher {
	if client == nil {
		client = guardedClient()
	}
	return &Fetcher{repo: repo, client: client}
}

func guardedClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: fetchTimeout,
		// Control runs after DNS resolution with the concrete address, so
		// every redirect hop and every resolved IP is checked.
		Control: func(network, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return err
			}
			if isBlockedAddr(ap.Addr()) {
				return fmt.Errorf("%w: %s", errBlockedAddr, ap.Addr())
			}
			return nil
		},
	}
	return &http.Client{
		Timeout: fetchTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: fetchTimeout,
			MaxIdleConnsPerHost: 2,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyHops
			}
			return nil
		},
	}
}

// Fetch returns the metadata published by the page at rawURL. A nil Page with
// a nil error means the page was unreachable or described nothing; that
// outcome is cached for ErrorCacheTTL. Only cache failures are returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	hit, err := f.repo.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		if hit.FetchError != "" {
			return nil, nil
		}
		page := hit.Page
		return &page, nil
	}

	page, fetchErr := f.download(ctx, rawURL)
	if fetchErr == nil && page.empty() {
		fetchErr = errNoMetadata
	}

	now := time.Now().UTC()
	if fetchErr != nil {
		// A cancelled request says nothing about the page.
		if ctx.Err() != nil {
			return nil, nil
		}
		_ = f.repo.Put(ctx, &CacheEntry{
			Page:       Page{URL: rawURL},
			FetchedAt:  now,
			ExpiresAt:  now.Add(ErrorCacheTTL),
			FetchError: fetchErr.Error(),
		})
		return nil, nil
	}

	page.URL = rawURL
	page.ImageURL = resolveReference(rawURL, page.ImageURL)
	if err := f.repo.Put(ctx, &CacheEntry{Page: *page, FetchedAt: now, ExpiresAt: now.Add(CacheTTL)}); err != nil {
		return nil, err
	}
	return page, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/html" && mt != "application/xhtml+xml" {
		return nil, errNotHTML
	}

	return parseHead(io.LimitReader(resp.Body, maxBodySize)), nil
}

// resolveReference makes a possibly relative image reference absolute
// against the page URL. Anything that does not resolve to http(s) is dropped.
func resolveReference(pageURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

// headParser accumulates metadata while tokenizing a document head. Open
// Graph tags win over <title> and <meta name="description">.
type headParser struct {
	og          Page
	title       string
	description string
	twitterImg  string
}

func (p *headParser) meta(attrs map[string]string) {
	content := strings.TrimSpace(attrs["content"])
	if content == "" {
		return
	}
	switch attrs["property"] {
	case "og:title":
		p.og.Title = content
	case "og:description":
		p.og.Description = content
	case "og:site_name":
		p.og.SiteName = content
	case "og:image", "og:image:url", "og:image:secure_url":
		if p.og.ImageURL == "" {
			p.og.ImageURL = content
		}
	}
	switch strings.ToLower(attrs["name"]) {
	case "description":
		if p.description == "" {
			p.description = content
		}
	case "twitter:image", "twitter:image:src":
		if p.twitterImg == "" {
			p.twitterImg = content
		}
	}
}

func (p *headParser) page() *Page {
	page := p.og
	if page.Title == "" {
		page.Title = p.title
	}
	if page.Description == "" {
		page.Description = p.description
	}
	if page.ImageURL == "" {
		page.ImageURL = p.twitterImg
	}
	return &page
}

// parseHead reads tags up to <body>. A truncated document yields whatever was
// seen before the cut.
func parseHead(r io.Reader) *Page {
	z := html.NewTokenizer(r)
	var p headParser
	for {
		switch z.Next() {
		case html.ErrorToken:
			return p.page()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Body:
				return p.page()
			case atom.Title:
				if p.title == "" && z.Next() == html.TextToken {
					p.title = strings.TrimSpace(string(z.Text()))
				}
			case atom.Meta:
				if hasAttr {
					p.meta(tagAttrs(z))
				}
			}
		}
	}
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string, 4)
	for {
		key, val, more := z.TagAttr()
		if len(key) > 0 {
			attrs[string(key)] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

var (
	sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")
	thisNetwork        = netip.MustParsePrefix("0.0.0.0/8")
)

// isBlockedAddr reports whether a fetch must not connect to addr.
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsUnspecified() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		sharedAddressSpace.Contains(addr) ||
		thisNetwork.Contains(addr)
}
