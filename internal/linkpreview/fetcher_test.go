package linkpreview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stacksift/api/internal/testutil"
)

func newTestFetcher(t *testing.T) (*Fetcher, *Repository) {
	t.Helper()
	repo := NewRepository(testutil.TestDB(t))
	return NewFetcherWithClient(repo, &http.Client{Timeout: fetchTimeout}), repo
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		path        string
		want        *Page
	}{
		{
			name:        "open graph",
			contentType: "text/html",
			body: `<html><head>
				<meta property="og:title" content="Raycast">
				<meta property="og:description" content="Supercharged productivity">
				<meta property="og:image" content="https://raycast.com/og.png">
				<meta property="og:site_name" content="Raycast">
			</head><body></body></html>`,
			want: &Page{Title: "Raycast", Description: "Supercharged productivity", ImageURL: "https://raycast.com/og.png", SiteName: "Raycast"},
		},
		{
			name:        "title and description fallback",
			contentType: "text/html; charset=utf-8",
			body: `<html><head>
				<title> Obsidian </title>
				<meta name="description" content="Sharpen your thinking">
			</head><body></body></html>`,
			want: &Page{Title: "Obsidian", Description: "Sharpen your thinking"},
		},
		{
			name:        "relative image",
			contentType: "text/html",
			path:        "/home",
			body:        `<head><meta property="og:title" content="Penpot"><meta property="og:image" content="/static/cover.png"></head>`,
			want:        &Page{Title: "Penpot", ImageURL: "{server}/static/cover.png"},
		},
		{
			name:        "xhtml",
			contentType: "application/xhtml+xml",
			body:        `<html><head><title>Zed</title></head></html>`,
			want:        &Page{Title: "Zed"},
		},
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"title":"not a page"}`,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
		},
		{
			name:        "nothing described",
			contentType: "text/html",
			body:        `<html><head><meta property="og:image" content="/x.png"></head><body>hi</body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			f, repo := newTestFetcher(t)
			target := srv.URL + tt.path
			got, err := f.Fetch(context.Background(), target)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}

			if tt.want == nil {
				if got != nil {
					t.Fatalf("Fetch = %+v, want nil", got)
				}
				entry, _ := repo.Get(context.Background(), target)
				if entry == nil || entry.FetchError == "" {
					t.Errorf("failure not cached: %+v", entry)
				}
				return
			}

			want := *tt.want
			want.URL = target
			want.ImageURL = strings.Replace(want.ImageURL, "{server}", srv.URL, 1)
			if got == nil || *got != want {
				t.Errorf("Fetch = %+v, want %+v", got, want)
			}
		})
	}
}

func TestFetch_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<head><meta property="og:title" content="Cached"></head>`)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t)
	ctx := context.Background()

	for range 3 {
		page, err := f.Fetch(ctx, srv.URL)
		if err != nil || page == nil || page.Title != "Cached" {
			t.Fatalf("Fetch = %+v, %v", page, err)
		}
		if page, _ := f.Fetch(ctx, srv.URL+"/broken"); page != nil {
			t.Fatalf("broken Fetch = %+v, want nil", page)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits = %d, want 2", n)
	}
}

func TestFetch_CancelledNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	f, repo := newTestFetcher(t)

	if page, err := f.Fetch(ctx, srv.URL); page != nil || err != nil {
		t.Fatalf("Fetch = %+v, %v", page, err)
	}
	if entry, _ := repo.Get(context.Background(), srv.URL); entry != nil {
		t.Errorf("cancelled fetch cached: %+v", entry)
	}
}

func TestFetch_TruncatesLargeBody(t *testing.T) {
	padding := strings.Repeat("x", maxBodySize+1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Big Page</title><!-- %s --><meta name="description" content="too far"></head></html>`, padding)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t)
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil || page == nil {
		t.Fatalf("Fetch = %+v, %v", page, err)
	}
	if page.Title != "Big Page" || page.Description != "" {
		t.Errorf("Fetch = %+v, want only the title before the cut", page)
	}
}

func TestFetch_GuardedClientRefusesLoopback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	repo := NewRepository(testutil.TestDB(t))
	f := NewFetcher(repo)

	if page, err := f.Fetch(context.Background(), srv.URL); page != nil || err != nil {
		t.Fatalf("Fetch = %+v, %v", page, err)
	}
	if hits.Load() != 0 {
		t.Error("request reached a loopback server")
	}
	entry, _ := repo.Get(context.Background(), srv.URL)
	if entry == nil || !strings.Contains(entry.FetchError, "not allowed") {
		t.Errorf("cached entry = %+v, want a refused-address error", entry)
	}
}

func TestIsBlockedAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"0.1.2.3", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"::ffff:127.0.0.1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := isBlockedAddr(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("isBlockedAddr(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestParseHead(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Page
	}{
		{
			name: "stops at body",
			doc:  `<html><head><meta property="og:title" content="Head"></head><body><meta property="og:title" content="Body"></body></html>`,
			want: Page{Title: "Head"},
		},
		{
			name: "twitter image fallback",
			doc:  `<head><title>Tool</title><meta name="twitter:image" content="https://cdn.example.com/card.png"></head>`,
			want: Page{Title: "Tool", ImageURL: "https://cdn.example.com/card.png"},
		},
		{
			name: "og image wins over twitter",
			doc:  `<head><meta name="twitter:image" content="/t.png"><meta property="og:image" content="/og.png"></head>`,
			want: Page{ImageURL: "/og.png"},
		},
		{
			name: "og title wins over title tag",
			doc:  `<head><title>Plain</title><meta property="og:title" content="Rich"><meta name="Description" content="desc"></head>`,
			want: Page{Title: "Rich", Description: "desc"},
		},
		{
			name: "blank content ignored",
			doc:  `<head><meta property="og:title" content="  "><title>Kept</title></head>`,
			want: Page{Title: "Kept"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseHead(strings.NewReader(tt.doc)); *got != tt.want {
				t.Errorf("parseHead = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestResolveReference(t *testing.T) {
	tests := []struct {
		page, ref, want string
	}{
		{"https://example.com/a/b", "https://cdn.example.com/x.png", "https://cdn.example.com/x.png"},
		{"https://example.com/a/b", "/x.png", "https://example.com/x.png"},
		{"https://example.com/a/b", "x.png", "https://example.com/a/x.png"},
		{"https://example.com/", "//cdn.example.com/x.png", "https://cdn.example.com/x.png"},
		{"https://example.com/", "javascript:alert(1)", ""},
		{"https://example.com/", "  ", ""},
	}
	for _, tt := range tests {
		if got := resolveReference(tt.page, tt.ref); got != tt.want {
			t.Errorf("resolveReference(%q, %q) = %q, want %q", tt.page, tt.ref, got, tt.want)
		}
	}
}
