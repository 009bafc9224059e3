package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnrirwin/newsdesk/internal/testutil"
)

func paragraph(n int) string {
	return fmt.Sprintf("<p>Paragraph %d carries enough words to count as real article body text.</p>", n)
}

func articleHTML(paragraphs int) string {
	var b strings.Builder
	b.WriteString(`<html><head>
<meta property="og:image" content="https://cdn.example.com/lead.jpg">
<meta name="twitter:image" content="https://cdn.example.com/twitter.jpg">
<script>var tracking = "<p>This script paragraph should never appear in the body.</p>";</script>
</head><body>
<header><p>Header text that is long enough to be a paragraph but is chrome.</p></header>
<nav><p>Navigation links that are long enough to be a paragraph too.</p></nav>
<img src="/images/logo.png">
<img src="/images/inline.jpg">
<img data-src="https://cdn.example.com/lazy.jpg">
<img srcset="https://cdn.example.com/small.jpg 480w, https://cdn.example.com/large.jpg 800w">
<img src="https://cdn.example.com/lead.jpg">
<img src="data:image/gif;base64,R0lGOD">
<iframe src="https://www.youtube.com/embed/abc"></iframe>
<iframe src="https://ads.example.com/frame"></iframe>
<iframe src="//player.vimeo.com/video/1"></iframe>
<article>`)
	for i := 0; i < paragraphs; i++ {
		b.WriteString(paragraph(i))
	}
	b.WriteString(`<p>Too short.</p></article>
<aside><p>Related stories sidebar text that should be dropped entirely.</p></aside>
<div class="ads"><p>Advertisement copy that is long enough to be kept otherwise.</p></div>
<footer><p>Footer copyright text that is long enough to be a paragraph.</p></footer>
</body></html>`)
	return b.String()
}

func testConfig() Config {
	config := DefaultConfig()
	config.MinDelay = 0
	config.MaxDelay = 0
	return config
}

func TestExtract(t *testing.T) {
	base, _ := url.Parse("https://news.example.com/world/story")

	page, err := Extract([]byte(articleHTML(6)), base)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	wantImages := []string{
		"https://cdn.example.com/lead.jpg",
		"https://news.example.com/images/inline.jpg",
		"https://cdn.example.com/lazy.jpg",
		"https://cdn.example.com/small.jpg",
	}
	if strings.Join(page.Images, ",") != strings.Join(wantImages, ",") {
		t.Errorf("Extract() images = %v, want %v", page.Images, wantImages)
	}

	wantVideos := []string{"https://www.youtube.com/embed/abc", "https://player.vimeo.com/video/1"}
	if strings.Join(page.Videos, ",") != strings.Join(wantVideos, ",") {
		t.Errorf("Extract() videos = %v, want %v", page.Videos, wantVideos)
	}

	parts := strings.Split(page.Content, "\n\n")
	if len(parts) != 6 {
		t.Errorf("Extract() content has %d paragraphs, want 6", len(parts))
	}
	for _, unwanted := range []string{"Header", "Navigation", "sidebar", "Advertisement", "Footer", "script", "Too short"} {
		if strings.Contains(page.Content, unwanted) {
			t.Errorf("Extract() content contains %q", unwanted)
		}
	}
	if page.SourceURL != base.String() {
		t.Errorf("Extract() sourceUrl = %q, want %q", page.SourceURL, base.String())
	}
}

func TestExtract_ImageLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<img src="https://cdn.example.com/%d.jpg">`, i)
	}
	b.WriteString("</body></html>")

	page, err := Extract([]byte(b.String()), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(page.Images) != maxImages {
		t.Errorf("Extract() returned %d images, want %d", len(page.Images), maxImages)
	}
}

func TestScraper_Scrape(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		switch r.URL.Path {
		case "/long":
			_, _ = w.Write([]byte(articleHTML(8)))
		case "/short":
			_, _ = w.Write([]byte("<html><body><p>Only a single short paragraph here.</p></body></html>"))
		case "/error":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := New(testConfig(), nil, testutil.NullLogger())

	page, err := s.Scrape(context.Background(), server.URL+"/long")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(page.Content) < MinContentLength {
		t.Errorf("Scrape() content length = %d, want >= %d", len(page.Content), MinContentLength)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want browser user agent", gotUA)
	}
	if gotLang != acceptLanguageHeader {
		t.Errorf("Accept-Language = %q, want %q", gotLang, acceptLanguageHeader)
	}

	tests := []struct {
		path string
		want error
	}{
		{"/short", ErrTooShort},
		{"/missing", ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := s.Scrape(context.Background(), server.URL+tt.path); !errors.Is(err, tt.want) {
			t.Errorf("Scrape(%s) error = %v, want %v", tt.path, err, tt.want)
		}
	}

	if _, err := s.Scrape(context.Background(), server.URL+"/error"); err == nil {
		t.Error("Scrape(/error) should fail")
	}
}

func TestScraper_BlockedDomainMakesNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	s := New(testConfig(), nil, testutil.NullLogger())

	for _, u := range []string{"https://www.nytimes.com/2024/world/story.html", "https://nytimes.com/a"} {
		if _, err := s.Scrape(context.Background(), u); !errors.Is(err, ErrBlocked) {
			t.Errorf("Scrape(%q) error = %v, want ErrBlocked", u, err)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("blocked scrape should not issue a request")
	}
}

func TestScraper_IsBlocked(t *testing.T) {
	s := New(testConfig(), nil, nil)

	tests := map[string]bool{
		"https://www.nytimes.com/x":       true,
		"https://rss.nytimes.com/x":       true,
		"https://notnytimes.com/x":        false,
		"https://www.bbc.co.uk/news/1234": false,
	}
	for u, want := range tests {
		if got := s.IsBlocked(u); got != want {
			t.Errorf("IsBlocked(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestScraper_DelayHonoursContext(t *testing.T) {
	config := testConfig()
	config.MinDelay = time.Hour
	config.MaxDelay = time.Hour
	s := New(config, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Scrape(ctx, "https://example.com/story"); !errors.Is(err, context.Canceled) {
		t.Errorf("Scrape() error = %v, want context.Canceled", err)
	}
}

func TestScraper_InvalidURL(t *testing.T) {
	s := New(testConfig(), nil, nil)
	if _, err := s.Scrape(context.Background(), "not a url"); err == nil {
		t.Error("Scrape() should reject an invalid url")
	}
}
