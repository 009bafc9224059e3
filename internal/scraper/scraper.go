package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
	"github.com/johnrirwin/newsdesk/internal/ratelimit"
)

var (
	ErrBlocked  = errors.New("domain is blocked for scraping")
	ErrTooShort = errors.New("scraped content is too short")
	ErrNotFound = errors.New("article page not found")
)

const (
	// MinContentLength is the shortest body the rewrite pipeline accepts.
	MinContentLength = 300

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.9"

	maxImages          = 10
	minParagraphLength = 25
	maxBodyBytes       = 5 << 20
)

var (
	removedSelectors = "script, style, nav, footer, header, .ads, #ads, aside"
	metaImageQueries = []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="og:image:url"]`,
	}
	imageAttrs       = []string{"src", "data-src", "data-lazy-src", "srcset"}
	skippedImageHint = []string{"logo", "icon", "avatar"}
	videoHosts       = []string{"youtube", "vimeo", "dailymotion"}
)

type Config struct {
	Timeout        time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	BlockedDomains []string
	UserAgent      string
}

func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MinDelay:       time.Second,
		MaxDelay:       3 * time.Second,
		BlockedDomains: []string{"nytimes.com"},
		UserAgent:      DefaultUserAgent,
	}
}

// Scraper downloads article pages and extracts their body text and media.
type Scraper struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	config  Config
	logger  *logging.Logger
}

func New(config Config, limiter *ratelimit.Limiter, logger *logging.Logger) *Scraper {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MaxDelay < config.MinDelay {
		config.MaxDelay = config.MinDelay
	}

	return &Scraper{
		client:  &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// IsBlocked reports whether rawURL belongs to a domain that is never scraped.
func (s *Scraper) IsBlocked(rawURL string) bool {
	host := ratelimit.HostOf(rawURL)
	for _, domain := range s.config.BlockedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Scrape fetches rawURL and extracts the article. Blocked domains fail with
// ErrBlocked before any request is made.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*models.ScrapedPage, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return nil, fmt.Errorf("invalid article url %q", rawURL)
	}
	if s.IsBlocked(rawURL) {
		return nil, ErrBlocked
	}

	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.HostOf(rawURL)); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := s.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page, err := Extract(body, pageURL)
	if err != nil {
		return nil, err
	}

	if len(page.Content) < MinContentLength {
		s.logger.Debug("Scraped content too short", logging.WithFields(map[string]interface{}{
			"url":    rawURL,
			"length": len(page.Content),
		}))
		return nil, ErrTooShort
	}

	return page, nil
}

func (s *Scraper) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return body, nil
}

// pause waits a random duration in [MinDelay, MaxDelay].
func (s *Scraper) pause(ctx context.Context) error {
	delay := s.config.MinDelay
	if spread := s.config.MaxDelay - s.config.MinDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Extract parses an article page. Images and videos are collected before
// boilerplate is removed; the body falls back to readability when the
// paragraph pass finds too little text.
func Extract(body []byte, pageURL *url.URL) (*models.ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	page := &models.ScrapedPage{
		Images:    extractImages(doc, pageURL),
		Videos:    extractVideos(doc, pageURL),
		SourceURL: pageURL.String(),
	}

	doc.Find(removedSelectors).Remove()
	page.Content = extractParagraphs(doc)

	if len(page.Content) < MinContentLength {
		if text := readableText(body, pageURL); len(text) > len(page.Content) {
			page.Content = text
		}
	}

	return page, nil
}

func extractParagraphs(doc *goquery.Document) string {
	var paragraphs []string
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > minParagraphLength {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

func readableText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return ""
	}

	var paragraphs []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractImages(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	images := make([]string, 0, maxImages)
	add := func(raw string) {
		if len(images) >= maxImages {
			return
		}
		resolved := resolve(base, raw)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		images = append(images, resolved)
	}

	for _, query := range metaImageQueries {
		if content, ok := doc.Find(query).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			add(content)
			break
		}
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := ""
		for _, attr := range imageAttrs {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = v
				break
			}
		}
		// srcset lists "url width" pairs; the first URL is enough.
		if fields := strings.Fields(src); len(fields) > 0 {
			src = strings.TrimSuffix(fields[0], ",")
		}
		if src == "" || hasAny(strings.ToLower(src), skippedImageHint) {
			return
		}
		add(src)
	})

	return images
}

func extractVideos(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	videos := make([]string, 0)
	doc.Find("iframe").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || !hasAny(strings.ToLower(src), videoHosts) {
			return
		}
		resolved := resolve(base, src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		videos = append(videos, resolved)
	})
	return videos
}

// resolve turns ref into an absolute http(s) URL relative to base.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func hasAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
