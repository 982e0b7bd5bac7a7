package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"autoposter/internal/config"
)

const (
	defaultItemSelector    = "article"
	defaultTitleSelector   = "h2, h3"
	defaultLinkSelector    = "a[href]"
	defaultSummarySelector = "p"
	userAgent              = "autoposter-research/1.0"
)

// Entry is one listing item scraped from a source page.
type Entry struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

// Scraper extracts entries from HTML listing pages.
type Scraper struct {
	client *http.Client
}

// NewScraper wires an HTTP client; nil uses a 20 second timeout.
func NewScraper(client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Scraper{client: client}
}

// Fetch downloads src.URL and returns its entries in page order.
func (s *Scraper) Fetch(ctx context.Context, src config.ResearchSource) ([]Entry, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", src.URL, err)
	}
	doc, err := s.fetchDocument(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return extractEntries(doc, base, src), nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractEntries(doc *goquery.Document, base *url.URL, src config.ResearchSource) []Entry {
	itemSel := selectorOr(src.ItemSelector, defaultItemSelector)
	titleSel := selectorOr(src.TitleSelector, defaultTitleSelector)
	linkSel := selectorOr(src.LinkSelector, defaultLinkSelector)
	summarySel := selectorOr(src.SummarySelector, defaultSummarySelector)

	var entries []Entry
	doc.Find(itemSel).Each(func(_ int, item *goquery.Selection) {
		entry := Entry{
			Title:   collapse(item.Find(titleSel).First().Text()),
			Summary: collapse(item.Find(summarySel).First().Text()),
		}
		if href, ok := item.Find(linkSel).First().Attr("href"); ok {
			entry.Link = resolveLink(base, href)
		}
		if stamp, ok := item.Find("time[datetime]").First().Attr("datetime"); ok {
			if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(stamp)); err == nil {
				utc := parsed.UTC()
				entry.PublishedAt = &utc
			}
		}
		entries = append(entries, entry)
	})
	return entries
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func selectorOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
