package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/guarzo/dealwatch/internal/model"
)

const (
	soldSearchURL = "https://www.ebay.com/sch/i.html"
	scraperUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// SoldScraper scrapes the completed-listings results page for sold prices.
// It exists because findCompletedItems is deprecated upstream and
// intermittently returns empty result sets; the scraper shares the client's
// rate limiter so the two paths never exceed the same budget together.
type SoldScraper struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newSoldScraper(httpClient *http.Client, limiter *rate.Limiter) *SoldScraper {
	return &SoldScraper{httpClient: httpClient, limiter: limiter}
}

// SearchSold fetches and parses the sold/completed results page for
// keywords, returning up to max listings. Records carry price, title, and
// URL only; the page does not expose item condition reliably, so Condition
// is left empty and scored as used downstream.
func (s *SoldScraper) SearchSold(ctx context.Context, keywords string, max int) ([]model.ListingRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("_nkw", keywords)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_ipg", strconv.Itoa(clampPageSize(max)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, soldSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sold search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sold search returned status %d", resp.StatusCode)
	}

	reader, err := decompress(resp)
	if err != nil {
		return nil, fmt.Errorf("create reader: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse sold results: %w", err)
	}

	return s.parseResults(doc, max), nil
}

func (s *SoldScraper) parseResults(doc *goquery.Document, max int) []model.ListingRecord {
	var listings []model.ListingRecord

	doc.Find("li.s-item, div.s-item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(".s-item__title").First().Text())
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			// The first tile is a template placeholder.
			return true
		}

		price, ok := parsePriceText(sel.Find(".s-item__price").First().Text())
		if !ok {
			return true
		}

		href, _ := sel.Find("a.s-item__link").First().Attr("href")

		listings = append(listings, model.ListingRecord{
			ItemID:   itemIDFromURL(href),
			Title:    title,
			Price:    price,
			Currency: "USD",
			URL:      href,
		})
		return len(listings) < max
	})

	return listings
}

// parsePriceText extracts a price from strings like "$123.45" or
// "$100.00 to $150.00" (the lower bound is used for ranges).
func parsePriceText(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if i := strings.Index(strings.ToLower(text), " to "); i >= 0 {
		text = text[:i]
	}
	cleaned := strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(text)
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// itemIDFromURL pulls the numeric item identifier out of a listing URL like
// https://www.ebay.com/itm/123456789012?...
func itemIDFromURL(href string) string {
	const marker = "/itm/"
	i := strings.Index(href, marker)
	if i < 0 {
		return ""
	}
	rest := href[i+len(marker):]
	for j := 0; j < len(rest); j++ {
		if rest[j] < '0' || rest[j] > '9' {
			return rest[:j]
		}
	}
	return rest
}

func clampPageSize(max int) int {
	// eBay supports result page sizes of 60, 120, or 240.
	switch {
	case max <= 60:
		return 60
	case max <= 120:
		return 120
	default:
		return 240
	}
}
