package ebay

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/guarzo/dealwatch/internal/model"
)

const (
	defaultFindingURL  = "https://svcs.ebay.com/services/search/FindingService/v1"
	defaultShoppingURL = "https://open.api.ebay.com/shopping"
)

// RetryPolicy bounds how a failed upstream call is retried. Retries apply
// only to network errors, timeouts, and 5xx responses; 4xx responses and
// unresolvable items fail immediately.
type RetryPolicy struct {
	// MaxAttempts counts the first try. 3 means two retries.
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// DefaultRetryPolicy matches the small fixed budget the service promises:
// two retries with doubling backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}
}

// ClientConfig configures the eBay API client.
type ClientConfig struct {
	AppID       string
	FindingURL  string        // defaults to the production Finding API
	ShoppingURL string        // defaults to the production Shopping API
	Timeout     time.Duration // per-request HTTP timeout, default 15s
	Retry       RetryPolicy
	// RateLimit is requests per second against eBay. The Finding API basic
	// tier allows 5000 calls/day, so the default is deliberately slow.
	RateLimit rate.Limit
}

// Client talks to the eBay Finding and Shopping APIs.
type Client struct {
	appID       string
	findingURL  string
	shoppingURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       RetryPolicy
	scraper     *SoldScraper
}

// NewClient builds a client from cfg, filling in defaults for anything
// left zero.
func NewClient(cfg ClientConfig) *Client {
	if cfg.FindingURL == "" {
		cfg.FindingURL = defaultFindingURL
	}
	if cfg.ShoppingURL == "" {
		cfg.ShoppingURL = defaultShoppingURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Every(time.Second)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	limiter := rate.NewLimiter(cfg.RateLimit, 3)

	return &Client{
		appID:       cfg.AppID,
		findingURL:  cfg.FindingURL,
		shoppingURL: cfg.ShoppingURL,
		httpClient:  httpClient,
		limiter:     limiter,
		retry:       cfg.Retry,
		scraper:     newSoldScraper(httpClient, limiter),
	}
}

// Available reports whether credentials are configured.
func (c *Client) Available() bool {
	return c != nil && c.appID != ""
}

// SearchActive searches active listings via findItemsAdvanced.
func (c *Client) SearchActive(ctx context.Context, keywords string, f Filters, limit int) ([]model.ListingRecord, error) {
	if !c.Available() {
		return nil, fmt.Errorf("eBay app ID not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	params := c.findingParams("findItemsAdvanced", keywords, f, limit)
	return c.executeFinding(ctx, "findItemsAdvanced", params)
}

// SearchSold searches completed listings that actually sold, via
// findCompletedItems with the SoldItemsOnly filter. When the API comes back
// empty (the endpoint is deprecated and intermittently returns nothing),
// the HTML scraper fallback is tried before giving up.
func (c *Client) SearchSold(ctx context.Context, keywords string, f Filters, lookbackDays, sampleSize int) ([]model.ListingRecord, error) {
	if !c.Available() {
		return nil, fmt.Errorf("eBay app ID not configured")
	}
	if sampleSize <= 0 {
		sampleSize = 50
	}

	params := c.findingParams("findCompletedItems", keywords, f, sampleSize)
	idx := nextFilterIndex(params)
	params.Set(fmt.Sprintf("itemFilter(%d).name", idx), "SoldItemsOnly")
	params.Set(fmt.Sprintf("itemFilter(%d).value", idx), "true")
	if lookbackDays > 0 {
		params.Set(fmt.Sprintf("itemFilter(%d).name", idx+1), "EndTimeFrom")
		params.Set(fmt.Sprintf("itemFilter(%d).value", idx+1),
			time.Now().AddDate(0, 0, -lookbackDays).UTC().Format(time.RFC3339))
	}
	params.Set("sortOrder", "EndTimeSoonest")

	listings, err := c.executeFinding(ctx, "findCompletedItems", params)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 && c.scraper != nil {
		scraped, scrapeErr := c.scraper.SearchSold(ctx, keywords, sampleSize)
		if scrapeErr != nil {
			log.Printf("ebay: sold-comps scraper fallback failed: %v", scrapeErr)
			return listings, nil
		}
		return scraped, nil
	}
	return listings, nil
}

// findingParams builds the common Finding API query for an operation.
func (c *Client) findingParams(operation, keywords string, f Filters, limit int) url.Values {
	query := keywords
	if len(f.ExcludeKeywords) > 0 {
		query = fmt.Sprintf("%s -(%s)", keywords, strings.Join(f.ExcludeKeywords, ","))
	}

	params := url.Values{}
	params.Set("OPERATION-NAME", operation)
	params.Set("SERVICE-VERSION", "1.13.0")
	params.Set("SECURITY-APPNAME", c.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("keywords", query)
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(limit))
	params.Set("paginationInput.pageNumber", "1")
	params.Set("sortOrder", "BestMatch")

	if f.CategoryID != "" {
		params.Set("categoryId", f.CategoryID)
	}
	if f.SearchDescription {
		params.Set("descriptionSearch", "true")
	}

	idx := 0
	addFilter := func(name string, values ...string) {
		params.Set(fmt.Sprintf("itemFilter(%d).name", idx), name)
		if len(values) == 1 {
			params.Set(fmt.Sprintf("itemFilter(%d).value", idx), values[0])
		} else {
			for vi, v := range values {
				params.Set(fmt.Sprintf("itemFilter(%d).value(%d)", idx, vi), v)
			}
		}
		idx++
	}
	if f.MinPrice > 0 {
		addFilter("MinPrice", strconv.FormatFloat(f.MinPrice, 'f', 2, 64))
	}
	if f.MaxPrice > 0 {
		addFilter("MaxPrice", strconv.FormatFloat(f.MaxPrice, 'f', 2, 64))
	}
	if f.Condition != "" {
		addFilter("Condition", conditionID(f.Condition))
	}
	if f.ItemLocation != "" {
		addFilter("LocatedIn", f.ItemLocation)
	}
	switch f.Shipping {
	case ShippingFree:
		addFilter("FreeShippingOnly", "true")
	case ShippingLocalPickup:
		addFilter("LocalPickupOnly", "true")
	}
	if f.SellerType != "" {
		addFilter("SellerBusinessType", f.SellerType)
	}
	if f.ListingType != "" {
		addFilter("ListingType", f.ListingType)
	}

	return params
}

// conditionID maps condition display names to eBay condition IDs; already
// numeric values pass through.
func conditionID(condition string) string {
	switch model.NormalizeCondition(condition) {
	case model.ConditionNew:
		return "1000"
	case model.ConditionRefurb:
		return "2000"
	case model.ConditionForParts:
		return "7000"
	case model.ConditionUsed:
		if _, err := strconv.Atoi(condition); err == nil {
			return condition
		}
		return "3000"
	}
	return condition
}

func nextFilterIndex(params url.Values) int {
	for i := 0; ; i++ {
		if params.Get(fmt.Sprintf("itemFilter(%d).name", i)) == "" {
			return i
		}
	}
}

// findingResponse mirrors the Finding API's everything-is-an-array JSON.
type findingResponse struct {
	FindItemsAdvancedResponse  []findingPayload `json:"findItemsAdvancedResponse"`
	FindCompletedItemsResponse []findingPayload `json:"findCompletedItemsResponse"`
}

type findingPayload struct {
	Ack          []string `json:"ack"`
	SearchResult []struct {
		Item []findingItem `json:"item"`
	} `json:"searchResult"`
}

type findingItem struct {
	ItemID      []string `json:"itemId"`
	Title       []string `json:"title"`
	ViewItemURL []string `json:"viewItemURL"`
	GalleryURL  []string `json:"galleryURL"`
	Location    []string `json:"location"`
	Condition   []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
	SellingStatus []struct {
		CurrentPrice []struct {
			Value      string `json:"__value__"`
			CurrencyID string `json:"@currencyId"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
	ShippingInfo []struct {
		ShippingServiceCost []struct {
			Value string `json:"__value__"`
		} `json:"shippingServiceCost"`
		ShippingType []string `json:"shippingType"`
	} `json:"shippingInfo"`
	ListingInfo []struct {
		ListingType []string `json:"listingType"`
		EndTime     []string `json:"endTime"`
	} `json:"listingInfo"`
	SellerInfo []struct {
		PositiveFeedbackPercent []string `json:"positiveFeedbackPercent"`
	} `json:"sellerInfo"`
}

func (c *Client) executeFinding(ctx context.Context, operation string, params url.Values) ([]model.ListingRecord, error) {
	fullURL := c.findingURL + "?" + params.Encode()

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-EBAY-SOA-SERVICE-NAME", "FindingService")
		req.Header.Set("X-EBAY-SOA-OPERATION-NAME", operation)
		req.Header.Set("X-EBAY-SOA-SECURITY-APPNAME", c.appID)
		req.Header.Set("X-EBAY-SOA-RESPONSE-DATA-FORMAT", "JSON")
		req.Header.Set("Accept-Encoding", "gzip, br")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	var resp findingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", operation, err)
	}

	payloads := resp.FindItemsAdvancedResponse
	if operation == "findCompletedItems" {
		payloads = resp.FindCompletedItemsResponse
	}

	var listings []model.ListingRecord
	if len(payloads) > 0 && len(payloads[0].SearchResult) > 0 {
		for _, item := range payloads[0].SearchResult[0].Item {
			listing, ok := normalizeItem(item)
			if !ok {
				// Malformed upstream item; skip at the boundary.
				continue
			}
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

// normalizeItem flattens one Finding API item into a ListingRecord. The
// second return value is false when the item lacks an ID or a usable price.
func normalizeItem(item findingItem) (model.ListingRecord, bool) {
	l := model.ListingRecord{Currency: "USD"}

	if len(item.ItemID) == 0 || item.ItemID[0] == "" {
		return l, false
	}
	l.ItemID = item.ItemID[0]

	if len(item.Title) > 0 {
		l.Title = item.Title[0]
	}
	if len(item.ViewItemURL) > 0 {
		l.URL = item.ViewItemURL[0]
	}
	if len(item.GalleryURL) > 0 {
		l.ImageURL = item.GalleryURL[0]
	}
	if len(item.Location) > 0 {
		l.Location = item.Location[0]
	}
	if len(item.Condition) > 0 && len(item.Condition[0].ConditionDisplayName) > 0 {
		l.Condition = item.Condition[0].ConditionDisplayName[0]
	}

	if len(item.SellingStatus) == 0 || len(item.SellingStatus[0].CurrentPrice) == 0 {
		return l, false
	}
	price, err := strconv.ParseFloat(item.SellingStatus[0].CurrentPrice[0].Value, 64)
	if err != nil || price <= 0 {
		return l, false
	}
	l.Price = price
	if cur := item.SellingStatus[0].CurrentPrice[0].CurrencyID; cur != "" {
		l.Currency = cur
	}

	if len(item.ShippingInfo) > 0 {
		info := item.ShippingInfo[0]
		if len(info.ShippingServiceCost) > 0 {
			if cost, err := strconv.ParseFloat(info.ShippingServiceCost[0].Value, 64); err == nil {
				l.ShippingCost = cost
			}
		}
	}

	if len(item.ListingInfo) > 0 {
		info := item.ListingInfo[0]
		if len(info.ListingType) > 0 {
			l.ListingType = info.ListingType[0]
			l.BuyItNow = strings.Contains(strings.ToLower(l.ListingType), "fixedprice")
		}
		if len(info.EndTime) > 0 {
			if endTime, err := time.Parse(time.RFC3339, info.EndTime[0]); err == nil {
				l.EndTime = endTime
			}
		}
	}

	if len(item.SellerInfo) > 0 && len(item.SellerInfo[0].PositiveFeedbackPercent) > 0 {
		if rating, err := strconv.ParseFloat(item.SellerInfo[0].PositiveFeedbackPercent[0], 64); err == nil {
			l.SellerRating = rating
		}
	}

	return l, true
}

// doWithRetry issues the request built by build, retrying on network errors
// and 5xx responses up to the configured budget. 4xx responses surface
// immediately. The returned body is fully read and decompressed.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retry.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		body, retryable, err := c.doOnce(req)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", ErrUnavailable, c.retry.MaxAttempts, lastErr)
}

func (c *Client) doOnce(req *http.Request) (body []byte, retryable bool, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	reader, err := decompress(resp)
	if err != nil {
		return nil, false, fmt.Errorf("create reader: %w", err)
	}

	body, err = io.ReadAll(reader)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("upstream status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrNotFound
	default:
		return nil, false, fmt.Errorf("upstream status %d: %s", resp.StatusCode, firstLine(body))
	}
}

// decompress unwraps a gzip- or brotli-encoded response body.
func decompress(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func firstLine(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
