package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guarzo/dealwatch/internal/model"
)

// shoppingResponse mirrors the Shopping API GetSingleItem JSON payload.
type shoppingResponse struct {
	Ack    string `json:"Ack"`
	Errors []struct {
		ShortMessage string `json:"ShortMessage"`
		ErrorCode    string `json:"ErrorCode"`
	} `json:"Errors"`
	Item struct {
		ItemID                      string `json:"ItemID"`
		Title                       string `json:"Title"`
		ConditionDisplayName        string `json:"ConditionDisplayName"`
		Location                    string `json:"Location"`
		PrimaryCategoryName         string `json:"PrimaryCategoryName"`
		GalleryURL                  string `json:"GalleryURL"`
		ListingType                 string `json:"ListingType"`
		EndTime                     string `json:"EndTime"`
		ViewItemURLForNaturalSearch string `json:"ViewItemURLForNaturalSearch"`
		ConvertedCurrentPrice       struct {
			Value      float64 `json:"Value"`
			CurrencyID string  `json:"CurrencyID"`
		} `json:"ConvertedCurrentPrice"`
		ShippingCostSummary struct {
			ShippingServiceCost struct {
				Value float64 `json:"Value"`
			} `json:"ShippingServiceCost"`
			ShippingType string `json:"ShippingType"`
		} `json:"ShippingCostSummary"`
		Seller struct {
			UserID                  string  `json:"UserID"`
			PositiveFeedbackPercent float64 `json:"PositiveFeedbackPercent"`
		} `json:"Seller"`
	} `json:"Item"`
}

// GetDetail looks up one item via the Shopping API GetSingleItem call.
// Returns ErrNotFound when the identifier does not resolve; never retried
// in that case.
func (c *Client) GetDetail(ctx context.Context, itemID string) (*model.ListingRecord, error) {
	if !c.Available() {
		return nil, fmt.Errorf("eBay app ID not configured")
	}
	if itemID == "" {
		return nil, fmt.Errorf("get detail: %w", ErrNotFound)
	}

	params := url.Values{}
	params.Set("callname", "GetSingleItem")
	params.Set("responseencoding", "JSON")
	params.Set("appid", c.appID)
	params.Set("version", "967")
	params.Set("ItemID", itemID)
	params.Set("IncludeSelector", "Details,ShippingCosts")

	fullURL := c.shoppingURL + "?" + params.Encode()

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Encoding", "gzip, br")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get detail %s: %w", itemID, err)
	}

	var resp shoppingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get detail %s: parse response: %w", itemID, err)
	}

	if !strings.EqualFold(resp.Ack, "Success") {
		if isInvalidItemError(resp) {
			return nil, fmt.Errorf("get detail %s: %w", itemID, ErrNotFound)
		}
		msg := "unknown error"
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].ShortMessage
		}
		return nil, fmt.Errorf("get detail %s: upstream error: %s", itemID, msg)
	}
	if resp.Item.ItemID == "" || resp.Item.ConvertedCurrentPrice.Value <= 0 {
		return nil, fmt.Errorf("get detail %s: %w", itemID, ErrNotFound)
	}

	item := resp.Item
	listing := &model.ListingRecord{
		ItemID:       item.ItemID,
		Title:        item.Title,
		Price:        item.ConvertedCurrentPrice.Value,
		ShippingCost: item.ShippingCostSummary.ShippingServiceCost.Value,
		Currency:     item.ConvertedCurrentPrice.CurrencyID,
		Condition:    item.ConditionDisplayName,
		SellerRating: item.Seller.PositiveFeedbackPercent,
		URL:          item.ViewItemURLForNaturalSearch,
		Location:     item.Location,
		ImageURL:     item.GalleryURL,
		ListingType:  item.ListingType,
		BuyItNow:     strings.Contains(strings.ToLower(item.ListingType), "fixedprice"),
	}
	if listing.Currency == "" {
		listing.Currency = "USD"
	}
	if item.EndTime != "" {
		if endTime, err := time.Parse(time.RFC3339, item.EndTime); err == nil {
			listing.EndTime = endTime
		}
	}
	return listing, nil
}

// isInvalidItemError reports whether the Shopping API error set denotes an
// unknown or ended item rather than a transport problem.
func isInvalidItemError(resp shoppingResponse) bool {
	for _, e := range resp.Errors {
		switch e.ErrorCode {
		case "10.12", "10.33", "1.19": // invalid, not found, ended
			return true
		}
		if strings.Contains(strings.ToLower(e.ShortMessage), "invalid item") {
			return true
		}
	}
	return false
}
