package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/guarzo/dealwatch/internal/deals"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/model"
	"github.com/guarzo/dealwatch/internal/store"
	"github.com/guarzo/dealwatch/internal/tracker"
)

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filters := ebay.Filters{
		MinPrice:   req.GetFloat("min_price", 0),
		MaxPrice:   req.GetFloat("max_price", 0),
		Condition:  req.GetString("condition", ""),
		CategoryID: req.GetString("category_id", ""),
	}
	if req.GetBool("free_shipping", false) {
		filters.Shipping = ebay.ShippingFree
	}
	limit := clampLimit(req.GetInt("limit", 20))

	listings, err := s.provider.SearchActive(ctx, keywords, filters, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"query":         keywords,
		"results_count": len(listings),
		"items":         listings,
	})
}

func (s *Server) handleItemDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail, err := s.provider.GetDetail(ctx, itemID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("item lookup failed: %v", err)), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := tracker.TrackOptions{
		AlertThreshold:  req.GetFloat("alert_threshold", 0),
		AlertPercentage: req.GetFloat("alert_percentage", 0),
		CheckFrequency:  model.CheckFrequency(req.GetString("check_frequency", "")),
		Notes:           req.GetString("notes", ""),
	}

	result, err := s.tracker.Track(ctx, itemID, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("track failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleCheckPrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.tracker.CheckPrice(ctx, itemID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("price check failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.tracker.History(ctx, itemID,
		req.GetInt("days", 30), req.GetBool("include_stats", true))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.tracker.List(ctx,
		req.GetBool("active_only", true),
		store.SortKey(req.GetString("sort_by", string(store.SortDateAdded))))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"count": len(summaries),
		"items": summaries,
	})
}

func (s *Server) handleUntrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.tracker.Untrack(ctx, itemID, req.GetBool("delete_history", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("untrack failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleFindDeals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := deals.FindOptions{
		DiscountThreshold: req.GetFloat("discount_threshold", 0),
		Condition:         req.GetString("condition", ""),
		CategoryID:        req.GetString("category_id", ""),
		Limit:             req.GetInt("limit", deals.DefaultLimit),
	}

	report, err := s.finder.FindDeals(ctx, keywords, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("deal search failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleMarketValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := deals.MarketOptions{
		LookbackDays: req.GetInt("lookback_days", 0),
		SampleSize:   req.GetInt("sample_size", 0),
		CategoryID:   req.GetString("category_id", ""),
	}

	report, err := s.finder.MarketValue(ctx, keywords, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("market value failed: %v", err)), nil
	}
	return jsonResult(report)
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}
