// Package tools exposes the search, tracking, and deal-detection
// operations as MCP tools over stdio, so assistant clients can call them.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guarzo/dealwatch/internal/deals"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/tracker"
)

// Server wires the orchestrators into an MCP server.
type Server struct {
	mcp      *server.MCPServer
	provider ebay.Provider
	finder   *deals.Finder
	tracker  *tracker.Service
}

// New builds the MCP server and registers every tool.
func New(version string, provider ebay.Provider, finder *deals.Finder, svc *tracker.Service) *Server {
	s := &Server{
		mcp:      server.NewMCPServer("dealwatch", version, server.WithToolCapabilities(false)),
		provider: provider,
		finder:   finder,
		tracker:  svc,
	}
	s.registerSearchTools()
	s.registerTrackingTools()
	s.registerDealTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerSearchTools() {
	s.mcp.AddTool(mcp.NewTool("search_ebay",
		mcp.WithDescription("Search active eBay listings with filters."),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Search keywords, e.g. 'Dell PowerEdge server'")),
		mcp.WithNumber("min_price", mcp.Description("Minimum price in USD")),
		mcp.WithNumber("max_price", mcp.Description("Maximum price in USD")),
		mcp.WithString("condition", mcp.Description("Item condition: New, Used, Refurbished, For parts or not working")),
		mcp.WithString("category_id", mcp.Description("eBay category ID")),
		mcp.WithBoolean("free_shipping", mcp.Description("Only listings with free shipping")),
		mcp.WithNumber("limit", mcp.DefaultNumber(20), mcp.Description("Maximum number of results (1-100)")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("get_item_details",
		mcp.WithDescription("Get detailed information about one eBay listing."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("eBay item ID")),
	), s.handleItemDetails)
}

func (s *Server) registerTrackingTools() {
	s.mcp.AddTool(mcp.NewTool("track_price",
		mcp.WithDescription("Add an item to the price tracking watchlist, or update an existing subscription."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("eBay item ID to track")),
		mcp.WithNumber("alert_threshold", mcp.Description("Alert when price drops to or below this amount (USD)")),
		mcp.WithNumber("alert_percentage", mcp.Description("Alert when price drops by at least this percent from first seen")),
		mcp.WithString("check_frequency", mcp.Description("How often to check: hourly, daily, or weekly")),
		mcp.WithString("notes", mcp.Description("Free-text notes for this subscription")),
	), s.handleTrack)

	s.mcp.AddTool(mcp.NewTool("check_price",
		mcp.WithDescription("Fetch the current price of a tracked item, record it, and evaluate alert conditions."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("eBay item ID")),
	), s.handleCheckPrice)

	s.mcp.AddTool(mcp.NewTool("get_price_history",
		mcp.WithDescription("View historical price data and trend statistics for a tracked item."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("eBay item ID")),
		mcp.WithNumber("days", mcp.DefaultNumber(30), mcp.Description("Number of days of history")),
		mcp.WithBoolean("include_stats", mcp.DefaultBool(true), mcp.Description("Include trend statistics")),
	), s.handleHistory)

	s.mcp.AddTool(mcp.NewTool("list_tracked_items",
		mcp.WithDescription("List tracked items with their latest observed price."),
		mcp.WithBoolean("active_only", mcp.DefaultBool(true), mcp.Description("Only active subscriptions")),
		mcp.WithString("sort_by", mcp.DefaultString("date_added"), mcp.Description("Sort key: date_added, current_price, or price_change")),
	), s.handleList)

	s.mcp.AddTool(mcp.NewTool("untrack_price",
		mcp.WithDescription("Stop tracking an item, optionally deleting its price history."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("eBay item ID")),
		mcp.WithBoolean("delete_history", mcp.DefaultBool(false), mcp.Description("Also delete all recorded observations")),
	), s.handleUntrack)
}

func (s *Server) registerDealTools() {
	s.mcp.AddTool(mcp.NewTool("find_deals",
		mcp.WithDescription("Find active listings priced below market value, ranked by deal quality."),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Search keywords")),
		mcp.WithNumber("discount_threshold", mcp.DefaultNumber(15), mcp.Description("Minimum discount percent from the market average")),
		mcp.WithString("condition", mcp.Description("Restrict active listings to one condition")),
		mcp.WithString("category_id", mcp.Description("eBay category ID")),
		mcp.WithNumber("limit", mcp.DefaultNumber(10), mcp.Description("Maximum number of deals")),
	), s.handleFindDeals)

	s.mcp.AddTool(mcp.NewTool("get_market_value",
		mcp.WithDescription("Estimate the market value of an item from recent sold listings."),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Search keywords")),
		mcp.WithNumber("lookback_days", mcp.DefaultNumber(90), mcp.Description("Sold-listing lookback window in days")),
		mcp.WithNumber("sample_size", mcp.Description("Sold-listing sample cap (default from configuration)")),
		mcp.WithString("category_id", mcp.Description("eBay category ID")),
	), s.handleMarketValue)
}

// jsonResult marshals v as the tool's text payload.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
