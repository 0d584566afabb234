package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/pipeline"
)

// Service is the part of the pipeline exposed as tools.
type Service interface {
	Scrape(ctx context.Context, url string) (models.ScrapedProduct, error)
	Track(ctx context.Context, url string) (models.Product, error)
	Subscribe(ctx context.Context, url, email string) (pipeline.Subscription, error)
	List(ctx context.Context) ([]models.Product, error)
	RunCycle(ctx context.Context) (*pipeline.Summary, error)
}

type tools struct {
	svc Service
}

func registerTools(s *server.MCPServer, svc Service) {
	t := &tools{svc: svc}

	// scrape_product
	scrapeTool := mcp.NewTool("scrape_product",
		mcp.WithDescription("Fetch an Amazon, Flipkart or Myntra product page and return the extracted product without storing it"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL"),
		),
	)
	s.AddTool(scrapeTool, t.handleScrape)

	// track_product
	trackTool := mcp.NewTool("track_product",
		mcp.WithDescription("Start tracking a product, or record a new price sample for one already tracked"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL"),
		),
	)
	s.AddTool(trackTool, t.handleTrack)

	// subscribe_product
	subscribeTool := mcp.NewTool("subscribe_product",
		mcp.WithDescription("Subscribe an email address to price alerts for a product and send a welcome email"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL"),
		),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Subscriber email address"),
		),
	)
	s.AddTool(subscribeTool, t.handleSubscribe)

	// list_products
	listTool := mcp.NewTool("list_products",
		mcp.WithDescription("List tracked products with their price history"),
		mcp.WithString("platform",
			mcp.Description("Only products of this platform: amazon, flipkart or myntra"),
		),
	)
	s.AddTool(listTool, t.handleList)

	// run_cycle
	cycleTool := mcp.NewTool("run_cycle",
		mcp.WithDescription("Refresh every tracked product, notify subscribers and return the cycle summary"),
	)
	s.AddTool(cycleTool, t.handleRunCycle)
}

func (t *tools) handleScrape(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	product, err := t.svc.Scrape(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scrape error: %v", err)), nil
	}
	return jsonResult(product)
}

func (t *tools) handleTrack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	product, err := t.svc.Track(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("track error: %v", err)), nil
	}
	return jsonResult(product)
}

func (t *tools) handleSubscribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	email := request.GetString("email", "")
	if url == "" || email == "" {
		return mcp.NewToolResultError("url and email are required"), nil
	}
	sub, err := t.svc.Subscribe(ctx, url, email)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("subscribe error: %v", err)), nil
	}
	return jsonResult(sub)
}

func (t *tools) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products, err := t.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
	}
	if plat := models.Platform(request.GetString("platform", "")); plat != "" {
		filtered := make([]models.Product, 0, len(products))
		for _, p := range products {
			if p.Platform == plat {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	return jsonResult(products)
}

func (t *tools) handleRunCycle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := t.svc.RunCycle(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cycle error: %v", err)), nil
	}
	return jsonResult(summary)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
