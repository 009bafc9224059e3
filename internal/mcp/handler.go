package mcp

import (
	"context"
	"encoding/json"

	"github.com/johnrirwin/newsdesk/internal/logging"
	"github.com/johnrirwin/newsdesk/internal/models"
)

const defaultNewsLimit = 20

// FeedService is the subset of the aggregator the tools need.
type FeedService interface {
	Run(ctx context.Context) (models.AggregationResult, error)
	Feed(ctx context.Context, query models.FeedQuery) (models.FeedResponse, error)
	Stats(ctx context.Context) (models.FeedStats, error)
	Sources() []models.SourceInfo
}

// Newsroom runs the rewrite pipeline. It is optional.
type Newsroom interface {
	Run(ctx context.Context) models.RewriteRunResult
}

type Handler struct {
	feed     FeedService
	newsroom Newsroom
	logger   *logging.Logger
}

func NewHandler(feed FeedService, nr Newsroom, logger *logging.Logger) *Handler {
	return &Handler{
		feed:     feed,
		newsroom: nr,
		logger:   logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type GetNewsParams struct {
	Limit    int    `json:"limit"`
	Category string `json:"category"`
	Source   string `json:"source"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

var emptySchema = json.RawMessage(`{
	"type": "object",
	"properties": {}
}`)

func (h *Handler) GetTools() []ToolDefinition {
	tools := []ToolDefinition{
		{
			Name:        "get_news_feed",
			Description: "Get the latest ranked news articles aggregated from RSS feeds and NewsAPI.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {
						"type": "integer",
						"description": "Maximum number of articles to return (default: 20)"
					},
					"category": {
						"type": "string",
						"description": "Filter by category, e.g. Technology or Sports"
					},
					"source": {
						"type": "string",
						"description": "Filter by source name"
					},
					"fromDate": {
						"type": "string",
						"description": "Only articles published on or after this date (YYYY-MM-DD)"
					},
					"toDate": {
						"type": "string",
						"description": "Only articles published on or before this date (YYYY-MM-DD)"
					}
				}
			}`),
		},
		{
			Name:        "get_feed_stats",
			Description: "Get article counts per category and per source.",
			InputSchema: emptySchema,
		},
		{
			Name:        "get_news_sources",
			Description: "Get a list of all configured news sources.",
			InputSchema: emptySchema,
		},
		{
			Name:        "refresh_news_feed",
			Description: "Fetch every source now and store new ranked articles.",
			InputSchema: emptySchema,
		},
	}

	if h.newsroom != nil {
		tools = append(tools, ToolDefinition{
			Name:        "run_newsroom",
			Description: "Rewrite new articles with AI and schedule them for publication.",
			InputSchema: emptySchema,
		})
	}

	return tools
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "get_news_feed":
		return h.handleGetNews(ctx, arguments)
	case "get_feed_stats":
		return h.feed.Stats(ctx)
	case "get_news_sources":
		return h.handleGetSources()
	case "refresh_news_feed":
		return h.handleRefresh(ctx)
	case "run_newsroom":
		if h.newsroom != nil {
			return h.handleRunNewsroom(ctx)
		}
	}
	return nil, &ToolError{Message: "Unknown tool: " + name}
}

func (h *Handler) handleGetNews(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetNewsParams
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
		}
	}

	if params.Limit <= 0 {
		params.Limit = defaultNewsLimit
	}

	return h.feed.Feed(ctx, models.FeedQuery{
		Limit:    params.Limit,
		Category: params.Category,
		Source:   params.Source,
		FromDate: params.FromDate,
		ToDate:   params.ToDate,
	})
}

func (h *Handler) handleGetSources() (interface{}, error) {
	sources := h.feed.Sources()
	return map[string]interface{}{
		"sources": sources,
		"count":   len(sources),
	}, nil
}

func (h *Handler) handleRefresh(ctx context.Context) (interface{}, error) {
	result, err := h.feed.Run(ctx)
	if err != nil {
		return nil, &ToolError{Message: "Failed to refresh: " + err.Error()}
	}

	h.logger.Info("Feed refreshed from MCP", logging.WithField("saved", result.Saved))
	return map[string]interface{}{
		"status":     "success",
		"saved":      result.Saved,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
		"durationMs": result.Duration.Milliseconds(),
	}, nil
}

func (h *Handler) handleRunNewsroom(ctx context.Context) (interface{}, error) {
	result := h.newsroom.Run(ctx)
	if !result.Success {
		return nil, &ToolError{Message: "Rewrite run failed: " + result.Error}
	}
	return result, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
