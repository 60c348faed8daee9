package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	ToolSearchListings = "search_listings"
	ToolInterpretQuery = "interpret_query"
	ToolDataSignals    = "data_signals"
)

func searchListingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolSearchListings,
		Description: "Search vehicle listings with a free-form Russian or English description",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What the user is looking for, e.g. \"BMW X5 до 2 млн, пробег до 50 тыс\"",
				},
				"include_answer": map[string]any{
					"type":        "boolean",
					"description": "If true, add a short summary with highlights and sources",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

func interpretQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolInterpretQuery,
		Description: "Extract brand, model, ranges and categorical filters from a free-form query without searching",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Free-form vehicle description",
				},
			},
			Required: []string{"query"},
		},
	}
}

func dataSignalsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolDataSignals,
		Description: "No-results rate, brands with demand but no inventory, and noisy sources",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}
}
