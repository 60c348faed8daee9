package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	logpkg "github.com/PonchoGAD/auto-search-mvp/internal/logger"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/diversify"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/interpret"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeUnavailable   = -32001 // A backing store or provider is down
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// Error is an MCP protocol error. The framework encodes it into the JSON-RPC response.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newError(code int, message string, data any) error {
	return &Error{Code: code, Message: message, Data: data}
}

type listingView struct {
	Brand      string  `json:"brand,omitempty"`
	Model      string  `json:"model,omitempty"`
	Year       *int64  `json:"year,omitempty"`
	Mileage    *int64  `json:"mileage,omitempty"`
	Price      *int64  `json:"price,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	Region     string  `json:"region,omitempty"`
	Score      float64 `json:"score"`
	WhyMatch   string  `json:"why_match"`
	SourceURL  string  `json:"source_url"`
	SourceName string  `json:"source_name"`
	Dominant   bool    `json:"dominant_source,omitempty"`
}

type searchView struct {
	StructuredQuery query.StructuredQuery   `json:"structuredQuery"`
	Results         []listingView           `json:"results"`
	Sources         []diversify.SourceCount `json:"sources"`
	Debug           searchuc.Debug          `json:"debug"`
	Answer          *searchuc.Answer        `json:"answer,omitempty"`
}

// handleSearchListings handles the search_listings tool invocation.
func (s *Server) handleSearchListings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, err := queryArg(args)
	if err != nil {
		return nil, err
	}
	includeAnswer, _ := args["include_answer"].(bool)

	ctx = logpkg.WithLogger(ctx, s.logger.With(zap.String("tool", ToolSearchListings)))
	resp, err := s.search.Search(ctx, searchuc.Request{Query: raw, IncludeAnswer: includeAnswer})
	if err != nil {
		return nil, s.toolError("search failed", err)
	}

	view := searchView{
		StructuredQuery: resp.StructuredQuery,
		Results:         make([]listingView, 0, len(resp.Results)),
		Sources:         resp.Sources,
		Debug:           resp.Debug,
		Answer:          resp.Answer,
	}
	if view.Sources == nil {
		view.Sources = []diversify.SourceCount{}
	}
	for _, r := range resp.Results {
		d := r.Document()
		view.Results = append(view.Results, listingView{
			Brand:      d.Brand,
			Model:      d.Model,
			Year:       d.Year,
			Mileage:    d.Mileage,
			Price:      d.Price,
			Currency:   d.Currency,
			Region:     d.Region,
			Score:      r.Score(),
			WhyMatch:   r.WhyMatch(),
			SourceURL:  r.SourceURL(),
			SourceName: r.SourceName(),
			Dominant:   r.Dominant(),
		})
	}

	return mcp.NewToolResultText(formatJSON(view)), nil
}

// handleInterpretQuery handles the interpret_query tool invocation.
func (s *Server) handleInterpretQuery(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, err := queryArg(args)
	if err != nil {
		return nil, err
	}

	sq, residual := s.interp.Interpret(raw)
	response := map[string]any{
		"structuredQuery": sq,
		"residual":        residual,
		"query_language":  interpret.DetectLanguage(raw),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDataSignals handles the data_signals tool invocation.
func (s *Server) handleDataSignals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signals, err := s.signals.DataSignals(ctx)
	if err != nil {
		return nil, s.toolError("failed to build data signals", err)
	}
	return mcp.NewToolResultText(formatJSON(signals)), nil
}

func (s *Server) toolError(message string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return newError(ErrorCodeInvalidParams, err.Error(), map[string]any{"param": "query"})
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrRetrievalUnavailable),
		errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, domain.ErrRateLimited):
		s.logger.Warn("Tool dependency unavailable", zap.Error(err))
		return newError(ErrorCodeUnavailable, message, nil)
	default:
		s.logger.Error("Tool failed", zap.Error(err))
		return newError(ErrorCodeInternalError, message, nil)
	}
}

func arguments(request mcp.CallToolRequest) (map[string]any, bool) {
	if request.Params.Arguments == nil {
		return map[string]any{}, true
	}
	args, ok := request.Params.Arguments.(map[string]any)
	return args, ok
}

func queryArg(args map[string]any) (string, error) {
	raw, _ := args["query"].(string)
	if strings.TrimSpace(raw) == "" {
		return "", newError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]any{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return raw, nil
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
