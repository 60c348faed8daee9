package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	domanalytics "github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
	"github.com/PonchoGAD/auto-search-mvp/internal/version"
)

// ServerName is the MCP server name.
const ServerName = "autosearch"

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (*searchuc.Response, error)
}

// Interpreter extracts a structured query without searching.
type Interpreter interface {
	Interpret(raw string) (query.StructuredQuery, string)
}

// Signals produces the data-signals bundle.
type Signals interface {
	DataSignals(ctx context.Context) (domanalytics.DataSignals, error)
}

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp     *server.MCPServer
	search  Searcher
	interp  Interpreter
	signals Signals
	logger  *zap.Logger
}

// NewServer creates an MCP server with all tools registered.
func NewServer(search Searcher, interp Interpreter, signals Signals, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, version.Version),
		search:  search,
		interp:  interp,
		signals: signals,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdio and blocks until stdin closes.
func (s *Server) Serve(_ context.Context) error {
	return server.ServeStdio(s.mcp) //nolint:wrapcheck // transport boundary
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchListingsTool(), s.handleSearchListings)
	s.mcp.AddTool(interpretQueryTool(), s.handleInterpretQuery)
	s.mcp.AddTool(dataSignalsTool(), s.handleDataSignals)
}
