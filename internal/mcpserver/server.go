// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the language catalog to LLM clients via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/langcards/internal/catalog"
	"github.com/starford/langcards/internal/render"
	"github.com/starford/langcards/internal/search"
)

// SchemaURI is the resource URI of the record schema contract.
const SchemaURI = "langcards://record-schema"

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp      *server.MCPServer
	loader   *catalog.Loader
	renderer *render.Renderer
}

// New creates a new MCP server with all catalog tools registered.
func New(loader *catalog.Loader, renderer *render.Renderer, version string) *Server {
	s := &Server{loader: loader, renderer: renderer}

	s.mcp = server.NewMCPServer(
		"langcards",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_catalog",
		mcp.WithDescription("Case-insensitive substring search over language names and descriptions. "+
			"An empty query returns the whole catalog. Results keep catalog order."),
		mcp.WithString("query", mcp.Description("Search term; matched against name and description only")),
	), s.searchCatalog)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Return the first catalog record whose name equals the given name, ignoring case."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Language name, e.g. Go")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("render_cards",
		mcp.WithDescription("Render the matching records as plain-text cards, as the search page shows them."),
		mcp.WithString("query", mcp.Description("Search term; empty renders every card")),
	), s.renderCards)

	s.mcp.AddResource(
		mcp.NewResource(SchemaURI, "Catalog Record Schema",
			mcp.WithResourceDescription("Canonical JSON schema of catalog records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := search.Search(ctx, s.loader, req.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cat, err := s.loader.Ensure(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, r := range cat {
		if strings.EqualFold(r.Name, name) {
			out, _ := json.MarshalIndent(r, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
}

func (s *Server) renderCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := search.Search(ctx, s.loader, req.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("no matching languages"), nil
	}
	var buf bytes.Buffer
	if err := render.WriteText(&buf, s.renderer.Cards(recs)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) readSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "text/markdown",
			Text:     RecordSchemaContract,
		},
	}, nil
}
