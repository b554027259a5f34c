// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes panel tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/actions"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/domain"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/gateway"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// Server wraps the MCP server with panel tools.
type Server struct {
	mcp *server.MCPServer
	st  *state.State
	svc *actions.Service
}

// New creates a new MCP server with all panel tools registered.
func New(st *state.State, svc *actions.Service) *Server {
	s := &Server{st: st, svc: svc}

	s.mcp = server.NewMCPServer(
		"NextDNS Control Panel",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("deny_domain",
		mcp.WithDescription("Add a domain to the profile denylist and hide it from the log view."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to deny (e.g. ads.example.com)")),
	), s.denyDomain)

	s.mcp.AddTool(mcp.NewTool("allow_domain",
		mcp.WithDescription("Add a domain to the profile allowlist and hide it from the log view."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to allow")),
	), s.allowDomain)

	s.mcp.AddTool(mcp.NewTool("remove_domain",
		mcp.WithDescription("Remove a domain from the profile denylist or allowlist."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("List entry to remove")),
		mcp.WithString("list", mcp.Required(), mcp.Description("List to remove from: denylist or allowlist")),
	), s.removeDomain)

	s.mcp.AddTool(mcp.NewTool("lookup_domain",
		mcp.WithDescription("Resolve the effective allow/deny record for a domain, "+
			"checking the exact name first and falling back to its root domain."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to resolve")),
	), s.lookupDomain)

	s.mcp.AddTool(mcp.NewTool("hide_domain",
		mcp.WithDescription("Hide a domain from the log view without touching the profile lists. "+
			"Hiding matches by substring, so hiding example.com also hides its subdomains."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to hide")),
	), s.hideDomain)

	s.mcp.AddTool(mcp.NewTool("list_hidden",
		mcp.WithDescription("List the hidden-domain substrings currently filtering the log view."),
	), s.listHidden)

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

func (s *Server) denyDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dom, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Send(ctx, dom, state.ActionDeny); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("denied: %s", dom)), nil
}

func (s *Server) allowDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dom, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Send(ctx, dom, state.ActionAllow); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("allowed: %s", dom)), nil
}

func (s *Server) removeDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dom, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	listName, err := req.RequireString("list")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list := gateway.ListType(listName)
	if !list.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown list: %s", listName)), nil
	}
	if err := s.svc.Remove(ctx, dom, list); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %s from %s", dom, list)), nil
}

func (s *Server) lookupDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dom, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rootDom := domain.Root(dom)
	rec, ok := s.st.Lookup(dom, rootDom)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("no record for %s (root %s)", dom, rootDom)), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"domain": dom,
		"root":   rootDom,
		"type":   rec.Type,
		"level":  rec.Level,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) hideDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dom, err := req.RequireString("domain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.st.HideDomain(dom); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("hidden: %s", dom)), nil
}

func (s *Server) listHidden(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hidden := s.st.Hidden()
	if len(hidden) == 0 {
		return mcp.NewToolResultText("no hidden domains"), nil
	}
	return mcp.NewToolResultText(strings.Join(hidden, "\n")), nil
}
