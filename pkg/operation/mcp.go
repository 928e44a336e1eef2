package operation

import (
	"context"
	"net/http"

	"github.com/go-training/integration-relay/pkg/core"
	"github.com/go-training/integration-relay/pkg/integration"

	"github.com/mark3labs/mcp-go/server"
)

const serverName = "integration-relay"

// NewMCPServer creates an MCP server exposing the integration tools.
func NewMCPServer(registry *integration.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(ToolObservabilityMiddleware()),
	)

	RegisterIntegrationTools(s, registry)
	return s
}

// NewHTTPHandler serves s over streamable HTTP, carrying the request id into tool calls.
func NewHTTPHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(requestIDFromRequest),
	)
}

func requestIDFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id := core.RequestIDFromCtx(r.Context()); id != "" {
		return core.WithRequestIDValue(ctx, id)
	}
	return core.WithRequestIDValue(ctx, r.Header.Get("X-Request-ID"))
}
