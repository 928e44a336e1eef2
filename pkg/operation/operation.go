package operation

import (
	"github.com/go-training/integration-relay/pkg/integration"
	"github.com/go-training/integration-relay/pkg/operation/integrations"

	"github.com/mark3labs/mcp-go/server"
)

/*
RegisterIntegrationTools registers the integration tools to the specified MCPServer instance.

Parameters:
  - s: Pointer to the MCPServer instance where the tools will be registered.
  - registry: Providers the tools operate on.

list_integrations is read-only; load_integration_items calls out to the provider.
*/
func RegisterIntegrationTools(s *server.MCPServer, registry *integration.Registry) {
	tool := &Tool{}

	tool.RegisterRead(server.ServerTool{
		Tool:    integrations.ListIntegrationsTool,
		Handler: integrations.NewListIntegrationsHandler(registry),
	})
	tool.RegisterWrite(server.ServerTool{
		Tool:    integrations.LoadIntegrationItemsTool,
		Handler: integrations.NewLoadIntegrationItemsHandler(registry),
	})

	s.AddTools(tool.Tools()...)
}

/*
Tool collects ServerTools before they are added to an MCPServer.

Fields:
  - write: tools that reach external systems.
  - read: tools that only read relay state.
*/
type Tool struct {
	write []server.ServerTool
	read  []server.ServerTool
}

// RegisterWrite adds a tool that reaches external systems.
func (t *Tool) RegisterWrite(s server.ServerTool) {
	t.write = append(t.write, s)
}

// RegisterRead adds a read-only tool.
func (t *Tool) RegisterRead(s server.ServerTool) {
	t.read = append(t.read, s)
}

// Tools returns write tools first, then read tools.
func (t *Tool) Tools() []server.ServerTool {
	tools := make([]server.ServerTool, 0, len(t.write)+len(t.read))
	tools = append(tools, t.write...)
	tools = append(tools, t.read...)
	return tools
}
