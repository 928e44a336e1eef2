package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-training/integration-relay/pkg/integration"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var ListIntegrationsTool = mcp.NewTool("list_integrations",
	mcp.WithDescription(`List Integrations Tool

Description:
  Returns the names of the providers this relay can connect to, as a JSON array.
  A provider appears only when its OAuth client credentials are configured.

Output:
  ["airtable","hubspot","notion"]`),
)

var LoadIntegrationItemsTool = mcp.NewTool("load_integration_items",
	mcp.WithDescription(`Load Integration Items Tool

Description:
  Fetches one page of records from a connected provider and returns it as JSON:
  {"items":[{"id":"...","name":...,"email":...}],"next_cursor":"..."|null}
  Pass next_cursor back as cursor to read the following page.

Error Conditions:
  - Unknown provider.
  - Credentials missing, not JSON, or without an access token.
  - limit is not a whole number.
  - The provider rejected the request.`),
	mcp.WithString("provider",
		mcp.Description("Provider name, e.g. hubspot, airtable or notion."),
		mcp.Required(),
	),
	mcp.WithString("credentials",
		mcp.Description("Credentials JSON as returned by the credentials endpoint."),
		mcp.Required(),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of items; the provider default applies when omitted."),
	),
	mcp.WithString("cursor",
		mcp.Description("Cursor from a previous page."),
	),
)

// NewListIntegrationsHandler lists the providers in registry.
func NewListIntegrationsHandler(registry *integration.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(registry.Names())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

// NewLoadIntegrationItemsHandler fetches items through the adapter named by the provider argument.
func NewLoadIntegrationItemsHandler(registry *integration.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		provider, ok := args["provider"].(string)
		if !ok || provider == "" {
			return mcp.NewToolResultError("provider is required"), nil
		}
		raw, ok := args["credentials"].(string)
		if !ok || raw == "" {
			return mcp.NewToolResultError(integration.ErrMissingToken.Error()), nil
		}
		limit := 0
		if v, ok := args["limit"].(float64); ok {
			n, err := toLimit(v)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			limit = n
		}
		cursor, _ := args["cursor"].(string)

		adapter, err := registry.Get(provider)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var creds integration.Credentials
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("credentials must be a JSON object: %v", err)), nil
		}

		page, err := adapter.ListItems(ctx, &creds, limit, cursor)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		b, err := json.Marshal(page)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

var errInvalidLimit = errors.New("limit must be a whole number")

// toLimit converts a JSON number to a page size. Values outside the int32
// range are clamped; the adapter clamps again to the provider maximum.
func toLimit(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, errInvalidLimit
	}
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32, nil
	case v < 0:
		return 0, nil
	}
	return int(v), nil
}
