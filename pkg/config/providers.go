package config

import "github.com/go-training/integration-relay/pkg/integration"

// DefaultProviders returns the public endpoints and scopes of the supported
// providers. Client credentials come from the file or the environment.
func DefaultProviders() map[string]integration.ProviderConfig {
	return map[string]integration.ProviderConfig{
		"hubspot": {
			Name:      "hubspot",
			Kind:      integration.KindHubSpot,
			AuthURL:   "https://app.hubspot.com/oauth/authorize",
			TokenURL:  "https://api.hubapi.com/oauth/v1/token",
			ItemsURL:  "https://api.hubapi.com/crm/v3/objects/contacts",
			AuthStyle: integration.AuthStyleParams,
			Scopes: []string{
				"crm.objects.companies.read",
				"crm.objects.contacts.read",
				"crm.objects.deals.read",
				"crm.schemas.contacts.read",
				"oauth",
			},
			Properties:      []string{"name", "firstname", "lastname", "email", "phone", "company"},
			DefaultPageSize: 100,
			MaxPageSize:     100,
		},
		"airtable": {
			Name:      "airtable",
			Kind:      integration.KindAirtable,
			AuthURL:   "https://airtable.com/oauth2/v1/authorize",
			TokenURL:  "https://airtable.com/oauth2/v1/token",
			ItemsURL:  "https://api.airtable.com/v0/meta/bases",
			AuthStyle: integration.AuthStyleHeader,
			Scopes: []string{
				"data.records:read",
				"data.records:write",
				"data.recordComments:read",
				"data.recordComments:write",
				"schema.bases:read",
				"schema.bases:write",
			},
			DefaultPageSize: 100,
			MaxPageSize:     1000,
		},
		"notion": {
			Name:             "notion",
			Kind:             integration.KindNotion,
			AuthURL:          "https://api.notion.com/v1/oauth/authorize",
			TokenURL:         "https://api.notion.com/v1/oauth/token",
			ItemsURL:         "https://api.notion.com/v1/search",
			AuthStyle:        integration.AuthStyleHeader,
			AuthParams:       map[string]string{"owner": "user"},
			TokenExtraFields: []string{"workspace_id", "workspace_name", "bot_id"},
			APIVersion:       "2022-06-28",
			DefaultPageSize:  100,
			MaxPageSize:      100,
		},
	}
}
