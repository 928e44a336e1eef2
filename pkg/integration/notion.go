package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const defaultNotionVersion = "2022-06-28"

type notionSearchRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

type notionObject struct {
	Object         string           `json:"object"`
	ID             string           `json:"id"`
	CreatedTime    *string          `json:"created_time"`
	LastEditedTime *string          `json:"last_edited_time"`
	Title          []notionRichText `json:"title"`
	Properties     map[string]struct {
		Type string `json:"type"`
		// Pages carry rich text here; database schemas carry an empty object.
		Title json.RawMessage `json:"title"`
	} `json:"properties"`
}

type notionSearchResponse struct {
	Results    []notionObject `json:"results"`
	NextCursor *string        `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}

func joinPlainText(parts []notionRichText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

// title reads a database title or the page property of type "title".
func (o notionObject) title() string {
	if t := joinPlainText(o.Title); t != "" {
		return t
	}
	for _, p := range o.Properties {
		if p.Type != "title" {
			continue
		}
		var parts []notionRichText
		if json.Unmarshal(p.Title, &parts) == nil {
			return joinPlainText(parts)
		}
	}
	return ""
}

func (a *Adapter) listNotion(ctx context.Context, token string, limit int, cursor string) (*ItemPage, error) {
	body, err := json.Marshal(notionSearchRequest{PageSize: limit, StartCursor: cursor})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.ItemsURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	version := a.cfg.APIVersion
	if version == "" {
		version = defaultNotionVersion
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", version)

	var resp notionSearchResponse
	if err := a.do(req, token, &resp); err != nil {
		return nil, err
	}

	page := &ItemPage{Items: make([]IntegrationItem, 0, len(resp.Results))}
	for _, obj := range resp.Results {
		page.Items = append(page.Items, IntegrationItem{
			ID:        obj.ID,
			Name:      optional(obj.title()),
			CreatedAt: obj.CreatedTime,
			UpdatedAt: obj.LastEditedTime,
		})
	}
	if resp.HasMore && resp.NextCursor != nil {
		page.NextCursor = optional(*resp.NextCursor)
	}
	return page, nil
}
