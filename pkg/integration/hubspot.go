package integration

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var defaultHubSpotProperties = []string{"name", "firstname", "lastname", "email", "phone", "company"}

type hubspotPage struct {
	Results []hubspotObject `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type hubspotObject struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
	CreatedAt  *string            `json:"createdAt"`
	UpdatedAt  *string            `json:"updatedAt"`
}

func (o hubspotObject) property(name string) string {
	if v := o.Properties[name]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

func (o hubspotObject) item() IntegrationItem {
	name := o.property("name")
	if name == "" {
		name = strings.TrimSpace(o.property("firstname") + " " + o.property("lastname"))
	}
	return IntegrationItem{
		ID:        o.ID,
		Name:      optional(name),
		Email:     optional(o.property("email")),
		Phone:     optional(o.property("phone")),
		Company:   optional(o.property("company")),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (a *Adapter) listHubSpot(ctx context.Context, token string, limit int, after string) (*ItemPage, error) {
	u, err := url.Parse(a.cfg.ItemsURL)
	if err != nil {
		return nil, err
	}
	properties := a.cfg.Properties
	if len(properties) == 0 {
		properties = defaultHubSpotProperties
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("properties", strings.Join(properties, ","))
	if after != "" {
		q.Set("after", after)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var resp hubspotPage
	if err := a.do(req, token, &resp); err != nil {
		return nil, err
	}

	page := &ItemPage{Items: make([]IntegrationItem, 0, len(resp.Results))}
	for _, obj := range resp.Results {
		page.Items = append(page.Items, obj.item())
	}
	if resp.Paging != nil && resp.Paging.Next != nil {
		page.NextCursor = optional(resp.Paging.Next.After)
	}
	return page, nil
}
