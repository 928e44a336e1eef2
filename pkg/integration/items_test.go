package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-training/integration-relay/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = &Credentials{AccessToken: "access-123"}

func TestListItems_MissingToken(t *testing.T) {
	for _, kind := range []Kind{KindHubSpot, KindAirtable, KindNotion} {
		t.Run(string(kind), func(t *testing.T) {
			env := newTestEnv(t, kind)

			_, err := env.adapter.ListItems(context.Background(), nil, 10, "")
			assert.ErrorIs(t, err, ErrMissingToken)

			_, err = env.adapter.ListItems(context.Background(), &Credentials{}, 10, "")
			assert.ErrorIs(t, err, ErrMissingToken)

			assert.Equal(t, int32(0), env.provider.itemCalls.Load())
		})
	}
}

func TestListItems_HubSpot(t *testing.T) {
	env := newTestEnv(t, KindHubSpot)
	env.provider.setItems(http.StatusOK, `{
		"results": [
			{"id": "101", "properties": {"name": "Acme Buyer", "email": "buyer@acme.test", "phone": "555-0100", "company": "Acme"}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-02T00:00:00Z"},
			{"id": "102", "properties": {"firstname": "Ada", "lastname": "Lovelace", "email": null}},
			{"id": "103"}
		],
		"paging": {"next": {"after": "X"}}
	}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 25, "cursor-1")
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	first := page.Items[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, "Acme Buyer", *first.Name)
	assert.Equal(t, "buyer@acme.test", *first.Email)
	assert.Equal(t, "555-0100", *first.Phone)
	assert.Equal(t, "Acme", *first.Company)
	assert.Equal(t, "2024-01-01T00:00:00Z", *first.CreatedAt)
	assert.Equal(t, "2024-01-02T00:00:00Z", *first.UpdatedAt)

	second := page.Items[1]
	assert.Equal(t, "102", second.ID)
	assert.Equal(t, "Ada Lovelace", *second.Name)
	assert.Nil(t, second.Email)

	third := page.Items[2]
	assert.Equal(t, "103", third.ID)
	assert.Nil(t, third.Name)
	assert.Nil(t, third.Email)
	assert.Nil(t, third.Phone)
	assert.Nil(t, third.Company)
	assert.Nil(t, third.CreatedAt)
	assert.Nil(t, third.UpdatedAt)

	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "X", *page.NextCursor)

	req, _ := env.provider.lastItemsRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "Bearer access-123", req.Header.Get("Authorization"))
	assert.Equal(t, "25", req.URL.Query().Get("limit"))
	assert.Equal(t, "cursor-1", req.URL.Query().Get("after"))
	assert.Contains(t, req.URL.Query().Get("properties"), "email")
}

func TestListItems_HubSpotLastPage(t *testing.T) {
	env := newTestEnv(t, KindHubSpot)
	env.provider.setItems(http.StatusOK, `{"results": [{"id": "1"}]}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 0, "")
	require.NoError(t, err)
	assert.Nil(t, page.NextCursor)

	req, _ := env.provider.lastItemsRequest()
	assert.Equal(t, "100", req.URL.Query().Get("limit"))
	assert.False(t, req.URL.Query().Has("after"))

	b, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"id":"1","name":null,"email":null,"phone":null,"company":null,"created_at":null,"updated_at":null}],"next_cursor":null}`, string(b))
}

func TestListItems_LimitClamp(t *testing.T) {
	env := newTestEnv(t, KindHubSpot)

	tests := []struct {
		limit int
		want  string
	}{
		{limit: -5, want: "100"},
		{limit: 0, want: "100"},
		{limit: 7, want: "7"},
		{limit: 500, want: "100"},
	}

	for _, tt := range tests {
		_, err := env.adapter.ListItems(context.Background(), testCreds, tt.limit, "")
		require.NoError(t, err)
		req, _ := env.provider.lastItemsRequest()
		assert.Equal(t, tt.want, req.URL.Query().Get("limit"), "limit %d", tt.limit)
	}
}

func TestListItems_Airtable(t *testing.T) {
	env := newTestEnv(t, KindAirtable)
	env.provider.setItems(http.StatusOK, `{
		"bases": [
			{"id": "appA", "name": "Sales", "permissionLevel": "create"},
			{"id": "appB", "name": "", "permissionLevel": "read"}
		],
		"offset": "itr123"
	}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 10, "itr000")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "appA", page.Items[0].ID)
	assert.Equal(t, "Sales", *page.Items[0].Name)
	assert.Equal(t, "appB", page.Items[1].ID)
	assert.Nil(t, page.Items[1].Name)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "itr123", *page.NextCursor)

	req, _ := env.provider.lastItemsRequest()
	assert.Equal(t, "itr000", req.URL.Query().Get("offset"))
}

func TestListItems_AirtableLastPageLargerThanLimit(t *testing.T) {
	env := newTestEnv(t, KindAirtable)
	env.provider.setItems(http.StatusOK, `{"bases":[{"id":"appA"},{"id":"appB"},{"id":"appC"}]}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor, "remaining bases must stay reachable")

	page, err = env.adapter.ListItems(context.Background(), testCreds, 2, *page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "appC", page.Items[0].ID)
	assert.Nil(t, page.NextCursor)

	req, _ := env.provider.lastItemsRequest()
	assert.False(t, req.URL.Query().Has("offset"))
}

func TestListItems_AirtablePagesThroughEveryBase(t *testing.T) {
	pages := map[string]string{
		"":         `{"bases":[{"id":"app1"},{"id":"app2"},{"id":"app3"}],"offset":"itr/app3"}`,
		"itr/app3": `{"bases":[{"id":"app4"},{"id":"app5"},{"id":"app6"},{"id":"app7"}],"offset":"itr/app7"}`,
		"itr/app7": `{"bases":[{"id":"app8"}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("offset")]
		if !ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":{"type":"INVALID_OFFSET_VALUE"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := newFakeProvider(t).config(KindAirtable)
	cfg.ItemsURL = srv.URL
	a, err := NewAdapter(cfg, store.NewMemoryStore())
	require.NoError(t, err)

	for _, limit := range []int{1, 2, 3, 5, 100} {
		t.Run(strconv.Itoa(limit), func(t *testing.T) {
			var ids []string
			cursor := ""
			for range 20 {
				page, err := a.ListItems(context.Background(), testCreds, limit, cursor)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page.Items), limit)
				for _, it := range page.Items {
					ids = append(ids, it.ID)
				}
				if page.NextCursor == nil {
					break
				}
				cursor = *page.NextCursor
			}
			assert.Equal(t, []string{"app1", "app2", "app3", "app4", "app5", "app6", "app7", "app8"}, ids)
		})
	}
}

func TestSplitAirtableCursor(t *testing.T) {
	tests := []struct {
		cursor string
		offset string
		skip   int
	}{
		{cursor: "", offset: "", skip: 0},
		{cursor: "itr/app3", offset: "itr/app3", skip: 0},
		{cursor: "itr/app3|2", offset: "itr/app3", skip: 2},
		{cursor: "|4", offset: "", skip: 4},
		{cursor: "itr|x", offset: "itr|x", skip: 0},
		{cursor: "itr|-1", offset: "itr|-1", skip: 0},
	}

	for _, tt := range tests {
		offset, skip := splitAirtableCursor(tt.cursor)
		assert.Equal(t, tt.offset, offset, tt.cursor)
		assert.Equal(t, tt.skip, skip, tt.cursor)
	}
	assert.Equal(t, "itr/app3|2", joinAirtableCursor("itr/app3", 2))
}

func TestListItems_Notion(t *testing.T) {
	env := newTestEnv(t, KindNotion)
	env.provider.setItems(http.StatusOK, `{
		"object": "list",
		"results": [
			{
				"object": "page",
				"id": "59833787-2cf9-4fdf-8782-e53db20768a5",
				"created_time": "2024-03-01T10:00:00.000Z",
				"last_edited_time": "2024-03-02T10:00:00.000Z",
				"properties": {
					"Status": {"type": "select", "select": {"name": "Done"}},
					"Name": {"type": "title", "title": [{"plain_text": "Quarterly "}, {"plain_text": "plan"}]}
				}
			},
			{
				"object": "database",
				"id": "db-1",
				"title": [{"plain_text": "Roadmap"}],
				"properties": {"Name": {"type": "title", "title": {}}}
			},
			{"object": "page", "id": "untitled", "properties": {}}
		],
		"next_cursor": "cursor-2",
		"has_more": true
	}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 10, "cursor-1")
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	assert.Equal(t, "59833787-2cf9-4fdf-8782-e53db20768a5", page.Items[0].ID)
	assert.Equal(t, "Quarterly plan", *page.Items[0].Name)
	assert.Equal(t, "2024-03-01T10:00:00.000Z", *page.Items[0].CreatedAt)
	assert.Equal(t, "2024-03-02T10:00:00.000Z", *page.Items[0].UpdatedAt)
	assert.Equal(t, "Roadmap", *page.Items[1].Name)
	assert.Nil(t, page.Items[2].Name)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "cursor-2", *page.NextCursor)

	req, payload := env.provider.lastItemsRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, defaultNotionVersion, req.Header.Get("Notion-Version"))
	assert.JSONEq(t, `{"page_size":10,"start_cursor":"cursor-1"}`, string(payload))
}

func TestListItems_NotionNoMore(t *testing.T) {
	env := newTestEnv(t, KindNotion)
	env.provider.setItems(http.StatusOK, `{"results": [], "next_cursor": null, "has_more": false}`)

	page, err := env.adapter.ListItems(context.Background(), testCreds, 0, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)

	_, payload := env.provider.lastItemsRequest()
	assert.JSONEq(t, `{"page_size":100}`, string(payload))
}

func TestListItems_ProviderError(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		status  int
		body    string
		message string
	}{
		{name: "hubspot message", kind: KindHubSpot, status: http.StatusUnauthorized, body: `{"status":"error","message":"Authentication credentials not found."}`, message: "Authentication credentials not found."},
		{name: "airtable nested error", kind: KindAirtable, status: http.StatusForbidden, body: `{"error":{"type":"INVALID_PERMISSIONS","message":"Not allowed"}}`, message: "Not allowed"},
		{name: "notion error code", kind: KindNotion, status: http.StatusBadRequest, body: `{"object":"error","code":"validation_error","message":"body failed validation"}`, message: "body failed validation"},
		{name: "plain text", kind: KindHubSpot, status: http.StatusBadGateway, body: "upstream down", message: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.kind)
			env.provider.setItems(tt.status, tt.body)

			_, err := env.adapter.ListItems(context.Background(), testCreds, 10, "")
			var apiErr *ProviderAPIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Contains(t, apiErr.Error(), env.adapter.DisplayName())
		})
	}
}

func TestListItems_DoesNotTouchStore(t *testing.T) {
	env := newTestEnv(t, KindHubSpot)

	_, err := env.adapter.ListItems(context.Background(), testCreds, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.Len())
}
