package integration

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// airtableSkipSep separates Airtable's offset from the number of bases of
// that page already returned. Airtable offsets never contain it.
const airtableSkipSep = "|"

type airtablePage struct {
	Bases []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"bases"`
	Offset string `json:"offset"`
}

// splitAirtableCursor parses "offset" or "offset|skip".
func splitAirtableCursor(cursor string) (offset string, skip int) {
	i := strings.LastIndex(cursor, airtableSkipSep)
	if i < 0 {
		return cursor, 0
	}
	n, err := strconv.Atoi(cursor[i+1:])
	if err != nil || n < 0 {
		return cursor, 0
	}
	return cursor[:i], n
}

func joinAirtableCursor(offset string, skip int) string {
	return offset + airtableSkipSep + strconv.Itoa(skip)
}

// listAirtable lists the bases visible to the token. The meta API has no
// page size parameter, so a page larger than limit is served in slices: the
// returned cursor points back into the same provider page until it is used up.
func (a *Adapter) listAirtable(ctx context.Context, token string, limit int, cursor string) (*ItemPage, error) {
	offset, skip := splitAirtableCursor(cursor)

	u, err := url.Parse(a.cfg.ItemsURL)
	if err != nil {
		return nil, err
	}
	if offset != "" {
		q := u.Query()
		q.Set("offset", offset)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var resp airtablePage
	if err := a.do(req, token, &resp); err != nil {
		return nil, err
	}

	bases := resp.Bases[min(skip, len(resp.Bases)):]
	next := resp.Offset
	if len(bases) > limit {
		bases = bases[:limit]
		next = joinAirtableCursor(offset, skip+limit)
	}

	page := &ItemPage{
		Items:      make([]IntegrationItem, 0, len(bases)),
		NextCursor: optional(next),
	}
	for _, b := range bases {
		page.Items = append(page.Items, IntegrationItem{ID: b.ID, Name: optional(b.Name)})
	}
	return page, nil
}
