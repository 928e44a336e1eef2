package integration

import "time"

// AuthorizationRequest is the payload carried in the OAuth state parameter.
// The same JSON is kept in the store until the callback consumes it.
type AuthorizationRequest struct {
	Nonce  string `json:"nonce"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

// Credentials is the token bundle handed to the frontend once.
type Credentials struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresIn    int64          `json:"expires_in,omitempty"`
	Expiry       time.Time      `json:"expiry,omitzero"`
	Scope        string         `json:"scope,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// IntegrationItem is one provider record in normalized form.
// Only ID is guaranteed; the rest are null when the provider has no value.
type IntegrationItem struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// ItemPage is one page of normalized items. NextCursor is nil on the last page.
type ItemPage struct {
	Items      []IntegrationItem `json:"items"`
	NextCursor *string           `json:"next_cursor"`
}

// CallbackParams are the query parameters the provider redirects back with.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// optional turns an empty string into a null field.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
