package integration

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const nonceBytes = 32

// Store key purposes.
const (
	purposeState       = "state"
	purposeVerifier    = "verifier"
	purposeCredentials = "credentials"
)

// Key builds the store key for one flow artifact, e.g. "hubspot_state:org-1:user-1".
func Key(provider, purpose, orgID, userID string) string {
	return fmt.Sprintf("%s_%s:%s:%s", provider, purpose, orgID, userID)
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// encodeState returns the state query value and the JSON stored under the state key.
func encodeState(req AuthorizationRequest) (state string, raw string, err error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("marshal state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), string(b), nil
}

// decodeState accepts padded and unpadded base64url.
func decodeState(state string) (*AuthorizationRequest, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(state, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	var req AuthorizationRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if req.Nonce == "" || req.UserID == "" || req.OrgID == "" {
		return nil, fmt.Errorf("%w: incomplete payload", ErrInvalidState)
	}
	return &req, nil
}
