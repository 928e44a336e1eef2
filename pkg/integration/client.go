package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 4 << 10

// do sends req with the bearer token and decodes a 2xx JSON body into out.
func (a *Adapter) do(req *http.Request, token string, out any) error {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", a.cfg.displayName(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response body: %w", a.cfg.displayName(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderAPIError{
			Provider:   a.cfg.displayName(),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", a.cfg.displayName(), err)
	}
	return nil
}

// errorMessage extracts "message" or "error.message" from a provider error
// body and falls back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		var nested struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil {
			if nested.Message != "" {
				return nested.Message
			}
			if nested.Type != "" {
				return nested.Type
			}
		}
		var flat string
		if json.Unmarshal(payload.Error, &flat) == nil && flat != "" {
			return flat
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}
