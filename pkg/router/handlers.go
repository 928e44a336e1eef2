package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-training/integration-relay/pkg/integration"

	"github.com/gin-gonic/gin"
)

const providerKey = "provider"

// closeWindowHTML ends the OAuth popup once credentials are stored.
const closeWindowHTML = `<html>
    <script>
        window.close();
    </script>
</html>
`

type handler struct {
	registry *integration.Registry
}

// adapter resolves the provider from the route parameter or a fixed alias.
func (h *handler) adapter(c *gin.Context) (*integration.Adapter, bool) {
	name := c.Param(providerKey)
	if name == "" {
		name = c.GetString(providerKey)
	}
	a, err := h.registry.Get(name)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return a, true
}

// fixedProvider pins the provider for alias routes that have no :provider segment.
func fixedProvider(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(providerKey, name)
		c.Next()
	}
}

func (h *handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Ping": "Pong"})
}

func (h *handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.registry.Names()})
}

func (h *handler) authorize(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}

	authURL, err := a.Authorize(c.Request.Context(), c.PostForm("user_id"), c.PostForm("org_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorization_url": authURL})
}

func (h *handler) callback(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}

	_, err := a.Callback(c.Request.Context(), integration.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(closeWindowHTML))
}

func (h *handler) credentials(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}

	creds, err := a.Credentials(c.Request.Context(), c.PostForm("user_id"), c.PostForm("org_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

func (h *handler) load(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}

	creds, err := parseCredentials(c.PostForm("credentials"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.PostForm("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, errInvalidLimit)
			return
		}
	}

	cursor := c.PostForm("cursor")
	if cursor == "" {
		cursor = c.PostForm("after")
	}

	page, err := a.ListItems(c.Request.Context(), creds, limit, cursor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) disconnect(c *gin.Context) {
	a, ok := h.adapter(c)
	if !ok {
		return
	}

	if err := a.Disconnect(c.Request.Context(), c.PostForm("user_id"), c.PostForm("org_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Disconnected from %s successfully.", a.DisplayName())})
}

// parseCredentials decodes the credentials form field. An empty field yields
// nil so the adapter reports the missing token.
func parseCredentials(raw string) (*integration.Credentials, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var creds integration.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidCredentials, err)
	}
	return &creds, nil
}
