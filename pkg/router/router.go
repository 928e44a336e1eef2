// Package router exposes the registered integrations over HTTP.
package router

import (
	"net/http"

	"github.com/go-training/integration-relay/pkg/integration"

	"github.com/gin-gonic/gin"
)

// Options configures the HTTP surface.
type Options struct {
	Registry *integration.Registry
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
	// MCP, when set, is served on /mcp.
	MCP http.Handler
}

// New builds the gin engine.
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(), corsMiddleware(opts.CORSOrigins))

	h := &handler{registry: opts.Registry}
	r.GET("/", h.ping)

	g := r.Group("/integrations")
	g.GET("", h.list)
	g.POST("/:provider/authorize", h.authorize)
	g.GET("/:provider/oauth2callback", h.callback)
	g.POST("/:provider/credentials", h.credentials)
	g.POST("/:provider/load", h.load)
	g.POST("/:provider/disconnect", h.disconnect)

	// Older frontends call /integrations/hubspot/get_hubspot_items.
	for _, name := range opts.Registry.Names() {
		g.POST("/"+name+"/get_"+name+"_items", fixedProvider(name), h.load)
	}

	if opts.MCP != nil {
		for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
			r.Handle(method, "/mcp", gin.WrapH(opts.MCP))
		}
	}

	return r
}
