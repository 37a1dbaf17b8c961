package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const corsMaxAge = 24 * 60 * 60

// cors answers cross-origin requests so a control UI served elsewhere can
// drive the API. Origins is "*" or an explicit allow list.
type cors struct {
	origins []string
	static  http.Header
}

func newCORS(origins []string) *cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	static := http.Header{}
	static.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	static.Set("Access-Control-Allow-Headers", strings.Join([]string{
		"Accept", "Authorization", "Content-Type", "Last-Event-ID", "Origin", RequestIDHeader,
	}, ", "))
	static.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
	return &cors{origins: origins, static: static}
}

// allowOrigin returns the Allow-Origin value for a request origin, or "" to send none.
func (c *cors) allowOrigin(origin string) string {
	if slices.Contains(c.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func (c *cors) apply(set func(key, value string), origin string) {
	allowed := c.allowOrigin(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		set("Vary", "Origin")
	}
	for k, v := range c.static {
		set(k, v[0])
	}
}

// middleware decorates huma responses and short-circuits OPTIONS.
func (c *cors) middleware(ctx huma.Context, next func(huma.Context)) {
	c.apply(ctx.SetHeader, ctx.Header("Origin"))
	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// preflight answers OPTIONS for every path; the mux routes those before huma sees them.
func (c *cors) preflight(w http.ResponseWriter, r *http.Request) {
	c.apply(w.Header().Set, r.Header.Get("Origin"))
	w.WriteHeader(http.StatusNoContent)
}
