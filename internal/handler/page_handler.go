package handler

import (
	"net/http"
	"time"

	"github.com/fakhrymubarak/city-weather/internal/config"
	"github.com/fakhrymubarak/city-weather/internal/middleware"
	"github.com/fakhrymubarak/city-weather/internal/view"
)

// PageHandler serves the search page. Each request gets a fresh view, so
// nothing is shared between visitors.
type PageHandler struct {
	client  *view.Client
	loc     *time.Location
	proxies *middleware.ProxyTrust
}

// NewPageHandler builds the page handler. proxies decides whether the
// visitor's own X-Forwarded-For is believed; nil means never.
func NewPageHandler(client *view.Client, loc *time.Location, proxies *middleware.ProxyTrust) *PageHandler {
	return &PageHandler{client: client, loc: loc, proxies: proxies}
}

// HandlePage serves GET /. Submitting the form sends ?city=<name>.
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	// Forward the visitor's address so rate limits apply to them, not to us.
	client := h.client.WithHeader("X-Forwarded-For", h.proxies.ClientIP(r))
	v := view.NewSearchView(client, view.WithLocation(h.loc))

	query := r.URL.Query()
	if query.Has("city") {
		v.SetCity(query.Get("city"))
		v.Search(r.Context())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := v.Render(w); err != nil {
		config.GetLogger().Errorw("Rendering search page failed", "error", err)
	}
}
