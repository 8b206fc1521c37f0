package httptransport

import (
	"context"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leadconnect/internal/enrich"
	derrors "leadconnect/pkg/domain-errors"
	"leadconnect/pkg/platform/httputil"
	"leadconnect/pkg/platform/middleware/metadata"
)

// redirectPage fires the tracking beacon from the visitor's browser and
// then forwards to the destination. The browser id lives in localStorage
// so repeat visits reuse the same device identity.
var redirectPage = template.Must(template.New("redirect").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Redirecting…</title></head>
<body>
<script>
(function () {
  var key = "lc_browser_id";
  var id = localStorage.getItem(key);
  if (!id) {
    id = crypto.randomUUID();
    localStorage.setItem(key, id);
  }
  fetch("/trackpage", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({slug: {{.Slug}}, browser_id: id})
  }).finally(function () {
    window.location.replace({{.RedirectTo}});
  });
})();
</script>
<noscript><meta http-equiv="refresh" content="0;url={{.RedirectTo}}"></noscript>
</body>
</html>
`))

// handleRedirect serves the tracking page for a shortcode. The page itself
// reports the visit via /trackpage before redirecting.
func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "shortcode")

	page, err := h.shortlinks.Resolve(ctx, slug)
	if err != nil {
		if !derrors.HasCode(err, derrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "shortcode resolution failed", "slug", slug, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := redirectPage.Execute(w, page); err != nil {
		h.logger.ErrorContext(ctx, "render redirect page failed", "slug", slug, "error", err)
	}
}

type trackPageRequest struct {
	Slug      string `json:"slug"`
	BrowserID string `json:"browser_id"`
}

// handleTrackPage acknowledges the beacon immediately and processes the
// page view in the background so the visitor's redirect never waits on
// persistence or geo lookups.
func (h *Handler) handleTrackPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req trackPageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Slug == "" || req.BrowserID == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeValidation, "slug and browser_id are required"))
		return
	}

	// Detach from the request so client disconnects don't cancel the
	// write, but keep the metadata values.
	bgCtx := context.WithoutCancel(ctx)
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		h.processTrackPage(bgCtx, req)
	}()

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) processTrackPage(ctx context.Context, req trackPageRequest) {
	ip := metadata.GetClientIP(ctx)
	userAgent := metadata.GetUserAgent(ctx)

	payload := map[string]any{
		"shortcode":  req.Slug,
		"browser_id": req.BrowserID,
		"ip":         ip,
		"user_agent": userAgent,
	}

	if device := enrich.ParseUserAgent(userAgent); device != (enrich.Device{}) {
		payload["device"] = map[string]any{
			"browser":         device.Browser,
			"browser_version": device.BrowserVersion,
			"os":              device.OS,
			"mobile":          device.Mobile,
			"bot":             device.Bot,
		}
	}

	if h.geo != nil {
		geo, err := h.geo.Lookup(ctx, ip)
		if err != nil {
			h.logger.WarnContext(ctx, "geo lookup failed", "ip", ip, "error", err)
		} else if geo != nil {
			payload["geo"] = map[string]any{
				"country": geo.Country,
				"region":  geo.Region,
				"city":    geo.City,
			}
		}
	}

	if _, err := h.identity.TrackPage(ctx, payload); err != nil {
		h.logger.ErrorContext(ctx, "trackpage processing failed",
			"slug", req.Slug, "browser_id", req.BrowserID, "error", err)
	}
}

type trackRequest struct {
	BrowserID string `json:"browser_id"`
}

// handleTrack is the bare beacon: it registers the device anchor without
// recording a page view. Clients that cannot persist an id themselves get
// a server-minted one back.
func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req trackRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.BrowserID == "" {
		req.BrowserID = uuid.NewString()
	}

	browser, err := h.identity.EnsureBrowser(ctx, req.BrowserID, metadata.GetUserAgent(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "track beacon failed", "browser_id", req.BrowserID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"lead_id":    browser.LeadID,
		"browser_id": browser.DeviceID,
	})
}
