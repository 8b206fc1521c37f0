package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	derrors "leadconnect/pkg/domain-errors"
	"leadconnect/pkg/platform/httputil"
)

// handleWorkflow receives a claim-based webhook. Unlike trackpage beacons,
// webhooks are processed synchronously so the caller sees real failures
// and can retry.
func (h *Handler) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := chi.URLParam(r, "*")

	wf, err := h.workflows.ByWebhookPath(ctx, path)
	if err != nil {
		if !derrors.HasCode(err, derrors.CodeNotFound) && !derrors.HasCode(err, derrors.CodeValidation) {
			h.logger.ErrorContext(ctx, "workflow lookup failed", "webhook_path", path, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	var payload map[string]any
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.identity.ProcessWorkflow(ctx, wf.EventSchemaID, payload)
	if err != nil {
		if derrors.HasCode(err, derrors.CodeValidation) || derrors.HasCode(err, derrors.CodeSchemaNotFound) {
			h.logger.WarnContext(ctx, "workflow event rejected",
				"webhook_path", path, "workflow", wf.Name, "error", err)
		} else {
			h.logger.ErrorContext(ctx, "workflow event processing failed",
				"webhook_path", path, "workflow", wf.Name, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"event_id": event.ID,
		"lead_id":  event.LeadID,
	})
}
