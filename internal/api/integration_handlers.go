package api

import (
	"net/http"

	"github.com/djvirus9/secops-dashboard/internal/notifications"
)

// IntegrationHandlers reports and exercises the notification channels.
type IntegrationHandlers struct {
	dispatcher *notifications.Dispatcher
	slack      *notifications.SlackNotifier
}

func NewIntegrationHandlers(d *notifications.Dispatcher, s *notifications.SlackNotifier) *IntegrationHandlers {
	return &IntegrationHandlers{dispatcher: d, slack: s}
}

// HandleStatus reports which channels are configured.
func (h *IntegrationHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	status := notifications.Status{}
	if h.dispatcher != nil {
		status = h.dispatcher.Status()
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleSlackTest sends a test message through the configured webhook.
func (h *IntegrationHandlers) HandleSlackTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	if h.slack == nil {
		writeErrorResponse(w, http.StatusBadRequest, "validation", "Slack webhook is not configured", nil)
		return
	}
	if err := h.slack.Test(r.Context()); err != nil {
		writeErrorResponse(w, http.StatusBadGateway, "upstream_error", "Slack test message failed: "+err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
