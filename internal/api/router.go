package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/djvirus9/secops-dashboard/internal/ingest"
	"github.com/djvirus9/secops-dashboard/internal/notifications"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
	"github.com/djvirus9/secops-dashboard/internal/store"
	"github.com/djvirus9/secops-dashboard/internal/triage"
	"github.com/djvirus9/secops-dashboard/internal/websocket"
)

// Router wires all HTTP endpoints.
type Router struct {
	mux     *http.ServeMux
	store   *store.Store
	hub     *websocket.Hub
	started time.Time
	version string
}

// Deps carries everything the router needs.
type Deps struct {
	Store      *store.Store
	Registry   *parsers.Registry
	Ingest     *ingest.Service
	Triage     *triage.Service
	Dispatcher *notifications.Dispatcher
	Slack      *notifications.SlackNotifier
	Hub        *websocket.Hub
	Version    string
}

func NewRouter(deps Deps) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		store:   deps.Store,
		hub:     deps.Hub,
		started: time.Now(),
		version: deps.Version,
	}

	ingestHandlers := NewIngestHandlers(deps.Ingest, deps.Registry)
	findingHandlers := NewFindingHandlers(deps.Store, deps.Triage)
	assetHandlers := NewAssetHandlers(deps.Store)
	riskHandlers := NewRiskHandlers(deps.Store)
	integrationHandlers := NewIntegrationHandlers(deps.Dispatcher, deps.Slack)

	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/signal", ingestHandlers.HandleSignal)
	r.mux.HandleFunc("/api/import", ingestHandlers.HandleImport)
	r.mux.HandleFunc("/api/parsers", ingestHandlers.HandleParsers)

	r.mux.HandleFunc("/api/findings", findingHandlers.HandleFindings)
	r.mux.HandleFunc("/api/findings/", findingHandlers.HandleFinding)

	r.mux.HandleFunc("/api/assets", assetHandlers.HandleAssets)
	r.mux.HandleFunc("/api/assets/upsert", assetHandlers.HandleUpsert)

	r.mux.HandleFunc("/api/risks", riskHandlers.HandleSummary)
	r.mux.HandleFunc("/api/risks/assets", riskHandlers.HandleAssets)

	r.mux.HandleFunc("/api/integrations", integrationHandlers.HandleStatus)
	r.mux.HandleFunc("/api/integrations/slack/test", integrationHandlers.HandleSlackTest)

	if deps.Hub != nil {
		r.mux.HandleFunc("/ws", deps.Hub.HandleWebSocket)
	}
	r.mux.Handle("/metrics", promhttp.Handler())

	return r
}

// Handler returns the full middleware-wrapped handler chain.
func (r *Router) Handler() http.Handler {
	return ErrorHandler(r.mux)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
	Clients int    `json:"ws_clients"`
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	resp := healthResponse{
		Status:  "healthy",
		Version: r.version,
		Uptime:  int64(time.Since(r.started).Seconds()),
	}
	if r.hub != nil {
		resp.Clients = r.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}
