// Package dashboard serves the daemon's status page: org summary counts, the
// per-repository status table, the rendered priority report, and the strip of
// previous refresh runs. All data comes from the most recent refresh.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
	"git.home.luguber.info/inful/stagehand/internal/logfields"
	"git.home.luguber.info/inful/stagehand/internal/store"
	"git.home.luguber.info/inful/stagehand/internal/version"
)

// Server exposes the dashboard endpoints over one listen address.
type Server struct {
	addr           string
	provider       Provider
	metricsHandler http.Handler
	logger         *slog.Logger
	httpServer     *http.Server
	startTime      time.Time
}

// NewServer wires the dashboard against a data provider. metricsHandler may
// be nil, in which case /metrics responds 404.
func NewServer(addr string, provider Provider, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:           addr,
		provider:       provider,
		metricsHandler: metricsHandler,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// Handler builds the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatusPage)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	return mux
}

// Start binds the listen address and serves in the background. Binding
// happens here so startup fails fast on an occupied port.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fnderrors.DaemonError("binding dashboard listener").
			WithContext("listen", s.addr).
			Cause(err).
			Build()
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if serveErr := s.httpServer.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("dashboard server error", logfields.Error(serveErr))
		}
	}()

	s.logger.Info("dashboard server started", slog.String("listen", s.addr))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fnderrors.DaemonError("shutting down dashboard server").
			Cause(err).
			Build()
	}
	s.logger.Info("dashboard server stopped")
	return nil
}

// statusResponse is the JSON shape served on /api/status and on / when the
// client asks for JSON.
type statusResponse struct {
	Status      string                  `json:"status"` // waiting|refreshing|idle
	Version     string                  `json:"version"`
	Uptime      string                  `json:"uptime"`
	Snapshot    *Snapshot               `json:"snapshot,omitempty"`
	ActiveRun   *store.RunSummaryView   `json:"active_run,omitempty"`
	History     []*store.RunSummaryView `json:"history"`
	LastUpdated time.Time               `json:"last_updated"`
}

func (s *Server) statusResponse() statusResponse {
	resp := statusResponse{
		Status:      "waiting",
		Version:     version.Version,
		Uptime:      time.Since(s.startTime).Truncate(time.Second).String(),
		History:     s.provider.History(),
		LastUpdated: time.Now(),
	}
	if opt := s.provider.Snapshot(); opt.IsSome() {
		snap := opt.Unwrap()
		resp.Snapshot = &snap
		resp.Status = "idle"
	}
	if active := s.provider.ActiveRun(); active != nil {
		resp.ActiveRun = active
		resp.Status = "refreshing"
	}
	return resp
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	resp := s.statusResponse()

	// Clients asking for JSON get the API payload from the same route.
	if strings.Contains(r.Header.Get("Accept"), "application/json") || r.URL.Query().Get("format") == "json" {
		s.writeJSON(w, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPageTemplate.Execute(w, resp); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render status page: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.statusResponse())
}

func (s *Server) handleRuns(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.provider.History())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode status json", logfields.Error(err))
	}
}

var statusPageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Stagehand Dashboard</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 20px; background: #f5f5f5; }
        .container { max-width: 1100px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { border-bottom: 2px solid #eee; padding-bottom: 20px; margin-bottom: 30px; }
        .state { display: inline-block; padding: 4px 12px; border-radius: 20px; font-weight: bold; text-transform: uppercase; font-size: 12px; }
        .state.idle { background: #d4edda; color: #155724; }
        .state.refreshing { background: #fff3cd; color: #856404; }
        .state.waiting { background: #e2e3e5; color: #383d41; }
        .metrics { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 20px; margin: 30px 0; }
        .metric-card { background: #f8f9fa; padding: 15px; border-radius: 6px; border-left: 4px solid #007bff; }
        .metric-value { font-size: 24px; font-weight: bold; color: #007bff; }
        .metric-label { color: #666; font-size: 14px; margin-top: 4px; }
        table { width: 100%; border-collapse: collapse; margin: 10px 0 30px; }
        th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #dee2e6; font-size: 14px; }
        th { background: #f8f9fa; color: #555; }
        .chip { padding: 2px 8px; border-radius: 12px; font-size: 11px; font-weight: bold; }
        .onboarded { background: #d4edda; color: #155724; }
        .in_progress { background: #fff3cd; color: #856404; }
        .not_onboarded { background: #e2e3e5; color: #383d41; }
        .error, .failed { background: #f8d7da; color: #721c24; }
        .completed { background: #d4edda; color: #155724; }
        .running { background: #fff3cd; color: #856404; }
        .report { background: #f8f9fa; padding: 15px 20px; border-radius: 6px; border: 1px solid #dee2e6; }
        .sections { color: #666; font-size: 13px; margin-bottom: 10px; }
        .sections span { background: #e9ecef; padding: 2px 8px; margin-right: 6px; border-radius: 3px; }
        .updated { color: #666; font-size: 12px; text-align: center; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Stagehand Dashboard</h1>
            <p>
                <span class="state {{.Status}}">{{.Status}}</span>
                Version {{.Version}} &bull; Uptime: {{.Uptime}}
                {{if .Snapshot}} &bull; Organization: <strong>{{.Snapshot.Org}}</strong>{{end}}
            </p>
        </div>

        {{if .Snapshot}}
        <div class="metrics">
            <div class="metric-card">
                <div class="metric-value">{{.Snapshot.Summary.Total}}</div>
                <div class="metric-label">Repositories</div>
            </div>
            <div class="metric-card">
                <div class="metric-value">{{.Snapshot.Summary.Onboarded}}</div>
                <div class="metric-label">Onboarded</div>
            </div>
            <div class="metric-card">
                <div class="metric-value">{{.Snapshot.Summary.InProgress}}</div>
                <div class="metric-label">In Progress</div>
            </div>
            <div class="metric-card">
                <div class="metric-value">{{.Snapshot.Summary.NotOnboarded}}</div>
                <div class="metric-label">Not Onboarded</div>
            </div>
            <div class="metric-card">
                <div class="metric-value">{{.Snapshot.Candidates}}</div>
                <div class="metric-label">Report Candidates</div>
            </div>
        </div>

        <h2>Repositories</h2>
        <table>
            <tr><th>Name</th><th>Status</th><th>PR</th><th>Error</th></tr>
            {{range .Snapshot.Summary.Details}}
            <tr>
                <td>{{.Name}}</td>
                <td><span class="chip {{.Status}}">{{.Status}}</span></td>
                <td>{{if .PRNumber}}#{{.PRNumber}}{{end}}</td>
                <td style="color:#dc3545">{{.Err}}</td>
            </tr>
            {{end}}
        </table>

        <h2>Priority Report</h2>
        <div class="report">
            {{if .Snapshot.ReportSections}}
            <div class="sections">{{range .Snapshot.ReportSections}}<span>{{.}}</span>{{end}}</div>
            {{end}}
            {{.Snapshot.ReportHTML}}
        </div>
        {{else}}
        <p>No refresh has completed yet. The first run populates this page.</p>
        {{end}}

        {{if .History}}
        <h2>Previous Runs</h2>
        <table>
            <tr><th>Run</th><th>Trigger</th><th>Status</th><th>Onboarded</th><th>Total</th><th>Duration</th><th>Started</th></tr>
            {{range .History}}
            <tr>
                <td>{{printf "%.8s" .RunID}}</td>
                <td>{{.Trigger}}</td>
                <td><span class="chip {{.Status}}">{{.Status}}</span></td>
                <td>{{.Onboarded}}</td>
                <td>{{.Total}}</td>
                <td>{{.Duration}}ms</td>
                <td>{{.StartedAt.Format "2006-01-02 15:04:05"}}</td>
            </tr>
            {{end}}
        </table>
        {{end}}

        <div class="updated">Last updated: {{.LastUpdated.UTC.Format "2006-01-02 15:04:05 UTC"}}</div>
    </div>
</body>
</html>`))
