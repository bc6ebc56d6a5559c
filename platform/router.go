package platform

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danpasecinic/nest"
)

type healthResponse struct {
	Status  string             `json:"status"`
	Error   string             `json:"error,omitempty"`
	Reports []healthReportJSON `json:"reports,omitempty"`
}

type healthReportJSON struct {
	Name    string `json:"name"`
	Scope   string `json:"scope"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// NewRouter serves the operational endpoints of h:
//
//	GET /health   liveness of every HealthChecker, per component
//	GET /ready    503 until the hierarchy is up and every ReadinessChecker passes
//	GET /scopes   the scope tree as JSON
//	GET /metrics  Prometheus exposition of gatherer
func NewRouter(h *nest.Hierarchy, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		resp := healthResponse{Status: string(nest.HealthStatusUp)}
		code := http.StatusOK

		for _, rep := range h.Health(req.Context()) {
			j := healthReportJSON{
				Name:    rep.Name,
				Scope:   rep.Scope,
				Status:  string(rep.Status),
				Latency: rep.Latency.String(),
			}
			if rep.Error != nil {
				j.Error = rep.Error.Error()
				resp.Status = string(nest.HealthStatusDown)
				code = http.StatusServiceUnavailable
			}
			resp.Reports = append(resp.Reports, j)
		}
		writeJSON(w, code, resp)
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := h.Ready(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status: string(nest.HealthStatusDown),
				Error:  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: string(nest.HealthStatusUp)})
	})

	r.Get("/scopes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, h.Tree())
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
