package handlers

import (
	"net/http"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/usecases"
	"github.com/architeacher/devicely/internal/usecases/queries"
	"github.com/go-chi/chi/v5"
)

const (
	HealthPath    = "/health"
	LivenessPath  = "/liveness"
	ReadinessPath = "/readiness"
)

type HealthHandler struct {
	app *usecases.Application
}

func NewHealthHandler(app *usecases.Application) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Routes(r chi.Router) {
	r.Get(HealthPath, h.Health)
	r.Get(LivenessPath, h.Liveness)
	r.Get(ReadinessPath, h.Readiness)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchLiveness.Execute(r.Context(), queries.FetchLivenessQuery{})
	if err != nil {
		shared.WriteError(w, http.StatusServiceUnavailable, shared.CodeServiceUnavailable, err.Error())

		return
	}

	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchReadiness.Execute(r.Context(), queries.FetchReadinessQuery{})
	if err != nil {
		shared.WriteError(w, http.StatusServiceUnavailable, shared.CodeServiceUnavailable, err.Error())

		return
	}

	shared.WriteJSON(w, statusFor(report.Status), report)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchHealthReport.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		shared.WriteError(w, http.StatusServiceUnavailable, shared.CodeServiceUnavailable, err.Error())

		return
	}

	shared.WriteJSON(w, statusFor(report.Status), report)
}

func statusFor(status model.HealthStatus) int {
	if status == model.HealthStatusOK {
		return http.StatusOK
	}

	return http.StatusServiceUnavailable
}
