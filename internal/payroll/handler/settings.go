package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/service"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/httputil"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/tenant"
)

// SettingsHandler exposes company settings over HTTP
type SettingsHandler struct {
	service *service.PayrollService
	log     *logger.Logger
}

// NewSettingsHandler creates a settings handler
func NewSettingsHandler(svc *service.PayrollService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: svc,
		log:     log.WithComponent("settings_handler"),
	}
}

// RegisterRoutes mounts the settings endpoints
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll/settings", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Put("/", h.SaveSettings)
	})
}

// GetSettings returns the latest settings snapshot for the tenant
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	settings, err := h.service.GetSettings(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, settings)
}

// SaveSettings writes a new settings version. The request body carries
// the full snapshot with the version the client last read; a stale
// version is rejected with a conflict.
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	var settings domain.CompanySettings
	if err := httputil.DecodeJSON(r, &settings); err != nil {
		httputil.Error(w, err)
		return
	}
	settings.TenantID = tenantID

	if !settings.Schedule.Frequency.Valid() {
		httputil.Error(w, errors.ValidationMessage("schedule frequency must be one of weekly, bi_weekly, semi_monthly, monthly"))
		return
	}
	if settings.VacationPolicy.Method != domain.VacationAccrue &&
		settings.VacationPolicy.Method != domain.VacationPayout {
		httputil.Error(w, errors.ValidationMessage("vacation policy method must be accrue or payout"))
		return
	}

	saved, err := h.service.SaveSettings(r.Context(), &settings)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, saved)
}
