package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/service"
	"github.com/maplepay/maplepay-backend/pkg/actor"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/httputil"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/tenant"
	"github.com/shopspring/decimal"
)

// PayrollHandler exposes the payroll run lifecycle over HTTP
type PayrollHandler struct {
	service *service.PayrollService
	log     *logger.Logger
}

// NewPayrollHandler creates a payroll handler
func NewPayrollHandler(svc *service.PayrollService, log *logger.Logger) *PayrollHandler {
	return &PayrollHandler{
		service: svc,
		log:     log.WithComponent("payroll_handler"),
	}
}

// RegisterRoutes mounts the payroll run endpoints
func (h *PayrollHandler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll/runs", func(r chi.Router) {
		r.Post("/", h.StartRun)
		r.Get("/{runID}", h.GetRun)
		r.Post("/{runID}/adjust", h.AdjustRun)
		r.Post("/{runID}/commit", h.CommitRun)
		r.Post("/{runID}/discard", h.DiscardRun)
		r.Get("/{runID}/variance", h.Variance)
		r.Get("/{runID}/bank-file", h.BankFile)
	})
	r.Get("/payroll/history", h.History)
}

type startRunRequest struct {
	PayPeriod   string   `json:"pay_period" validate:"required"`
	EmployeeIDs []string `json:"employee_ids"`
}

// StartRun calculates a new payroll run and returns the preview
func (h *PayrollHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	var req startRunRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	status, err := h.service.StartRun(r.Context(), tenantID, req.PayPeriod, req.EmployeeIDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, status)
}

// GetRun returns the state, progress and preview of an active run
func (h *PayrollHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	status, err := h.service.GetRun(r.Context(), tenantID, chi.URLParam(r, "runID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, status)
}

type adjustRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Kind       string `json:"kind" validate:"required,oneof=bonus vacation_payout"`
	Amount     string `json:"amount" validate:"required"`
}

// AdjustRun applies a bonus or vacation payout to one employee's
// previewed paystub and returns the recalculated paystub.
func (h *PayrollHandler) AdjustRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	var req adjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.Error(w, errors.ValidationMessage("amount must be a decimal number"))
		return
	}

	stub, err := h.service.AdjustRun(r.Context(), tenantID, chi.URLParam(r, "runID"), req.EmployeeID, domain.Adjustment{
		Kind:   domain.AdjustmentKind(req.Kind),
		Amount: amount,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stub)
}

// CommitRun finalizes a previewed run
func (h *PayrollHandler) CommitRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	committedBy := ""
	if a := actor.FromContext(r.Context()); a != nil {
		committedBy = a.String()
	}

	result, err := h.service.CommitRun(r.Context(), tenantID, chi.URLParam(r, "runID"), committedBy)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// DiscardRun abandons a previewed run
func (h *PayrollHandler) DiscardRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	if err := h.service.DiscardRun(r.Context(), tenantID, chi.URLParam(r, "runID")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Variance compares the run against the previous committed run
func (h *PayrollHandler) Variance(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	variance, err := h.service.Variance(r.Context(), tenantID, chi.URLParam(r, "runID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, variance)
}

// BankFile streams the direct deposit file for a committed run
func (h *PayrollHandler) BankFile(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	valueDate := time.Now()
	if raw := r.URL.Query().Get("value_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.Error(w, errors.ValidationMessage("value_date must be YYYY-MM-DD"))
			return
		}
		valueDate = parsed
	}

	file, err := h.service.BankFile(r.Context(), tenantID, chi.URLParam(r, "runID"), valueDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="direct-deposit.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(file))
}

// History lists committed runs, most recent first
func (h *PayrollHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenant.TenantID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing tenant context"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.Error(w, errors.ValidationMessage("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	history, err := h.service.History(r.Context(), tenantID, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, history)
}
