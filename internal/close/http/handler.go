package closehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/internal/platform/httpx"
	"github.com/odyssey-erp/periodclose/internal/shared"
)

const dateLayout = "2006-01-02"

type closeService interface {
	CreatePeriod(ctx context.Context, in close.CreatePeriodInput) (close.Period, error)
	GetPeriod(ctx context.Context, company, name string) (close.Period, error)
	ListPeriods(ctx context.Context, filter close.PeriodFilter) ([]close.Period, error)
	ValidatePeriod(ctx context.Context, company, name string) (close.ValidationReport, error)
	ClosePeriod(ctx context.Context, in close.ClosePeriodInput) (close.Period, error)
	ReopenPeriod(ctx context.Context, in close.ReopenPeriodInput) (close.Period, error)
	PermanentlyClosePeriod(ctx context.Context, in close.PermanentCloseInput) (close.Period, error)
	RecordTransactionModified(ctx context.Context, in close.TransactionModifiedInput) (close.Log, error)
	GetClosingSummary(ctx context.Context, company, name string) (close.ClosingSummary, error)
	PreviewClosing(ctx context.Context, company, name string) (close.ClosingPreview, error)
	GenerateMonthlyPeriods(ctx context.Context, in close.GenerateMonthlyInput) (close.GeneratedPeriods, error)
	ListAuditLog(ctx context.Context, filter close.AuditFilter) ([]close.Log, int, error)
	Config(ctx context.Context, company string) (close.Config, error)
	UpdateConfig(ctx context.Context, company string, patch close.ConfigPatch) (close.Config, error)
	CheckPosting(ctx context.Context, in close.PostingCheck) (close.PostingDecision, error)
}

// Handler wires JSON endpoints for the accounting period lifecycle.
type Handler struct {
	logger  *slog.Logger
	service closeService
}

// NewHandler constructs a close HTTP handler.
func NewHandler(logger *slog.Logger, service closeService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.listPeriods)
		r.Post("/", h.createPeriod)
		r.Post("/generate-monthly", h.generateMonthly)
		r.Route("/{company}/{name}", func(r chi.Router) {
			r.Get("/", h.getPeriod)
			r.Get("/validation", h.validatePeriod)
			r.Get("/summary", h.closingSummary)
			r.Get("/closing-preview", h.closingPreview)
			r.Post("/close", h.closePeriod)
			r.Post("/reopen", h.reopenPeriod)
			r.Post("/permanent-close", h.permanentlyClose)
			r.Post("/transaction-modified", h.transactionModified)
		})
	})
	r.Get("/audit", h.listAudit)
	r.Route("/config/{company}", func(r chi.Router) {
		r.Get("/", h.getConfig)
		r.Patch("/", h.updateConfig)
	})
	r.Post("/postings/check", h.checkPosting)
}

type listResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := close.PeriodFilter{
		Company:    strings.TrimSpace(q.Get("company")),
		Status:     close.PeriodStatus(strings.TrimSpace(q.Get("status"))),
		FiscalYear: strings.TrimSpace(q.Get("fiscal_year")),
		Limit:      limit,
		Offset:     offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.RespondError(w, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, filter.Status))
		return
	}
	periods, err := h.service.ListPeriods(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "list periods", err)
		return
	}
	if periods == nil {
		periods = []close.Period{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[close.Period]{Data: periods})
}

type createPeriodRequest struct {
	PeriodName string           `json:"period_name"`
	Company    string           `json:"company"`
	StartDate  string           `json:"start_date"`
	EndDate    string           `json:"end_date"`
	PeriodType close.PeriodType `json:"period_type"`
	FiscalYear string           `json:"fiscal_year"`
	Remarks    string           `json:"remarks"`
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := close.CreatePeriodInput{
		PeriodName: req.PeriodName,
		Company:    req.Company,
		PeriodType: req.PeriodType,
		FiscalYear: req.FiscalYear,
		Remarks:    req.Remarks,
	}
	var fields []close.FieldError
	var err error
	if in.StartDate, err = parseDate(req.StartDate); err != nil {
		fields = append(fields, close.FieldError{Field: "start_date", Rule: "date", Message: "must be YYYY-MM-DD"})
	}
	if in.EndDate, err = parseDate(req.EndDate); err != nil {
		fields = append(fields, close.FieldError{Field: "end_date", Rule: "date", Message: "must be YYYY-MM-DD"})
	}
	if len(fields) > 0 {
		httpx.RespondError(w, &close.InputError{Fields: fields})
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "create period", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

type generateMonthlyRequest struct {
	Company       string `json:"company"`
	FiscalYear    string `json:"fiscal_year"`
	YearStartDate string `json:"year_start_date"`
	YearEndDate   string `json:"year_end_date"`
}

type generateMonthlyResponse struct {
	close.GeneratedPeriods
	Summary generateSummary `json:"summary"`
}

type generateSummary struct {
	TotalCreated int `json:"total_created"`
	TotalSkipped int `json:"total_skipped"`
	TotalErrors  int `json:"total_errors"`
}

func (h *Handler) generateMonthly(w http.ResponseWriter, r *http.Request) {
	var req generateMonthlyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := close.GenerateMonthlyInput{Company: req.Company, FiscalYear: req.FiscalYear}
	var fields []close.FieldError
	var err error
	if in.YearStart, err = dateOrZero(req.YearStartDate); err != nil {
		fields = append(fields, close.FieldError{Field: "year_start_date", Rule: "date", Message: "must be YYYY-MM-DD"})
	}
	if in.YearEnd, err = dateOrZero(req.YearEndDate); err != nil {
		fields = append(fields, close.FieldError{Field: "year_end_date", Rule: "date", Message: "must be YYYY-MM-DD"})
	}
	if len(fields) > 0 {
		httpx.RespondError(w, &close.InputError{Fields: fields})
		return
	}
	out, err := h.service.GenerateMonthlyPeriods(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "generate monthly periods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, generateMonthlyResponse{
		GeneratedPeriods: out,
		Summary: generateSummary{
			TotalCreated: len(out.Created),
			TotalSkipped: len(out.Skipped),
			TotalErrors:  len(out.Errors),
		},
	})
}

func (h *Handler) getPeriod(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	period, err := h.service.GetPeriod(r.Context(), company, name)
	if err != nil {
		h.respondError(w, r, "get period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) validatePeriod(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	report, err := h.service.ValidatePeriod(r.Context(), company, name)
	if err != nil {
		h.respondError(w, r, "validate period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) closingSummary(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetClosingSummary(r.Context(), company, name)
	if err != nil {
		h.respondError(w, r, "closing summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) closingPreview(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	preview, err := h.service.PreviewClosing(r.Context(), company, name)
	if err != nil {
		h.respondError(w, r, "closing preview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

type closeRequest struct {
	Force bool `json:"force"`
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	period, err := h.service.ClosePeriod(r.Context(), close.ClosePeriodInput{Name: name, Company: company, Force: req.Force})
	if err != nil {
		h.respondError(w, r, "close period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

type reopenRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	var req reopenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.ReopenPeriod(r.Context(), close.ReopenPeriodInput{Name: name, Company: company, Reason: req.Reason})
	if err != nil {
		h.respondError(w, r, "reopen period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

type permanentCloseRequest struct {
	Confirmation string `json:"confirmation"`
}

func (h *Handler) permanentlyClose(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	var req permanentCloseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.PermanentlyClosePeriod(r.Context(), close.PermanentCloseInput{Name: name, Company: company, Confirmation: req.Confirmation})
	if err != nil {
		h.respondError(w, r, "permanently close period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

type transactionModifiedRequest struct {
	AffectedTransaction string `json:"affected_transaction"`
	TransactionDoctype  string `json:"transaction_doctype"`
	Actor               string `json:"actor"`
	Reason              string `json:"reason"`
}

func (h *Handler) transactionModified(w http.ResponseWriter, r *http.Request) {
	company, name, ok := periodKey(w, r)
	if !ok {
		return
	}
	var req transactionModifiedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	log, err := h.service.RecordTransactionModified(r.Context(), close.TransactionModifiedInput{
		Name:                name,
		Company:             company,
		AffectedTransaction: req.AffectedTransaction,
		TransactionDoctype:  req.TransactionDoctype,
		Actor:               req.Actor,
		Reason:              req.Reason,
	})
	if err != nil {
		h.respondError(w, r, "record transaction modified", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, log)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pageParams(q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := close.AuditFilter{
		Period:     strings.TrimSpace(q.Get("period")),
		Company:    strings.TrimSpace(q.Get("company")),
		ActionType: close.ActionType(strings.TrimSpace(q.Get("action_type"))),
		ActionBy:   strings.TrimSpace(q.Get("action_by")),
		Limit:      limit,
		Offset:     offset,
	}
	if filter.From, err = optionalDate(q.Get("from")); err != nil {
		httpx.RespondError(w, &close.InputError{Fields: []close.FieldError{{Field: "from", Rule: "date", Message: "must be YYYY-MM-DD"}}})
		return
	}
	if filter.To, err = optionalDate(q.Get("to")); err != nil {
		httpx.RespondError(w, &close.InputError{Fields: []close.FieldError{{Field: "to", Rule: "date", Message: "must be YYYY-MM-DD"}}})
		return
	}
	if filter.To != nil {
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	logs, total, err := h.service.ListAuditLog(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "list audit log", err)
		return
	}
	if logs == nil {
		logs = []close.Log{}
	}
	normalized := filter.Normalize()
	page := shared.NewPagination(normalized.Limit, normalized.Offset, total)
	httpx.JSON(w, http.StatusOK, listResponse[close.Log]{Data: logs, Pagination: &page})
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	company, ok := pathParam(w, r, "company")
	if !ok {
		return
	}
	cfg, err := h.service.Config(r.Context(), company)
	if err != nil {
		h.respondError(w, r, "get config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	company, ok := pathParam(w, r, "company")
	if !ok {
		return
	}
	var patch close.ConfigPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cfg, err := h.service.UpdateConfig(r.Context(), company, patch)
	if err != nil {
		h.respondError(w, r, "update config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

type postingCheckRequest struct {
	Company     string `json:"company"`
	PostingDate string `json:"posting_date"`
	Actor       string `json:"actor"`
	Transaction string `json:"transaction"`
	Doctype     string `json:"doctype"`
}

func (h *Handler) checkPosting(w http.ResponseWriter, r *http.Request) {
	var req postingCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := parseDate(req.PostingDate)
	if err != nil {
		httpx.RespondError(w, &close.InputError{Fields: []close.FieldError{{Field: "posting_date", Rule: "date", Message: "must be YYYY-MM-DD"}}})
		return
	}
	decision, err := h.service.CheckPosting(r.Context(), close.PostingCheck{
		Company:     req.Company,
		PostingDate: date,
		Actor:       req.Actor,
		Transaction: req.Transaction,
		Doctype:     req.Doctype,
	})
	if err != nil {
		h.respondError(w, r, "check posting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch close.Classify(err) {
	case close.KindUnknown, close.KindTransient:
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func periodKey(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	company, ok := pathParam(w, r, "company")
	if !ok {
		return "", "", false
	}
	name, ok := pathParam(w, r, "name")
	if !ok {
		return "", "", false
	}
	return company, name, true
}

func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	raw := chi.URLParam(r, key)
	value, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(value) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: invalid %s", httpx.ErrValidation, key))
		return "", false
	}
	return value, true
}

func decodeOptional(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func pageParams(q url.Values) (int, int, error) {
	limit, err := intParam(q, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", httpx.ErrValidation, key)
	}
	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func dateOrZero(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}
