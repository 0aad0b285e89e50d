package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/internal/platform/httpx"
)

// SummaryLoader fetches the data behind a closing summary.
type SummaryLoader interface {
	GetClosingSummary(ctx context.Context, company, name string) (close.ClosingSummary, error)
}

// Handler manages report endpoints.
type Handler struct {
	client    *Client
	renderer  *Renderer
	summaries SummaryLoader
	logger    *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, renderer *Renderer, summaries SummaryLoader, logger *slog.Logger) *Handler {
	return &Handler{client: client, renderer: renderer, summaries: summaries, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/closing-summary/{company}/{name}", h.closingSummary)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer unavailable", "PDF renderer is not reachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) closingSummary(w http.ResponseWriter, r *http.Request) {
	company, err1 := url.PathUnescape(chi.URLParam(r, "company"))
	name, err2 := url.PathUnescape(chi.URLParam(r, "name"))
	if err1 != nil || err2 != nil || strings.TrimSpace(company) == "" || strings.TrimSpace(name) == "" {
		httpx.RespondError(w, fmt.Errorf("%w: invalid period key", httpx.ErrValidation))
		return
	}
	summary, err := h.summaries.GetClosingSummary(r.Context(), company, name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		html, err := h.renderer.ClosingSummaryHTML(summary)
		if err != nil {
			h.logger.Error("render closing summary html", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
		return
	}
	pdf, err := h.renderer.ClosingSummaryPDF(r.Context(), summary)
	if err != nil {
		h.logger.Error("render closing summary pdf", slog.String("company", company), slog.String("period", name), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render failed", "PDF renderer returned an error")
		return
	}
	filename := strings.ReplaceAll(company+"-"+name, " ", "_") + "-closing-summary.pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
