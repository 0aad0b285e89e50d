package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/periodclose/internal/platform/httpx"
)

// Handler exposes role assignment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
	admin   string
}

// NewHandler builds a Handler. adminRole gates every mutation.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware, adminRole string) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, admin: adminRole}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(h.admin))
		r.Get("/", h.list)
		r.Put("/{user}/{role}", h.grant)
		r.Delete("/{user}/{role}", h.revoke)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		h.logger.Error("list role assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if assignments == nil {
		assignments = []UserRole{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": assignments})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	user, role := params(r)
	if err := h.service.Grant(r.Context(), user, role); err != nil {
		h.respond(w, "grant role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	user, role := params(r)
	if err := h.service.Revoke(r.Context(), user, role); err != nil {
		h.respond(w, "revoke role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAssignment):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func params(r *http.Request) (string, string) {
	user, _ := url.PathUnescape(chi.URLParam(r, "user"))
	role, _ := url.PathUnescape(chi.URLParam(r, "role"))
	return strings.TrimSpace(user), strings.TrimSpace(role)
}
