package admin

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cipherhub/cipherhub/pkg/httputil"
	"github.com/cipherhub/cipherhub/pkg/middleware"
)

// Handlers provides HTTP handlers for admin claim management
type Handlers struct {
	service *Service
}

// NewHandlers creates admin handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the admin routes. Grant and revoke require an
// admin caller; bootstrap is gated only by its shared secret.
func (h *Handlers) RegisterRoutes(router *mux.Router, authmw *middleware.AuthMiddleware) {
	router.Handle("/api/admin/grant", authmw.RequireAdmin(http.HandlerFunc(h.Grant))).Methods("POST")
	router.Handle("/api/admin/revoke", authmw.RequireAdmin(http.HandlerFunc(h.Revoke))).Methods("POST")
	router.HandleFunc("/api/admin/bootstrap", h.Bootstrap).Methods("POST")
}

// Grant grants the admin claim to a user by email or uid
func (h *Handlers) Grant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		UID   string `json:"uid"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" && req.UID == "" {
		httputil.WriteInvalidArgument(w, "email or uid is required")
		return
	}

	result, err := h.service.GrantAdmin(r.Context(), req.Email, req.UID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// Revoke clears the admin claim from a user by uid
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UID == "" {
		httputil.WriteInvalidArgument(w, "uid is required")
		return
	}

	result, err := h.service.RevokeAdmin(r.Context(), req.UID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// Bootstrap grants the first admin, authorized by the shared secret alone
func (h *Handlers) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Secret string `json:"secret"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteInvalidArgument(w, "email is required")
		return
	}

	result, err := h.service.BootstrapFirstAdmin(r.Context(), req.Email, req.Secret)
	if err != nil {
		if errors.Is(err, ErrInvalidSecret) {
			httputil.WritePermissionDenied(w, "invalid secret")
			return
		}
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFound(w, "user not found")
		return
	}
	httputil.WriteInternalError(w, err)
}
