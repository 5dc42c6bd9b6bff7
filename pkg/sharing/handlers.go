package sharing

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cipherhub/cipherhub/pkg/httputil"
	"github.com/cipherhub/cipherhub/pkg/middleware"
)

// Handlers provides HTTP handlers for share-code operations
type Handlers struct {
	service *Service
}

// NewHandlers creates sharing handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the sharing routes; all require authentication
func (h *Handlers) RegisterRoutes(router *mux.Router, authmw *middleware.AuthMiddleware) {
	router.Handle("/api/ciphers/join", authmw.RequireAuth(http.HandlerFunc(h.Join))).Methods("POST")
	router.Handle("/api/ciphers/{id}/share", authmw.RequireAuth(http.HandlerFunc(h.EnableSharing))).Methods("POST")
}

// Join adds the authenticated caller to a cipher's collaborator set
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShareCode string `json:"shareCode"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ShareCode == "" {
		httputil.WriteInvalidArgument(w, "shareCode is required")
		return
	}

	caller := middleware.GetAuthContext(r)
	result, err := h.service.JoinByCode(r.Context(), caller.User.UID, req.ShareCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownCode):
			httputil.WriteNotFound(w, "unknown share code")
		case errors.Is(err, ErrAlreadyCollaborator):
			httputil.WriteConflict(w, "already a collaborator")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	httputil.WriteSuccess(w, result)
}

// EnableSharing assigns a share code to a cipher and returns it
func (h *Handlers) EnableSharing(w http.ResponseWriter, r *http.Request) {
	cipherID := mux.Vars(r)["id"]

	code, err := h.service.EnableSharing(r.Context(), cipherID)
	if err != nil {
		if errors.Is(err, ErrCipherNotFound) {
			httputil.WriteNotFound(w, "cipher not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"shareCode": code})
}
