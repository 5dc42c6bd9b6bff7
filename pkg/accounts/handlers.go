package accounts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cipherhub/cipherhub/pkg/httputil"
)

// Handlers provides HTTP handlers for account operations
type Handlers struct {
	service *Service
}

// NewHandlers creates account handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the account routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/accounts/register", h.Register).Methods("POST")
}

// Register creates a new account and returns the caller's API token
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httputil.WriteInvalidArgument(w, "a valid email is required")
		return
	}

	uid := uuid.NewString()
	token := uuid.NewString()

	user, err := h.service.Register(r.Context(), uid, req.Email, token)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httputil.WriteConflict(w, "email already registered")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{
		"uid":   user.UID,
		"email": user.Email,
		"token": token,
	})
}
