package popularity

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cipherhub/cipherhub/pkg/httputil"
)

// Handlers serves the precomputed popularity view and the public index
type Handlers struct {
	builder *Builder
	indexer *Indexer
}

// NewHandlers creates popularity handlers
func NewHandlers(builder *Builder, indexer *Indexer) *Handlers {
	return &Handlers{builder: builder, indexer: indexer}
}

// RegisterRoutes registers the popularity routes; both views are public
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ciphers/popular", h.Popular).Methods("GET")
	router.HandleFunc("/api/ciphers/index", h.Index).Methods("GET")
}

// Popular returns the current top-downloads view
func (h *Handlers) Popular(w http.ResponseWriter, r *http.Request) {
	view, err := h.builder.Current(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, view)
}

// Index returns the current public cipher index
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	index, err := h.indexer.Current(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, index)
}
