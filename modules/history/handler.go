package history

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/response"
)

// Handler - HTTP surface for generation history
type Handler struct {
	service     *Service
	identity    identity.Provider
	development bool
}

func NewHandler(service *Service, ident identity.Provider, development bool) *Handler {
	return &Handler{service: service, identity: ident, development: development}
}

// RegisterRoutes - mount history endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/history", h.List).Methods("GET")
	r.HandleFunc("/api/history/stats", h.Stats).Methods("GET")
	r.HandleFunc("/api/history/{generationId}", h.Get).Methods("GET")
	r.HandleFunc("/api/history/{generationId}", h.Delete).Methods("DELETE")
}

// List - GET /api/history?status=&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	result, err := h.service.List(r.Context(), userID, query.Get("status"), limit, offset)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Get - GET /api/history/{generationId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	detail, err := h.service.Get(r.Context(), userID, mux.Vars(r)["generationId"])
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, detail)
}

// Delete - DELETE /api/history/{generationId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, mux.Vars(r)["generationId"]); err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Generation deleted successfully"})
}

// Stats - GET /api/history/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}
