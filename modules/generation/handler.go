package generation

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/response"
)

// Handler - HTTP surface of the generation pipeline
type Handler struct {
	service     *Service
	identity    identity.Provider
	development bool
}

// NewHandler - handler with injected collaborators
func NewHandler(service *Service, ident identity.Provider, development bool) *Handler {
	return &Handler{service: service, identity: ident, development: development}
}

// RegisterRoutes - mount generation endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generation/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/generation/test", h.TestConnection).Methods("GET")
	r.HandleFunc("/api/generation/{generationId}/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/api/generation/{generationId}/regenerate", h.Regenerate).Methods("POST")
}

// Generate - POST /api/generation/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var input GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.service.Generate(r.Context(), userID, &input)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// GetStatus - GET /api/generation/{generationId}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	generationID := mux.Vars(r)["generationId"]
	result, err := h.service.GetStatus(r.Context(), userID, generationID)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Regenerate - POST /api/generation/{generationId}/regenerate
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var input RegenerateInput
	if r.Body != nil {
		// An empty body means "same settings again".
		_ = json.NewDecoder(r.Body).Decode(&input)
	}

	generationID := mux.Vars(r)["generationId"]
	result, err := h.service.Regenerate(r.Context(), userID, generationID, &input)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// TestConnection - GET /api/generation/test
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	connected := h.service.TestConnection(r.Context())
	response.WriteJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}
