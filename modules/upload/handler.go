package upload

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/response"
)

// Handler - HTTP surface for uploads
type Handler struct {
	service     *Service
	identity    identity.Provider
	development bool
}

func NewHandler(service *Service, ident identity.Provider, development bool) *Handler {
	return &Handler{service: service, identity: ident, development: development}
}

// RegisterRoutes - mount upload endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/upload/scene", h.uploadKind(model.UploadKindScene)).Methods("POST")
	r.HandleFunc("/api/upload/product", h.uploadKind(model.UploadKindProduct)).Methods("POST")
	r.HandleFunc("/api/upload/{uploadId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/uploads", h.List).Methods("GET")
}

func (h *Handler) uploadKind(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.identity.UserID(r)
		if !ok {
			response.Unauthorized(w)
			return
		}

		var input Input
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
			return
		}

		record, err := h.service.Upload(r.Context(), userID, kind, &input)
		if err != nil {
			response.WriteServiceError(w, err, h.development)
			return
		}
		response.WriteJSON(w, http.StatusCreated, record)
	}
}

// Delete - DELETE /api/upload/{uploadId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, mux.Vars(r)["uploadId"]); err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Upload deleted successfully"})
}

// List - GET /api/uploads?limit=N
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	uploads, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"uploads": uploads})
}
