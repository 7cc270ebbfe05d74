package flow

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/response"
	"buyershow-server/modules/generation"
	"buyershow-server/modules/upload"
)

// Handler - HTTP and websocket surface of the wizard
type Handler struct {
	manager     *Manager
	hub         *Hub
	identity    identity.Provider
	development bool
}

func NewHandler(manager *Manager, hub *Hub, ident identity.Provider, development bool) *Handler {
	return &Handler{manager: manager, hub: hub, identity: ident, development: development}
}

// RegisterRoutes - mount wizard endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/flow/state", h.GetState).Methods("GET")
	r.HandleFunc("/api/flow/next", h.NextStep).Methods("POST")
	r.HandleFunc("/api/flow/previous", h.PreviousStep).Methods("POST")
	r.HandleFunc("/api/flow/goto", h.GoToStep).Methods("POST")
	r.HandleFunc("/api/flow/scene", h.UploadScene).Methods("POST")
	r.HandleFunc("/api/flow/product-image", h.UploadProductImage).Methods("POST")
	r.HandleFunc("/api/flow/select-product", h.SelectProduct).Methods("POST")
	r.HandleFunc("/api/flow/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/flow/regenerate", h.Regenerate).Methods("POST")
	r.HandleFunc("/api/flow/reset", h.Reset).Methods("POST")
	r.HandleFunc("/ws/flow", h.WebSocket).Methods("GET")
}

// controller - resolve the session controller for a request
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return nil, false
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "session query parameter is required")
		return nil, false
	}
	return h.manager.Controller(r.Context(), userID, sessionID), true
}

// GetState - GET /api/flow/state?session=
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, ctrl.State())
}

// NextStep - POST /api/flow/next?session=
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, err := ctrl.NextStep(r.Context())
	h.writeState(w, state, err)
}

// PreviousStep - POST /api/flow/previous?session=
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, err := ctrl.PreviousStep(r.Context())
	h.writeState(w, state, err)
}

// GoToStep - POST /api/flow/goto?session= with {"step": n, "force": bool}
func (h *Handler) GoToStep(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var body struct {
		Step  int  `json:"step"`
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	state, err := ctrl.GoToStep(r.Context(), body.Step, body.Force)
	h.writeState(w, state, err)
}

// UploadScene - POST /api/flow/scene?session=
func (h *Handler) UploadScene(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var input upload.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	state, err := ctrl.UploadSceneImage(r.Context(), &input)
	h.writeState(w, state, err)
}

// UploadProductImage - POST /api/flow/product-image?session=
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var input upload.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	state, err := ctrl.UploadProductImage(r.Context(), &input)
	h.writeState(w, state, err)
}

// SelectProduct - POST /api/flow/select-product?session=
func (h *Handler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var product ProductRef
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil || product.ID == "" {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Product id is required")
		return
	}

	response.WriteJSON(w, http.StatusOK, ctrl.SelectProduct(r.Context(), product))
}

// Generate - POST /api/flow/generate?session=
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var input generation.GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	state, err := ctrl.GenerateImage(r.Context(), &input)
	h.writeState(w, state, err)
}

// Regenerate - POST /api/flow/regenerate?session=
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	state, err := ctrl.RegenerateImage(r.Context())
	h.writeState(w, state, err)
}

// Reset - POST /api/flow/reset?session=
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, ctrl.Reset(r.Context()))
}

// WebSocket - GET /ws/flow?session= pushes state changes to the client
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.hub.HandleWS(w, r, r.URL.Query().Get("session"), ctrl.State())
}

func (h *Handler) writeState(w http.ResponseWriter, state State, err error) {
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, state)
}
