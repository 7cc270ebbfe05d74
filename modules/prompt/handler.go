package prompt

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/response"
)

// GenerateInput - POST /api/prompt/generate body
type GenerateInput struct {
	UserDescription      string `json:"userDescription"`
	ProductDescription   string `json:"productDescription,omitempty"`
	PlacementDescription string `json:"placementDescription,omitempty"`
	StyleDescription     string `json:"styleDescription,omitempty"`
	HasSceneImage        bool   `json:"hasSceneImage,omitempty"`
}

// ValidateInput - POST /api/prompt/validate body
type ValidateInput struct {
	Prompt string `json:"prompt"`
}

// Handler - prompt preview endpoints: build and check prompts without
// touching the provider or persisting anything
type Handler struct {
	identity identity.Provider
}

func NewHandler(ident identity.Provider) *Handler {
	return &Handler{identity: ident}
}

// RegisterRoutes - mount prompt preview endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/prompt/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/prompt/validate", h.Validate).Methods("POST")
}

// Generate - POST /api/prompt/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity.UserID(r); !ok {
		response.Unauthorized(w)
		return
	}

	var input GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}
	if strings.TrimSpace(input.UserDescription) == "" {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "User description is required")
		return
	}

	result := Generate(Request{
		UserDescription:      input.UserDescription,
		ProductDescription:   input.ProductDescription,
		PlacementDescription: input.PlacementDescription,
		StyleDescription:     input.StyleDescription,
		HasSceneImage:        input.HasSceneImage,
	})
	response.WriteJSON(w, http.StatusOK, result)
}

// Validate - POST /api/prompt/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity.UserID(r); !ok {
		response.Unauthorized(w)
		return
	}

	var input ValidateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"valid": Validate(input.Prompt)})
}
