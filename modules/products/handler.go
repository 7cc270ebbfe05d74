package products

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"buyershow-server/modules/common/database"
	"buyershow-server/modules/common/identity"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/response"
)

// CreateInput - POST /api/products body
type CreateInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Handler - product catalog endpoints backing wizard step 2
type Handler struct {
	store       database.Store
	identity    identity.Provider
	development bool
}

func NewHandler(store database.Store, ident identity.Provider, development bool) *Handler {
	return &Handler{store: store, identity: ident, development: development}
}

// RegisterRoutes - mount product endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/products", h.List).Methods("GET")
	r.HandleFunc("/api/products", h.Create).Methods("POST")
}

// List - GET /api/products
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	list, err := h.store.ListProducts(r.Context(), userID)
	if err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"products": list})
}

// Create - POST /api/products
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.UserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}

	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Invalid request body")
		return
	}
	if strings.TrimSpace(input.Name) == "" {
		response.WriteError(w, http.StatusBadRequest, model.ErrCodeValidation, "Product name is required")
		return
	}

	product := &model.Product{
		UserID:      userID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		response.WriteServiceError(w, err, h.development)
		return
	}
	response.WriteJSON(w, http.StatusCreated, product)
}
