package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// Me reports the identity behind the request's token. It must be mounted
// behind authn.Middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, authn.Identity(r.Context()))
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string         `json:"token"`
	Identity *auth.Identity `json:"identity"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.writeToken(w, r, http.StatusCreated, id)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.writeToken(w, r, http.StatusOK, id)
}

func (h *Handler) writeToken(w http.ResponseWriter, r *http.Request, status int, id *auth.Identity) {
	token, err := h.svc.IssueToken(*id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, status, tokenResponse{Token: token, Identity: id})
}
