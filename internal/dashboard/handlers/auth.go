package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/mrmushfiq/llm0-observability/internal/shared/auth"
	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// UserStore is the persistence surface the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users      UserStore
	tokens     *auth.TokenService
	bcryptCost int
}

func NewAuthHandler(users UserStore, tokens *auth.TokenService, bcryptCost int) *AuthHandler {
	return &AuthHandler{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func (req *registerRequest) validate() error {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("email: not a valid address")
	}
	if len(req.Password) < 6 {
		return fmt.Errorf("password: must be at least 6 characters")
	}
	if req.Role == "" {
		req.Role = models.RoleViewer
	}
	if !req.Role.Valid() {
		return fmt.Errorf("role: must be admin or viewer")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	u := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := h.users.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.tokens.Sign(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u,
	})
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(req.Password, u.PasswordHash) {
		// Same response for unknown email and wrong password.
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.Sign(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u,
	})
}
