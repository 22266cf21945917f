package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boardlock/boardlock/internal/auth"
	"github.com/boardlock/boardlock/internal/model"
	"github.com/boardlock/boardlock/pkg/respond"
)

type AuthHandler struct {
	tokens *auth.Tokens
	logger *zap.Logger
}

func NewAuthHandler(tokens *auth.Tokens, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

type loginRequest struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login issues a signed session claim. There is no credential check: the
// identity is self-declared, the token only makes it tamper-proof for the
// capability checks downstream.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Role == "" {
		respond.Error(w, r, http.StatusBadRequest, "name, email and role are required")
		return
	}

	user := model.User{Name: req.Name, Email: req.Email, Role: req.Role}
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respond.JSON(w, r, http.StatusOK, loginResponse{Token: token, User: user})
}
