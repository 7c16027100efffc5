package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/auth"
	"github.com/erazemk/omara/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// login handles POST /api/auth/login.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		s.jsonError(w, http.StatusNotFound, "authentication is not configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		s.jsonError(w, http.StatusBadRequest, "password required")
		return
	}
	if req.Username == "" {
		req.Username = model.DefaultUsername
	}
	if req.Username != model.DefaultUsername {
		s.jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.CheckPassword(s.auth.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrBadPassword) {
			s.logger.Warn("login failed", zap.String("remote", r.RemoteAddr))
			s.jsonError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(s.auth.Secret, req.Username, s.auth.TokenTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("owner logged in", zap.String("remote", r.RemoteAddr))
	s.jsonResponse(w, http.StatusOK, loginResponse{Token: token})
}
