package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openshelf/booksapi/internal/booksapi/service"
	"github.com/openshelf/booksapi/pkg/httpx"
	"github.com/openshelf/booksapi/pkg/slogx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// decodeCredentials parses the JSON credential body shared by register and
// login. Unknown fields are rejected, matching the strict request models of
// the rest of the API.
func decodeCredentials(r *http.Request) (credentialsRequest, string) {
	var req credentialsRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, "Invalid request body"
	}
	if req.Username == "" {
		return req, "username is required"
	}
	if req.Password == "" {
		return req, "password is required"
	}
	return req, ""
}

// HandleRegister creates a new user account
//
//	@Summary		Register new user
//	@Description	Create a new account from a unique username and a password of at least 8 characters.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body	credentialsRequest	true	"Desired username and password"
//	@Success		201			"Account created"
//	@Failure		409			{object}	httpx.ErrorResponse	"Username already taken"
//	@Failure		422			{object}	httpx.ErrorResponse	"Invalid body or password too short"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, problem := decodeCredentials(r)
	if problem != "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	_, err := h.AuthService.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooShort):
			httpx.WriteError(w, http.StatusUnprocessableEntity,
				"Password must be at least 8 characters long")
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteError(w, http.StatusConflict,
				fmt.Sprintf("User '%s' already exists.", req.Username))
		default:
			log.Error("failed to register user", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Info("user registered", "username", req.Username)
	w.WriteHeader(http.StatusCreated)
}

// HandleLogin exchanges credentials for a bearer token
//
//	@Summary		Login user
//	@Description	Verify a username and password and return a signed JWT access token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		credentialsRequest	true	"Account credentials"
//	@Success		200			{object}	domain.TokenResponse
//	@Failure		401			{object}	httpx.ErrorResponse	"Wrong password"
//	@Failure		404			{object}	httpx.ErrorResponse	"Unknown username"
//	@Failure		422			{object}	httpx.ErrorResponse	"Invalid body"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, problem := decodeCredentials(r)
	if problem != "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	token, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			httpx.WriteError(w, http.StatusNotFound,
				fmt.Sprintf("User '%s' not found.", req.Username))
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized,
				"Incorrect username or password")
		default:
			log.Error("failed to login user", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, token)
}
