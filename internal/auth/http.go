// Copyright (c) 2026 Authgate. All rights reserved.

/*
HTTP delivery layer for the credential and token lifecycle.

# Architecture

The handler acts as a thin mediation layer between the web and the domain
service:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles refresh token cookie injection and rotation.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes,
headers, JSON). Route protection itself is applied by the gate in front of it.
*/

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/constants"
	requestutil "github.com/authgate/authgate/internal/platform/request"
	"github.com/authgate/authgate/internal/platform/respond"
	"github.com/authgate/authgate/internal/platform/sec"
	"github.com/authgate/authgate/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the account lifecycle entry points (Registration,
// Login, Token rotation, API key rotation, Administration).
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register   : Creates a new account.
//   - POST /login      : Authenticates and returns a token pair.
//   - POST /refresh    : Rotates the refresh token.
//   - POST /logout     : Revokes the presented refresh token.
//   - POST /rotate-key : Replaces the caller's API key (token-protected).
//   - PATCH /users/{userID}/privilege : Admin privilege change (token-protected).
//   - POST  /users/{userID}/disable   : Admin account disable (token-protected).
//
// The token-protected endpoints rely on the gate having resolved an identity
// into the request context before dispatch.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	router.Post("/rotate-key", handler.rotateKey)
	router.Patch("/users/{userID}/privilege", handler.updatePrivilege)
	router.Post("/users/{userID}/disable", handler.disable)

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updatePrivilegeRequest struct {
	Level int `json:"level"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Validates input and persists a new principal. The response is
the only place the generated API key appears in plaintext.

Request:
  - Body: registerRequest (Email, Password)

Response:
  - 201: RegisterResult: Created profile and one-time API key
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:  input.Email,
		Secret: input.Password,
		Level:  sec.LevelMember,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

/*
Login authenticates a user and issues a token pair.

POST /api/v1/auth/login

Description: Verifies credentials, returns a JWT access token, and injects
a secure refresh token cookie into the response.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: TokenPair: Access token and user profile
  - 401: ErrUnauthorized: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Email:  input.Email,
		Secret: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, pair)

	respond.OK(writer, map[string]any{
		FieldAccessToken: pair.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   AccessTokenTTL / time.Second,
		FieldUser:        pair.User,
	})
}

/*
Refresh rotates the refresh token and issues a new access token.

POST /api/v1/auth/refresh

Description: Spends the presented refresh token (cookie or body) exactly
once and returns the replacement pair. A reused token fails here no matter
how recently it was valid.

Response:
  - 200: TokenPair: New access token credentials
  - 401: ErrUnauthorized: Missing, invalid, expired, or reused refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := refreshTokenFrom(request)
	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	pair, err := handler.authService.RedeemRefreshToken(request.Context(), refreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, pair)

	respond.OK(writer, map[string]any{
		FieldAccessToken: pair.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   AccessTokenTTL / time.Second,
	})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Invalidates the refresh token (if present) and clears the
security cookie from the client. Idempotent.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if refreshToken := refreshTokenFrom(request); refreshToken != "" {
		_ = handler.authService.Logout(request.Context(), refreshToken)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	respond.NoContent(writer)
}

/*
RotateKey replaces the caller's API key.

POST /api/v1/auth/rotate-key

Description: Generates a new API key for the authenticated account and
invalidates the previous one immediately.

Response:
  - 200: APIKey: The new plaintext key (shown once)
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) rotateKey(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	apiKey, err := handler.authService.RotateAPIKey(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldAPIKey: apiKey,
	})
}

/*
UpdatePrivilege changes another account's privilege level.

PATCH /api/v1/auth/users/{userID}/privilege

Description: Admin-only. Outstanding refresh tokens of the target account
are revoked so the change takes effect on the next token issuance.

Request:
  - Body: updatePrivilegeRequest (Level)

Response:
  - 200: Success: Privilege updated
  - 403: ErrForbidden: Caller is below admin level
  - 404: ErrNotFound: Target account does not exist
*/
func (handler *Handler) updatePrivilege(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !claims.Level.AtLeast(sec.LevelAdmin) {
		respond.Error(writer, request, apperr.Forbidden("Admin privilege required"))
		return
	}

	targetID := requestutil.Param(request, "userID")

	var input updatePrivilegeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUserID, targetID).
		UUID(FieldUserID, targetID).
		Range(FieldLevel, input.Level, int(sec.LevelGuest), int(sec.LevelAdmin))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.UpdatePrivilege(request.Context(), targetID, sec.Level(input.Level)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Privilege updated",
	})
}

/*
Disable soft-disables another account.

POST /api/v1/auth/users/{userID}/disable

Description: Admin-only. The account keeps its row but can no longer
authenticate by any scheme; all its sessions are revoked.

Response:
  - 200: Success: Account disabled
  - 403: ErrForbidden: Caller is below admin level
  - 404: ErrNotFound: Target account does not exist
*/
func (handler *Handler) disable(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !claims.Level.AtLeast(sec.LevelAdmin) {
		respond.Error(writer, request, apperr.Forbidden("Admin privilege required"))
		return
	}

	targetID := requestutil.Param(request, "userID")

	validator := &validate.Validator{}
	validator.Required(FieldUserID, targetID).UUID(FieldUserID, targetID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Disable(request.Context(), targetID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Account disabled",
	})
}

// # Transport Helpers

// refreshTokenFrom extracts the refresh token from the cookie, falling back
// to the JSON body for non-browser clients.
func refreshTokenFrom(request *http.Request) string {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err == nil {
		return input.RefreshToken
	}
	return ""
}

// setRefreshCookie installs the rotated refresh token as an HttpOnly cookie.
func setRefreshCookie(writer http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  pair.RefreshTokenExpiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
