// internal/membership/handler.go
package membership

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"librarydesk/internal/auth"
	"librarydesk/internal/httpx"
)

type Handler struct {
	service Service
	tokens  *auth.Tokens
	logger  *zap.Logger
}

func NewHandler(service Service, tokens *auth.Tokens, logger *zap.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger.Named("membership.http")}
}

// AuthRoutes mounts the unauthenticated sign-up and login endpoints.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
}

// AdminRoutes mounts user management. The caller must enforce the admin role.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.HandleListUsers)
	r.Post("/", h.HandleCreateUser)
	r.Get("/{userID}", h.HandleGetUser)
	r.Patch("/{userID}", h.HandleUpdateUser)
	r.Delete("/{userID}", h.HandleDeleteUser)
}

// HandleMe returns the authenticated caller's own account.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.Detail(w, http.StatusUnauthorized, auth.MsgNotAuthenticated)
		return
	}
	user, err := h.service.GetUser(r.Context(), caller.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	token, err := h.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	var req UpdateUserInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrUserExists):
		httpx.Detail(w, http.StatusBadRequest, "A user with that username or email already exists.")
	case errors.Is(err, ErrInvalidCredentials):
		httpx.Detail(w, http.StatusUnauthorized, "Unable to log in with provided credentials.")
	case errors.Is(err, ErrRateLimited):
		httpx.Detail(w, http.StatusTooManyRequests, "Request was throttled.")
	case errors.Is(err, ErrVersionConflict):
		httpx.Detail(w, http.StatusConflict, "The user was modified by another request.")
	default:
		h.logger.Error("request failed", zap.Error(err))
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}
