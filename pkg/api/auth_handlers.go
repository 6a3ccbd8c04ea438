package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskhub/taskhub/pkg/auth"
	"github.com/taskhub/taskhub/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/middleware"
	"github.com/taskhub/taskhub/pkg/observability"
	"github.com/taskhub/taskhub/pkg/storage"
)

// AuthHandlers handles registration, login, and the current-user endpoint
type AuthHandlers struct {
	store     storage.Store
	tokens    *auth.TokenIssuer
	passwords *auth.PasswordHasher
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(store storage.Store, tokens *auth.TokenIssuer, passwords *auth.PasswordHasher, logger *observability.Logger, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		metrics:   metrics,
	}
}

// RegisterRoutes registers authentication routes on the API subrouter
func (h *AuthHandlers) RegisterRoutes(api *mux.Router, authMw *middleware.AuthMiddleware) {
	api.HandleFunc("/auth/register", h.register).Methods("POST")
	api.HandleFunc("/auth/login", h.login).Methods("POST")

	me := api.PathPrefix("/auth/me").Subrouter()
	me.Use(authMw.Handler)
	me.HandleFunc("", h.me).Methods("GET")
}

// register handles POST /api/v1/auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if problems := req.Validate(); len(problems) > 0 {
		httputil.WriteValidationErrors(w, problems)
		return
	}

	hashed, err := h.passwords.Hash(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	user := &storage.User{
		Email:          req.Email,
		HashedPassword: hashed,
		IsActive:       true,
		IsAdmin:        false,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			httputil.WriteBadRequest(w, "email already registered")
			return
		}
		h.storageError(w, "create_user", err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	httputil.WriteCreated(w, user)
}

// login handles POST /api/v1/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.storageError(w, "get_user", err)
		return
	}

	// Unknown email and wrong password answer identically
	if user == nil || !h.passwords.Verify(req.Password, user.HashedPassword) {
		h.countLogin("failure")
		httputil.WriteUnauthorized(w, "incorrect email or password")
		return
	}

	if !user.IsActive {
		h.countLogin("inactive")
		httputil.WriteForbidden(w, "account is inactive")
		return
	}

	token, err := h.tokens.Issue(user.Email)
	if err != nil {
		h.logger.WithError(err).Error("failed to issue token")
		httputil.WriteInternalError(w)
		return
	}

	h.countLogin("success")
	httputil.WriteSuccess(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// me handles GET /api/v1/auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *AuthHandlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandlers) storageError(w http.ResponseWriter, operation string, err error) {
	h.logger.WithError(err).WithField("operation", operation).Error("storage operation failed")
	if h.metrics != nil {
		h.metrics.StorageErrorsTotal.WithLabelValues(operation).Inc()
	}
	httputil.WriteInternalError(w)
}
