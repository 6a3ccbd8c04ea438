package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskhub/taskhub/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/middleware"
	"github.com/taskhub/taskhub/pkg/observability"
	"github.com/taskhub/taskhub/pkg/storage"
)

// AdminHandlers handles user administration. All routes require an
// authenticated admin account. Item ownership remains absolute: there is no
// admin override for reading or mutating another user's items.
type AdminHandlers struct {
	store   storage.Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(store storage.Store, logger *observability.Logger, metrics *observability.Metrics) *AdminHandlers {
	return &AdminHandlers{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// RegisterRoutes registers admin routes on the API subrouter
func (h *AdminHandlers) RegisterRoutes(api *mux.Router, authMw *middleware.AuthMiddleware) {
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMw.Handler)
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/users", h.listUsers).Methods("GET")
	admin.HandleFunc("/users/{id:[0-9]+}", h.deleteUser).Methods("DELETE")
	admin.HandleFunc("/users/{id:[0-9]+}/active", h.setUserActive).Methods("PUT")
}

// listUsers handles GET /api/v1/admin/users?skip&limit
func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		httputil.WriteValidationErrors(w, map[string]string{"skip": "skip must be non-negative"})
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 || limit > maxListLimit {
		httputil.WriteValidationErrors(w, map[string]string{"limit": "limit must be between 1 and 1000"})
		return
	}

	users, err := h.store.ListUsers(r.Context(), skip, limit)
	if err != nil {
		h.storageError(w, "list_users", err)
		return
	}

	httputil.WriteSuccess(w, users)
}

// deleteUser handles DELETE /api/v1/admin/users/{id}: removes the account
// and cascades to all owned items in one transaction
func (h *AdminHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	caller := middleware.UserFromRequest(r)
	if caller.ID == id {
		httputil.WriteBadRequest(w, "cannot delete your own account")
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		h.storageError(w, "delete_user", err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id":  id,
		"admin_id": caller.ID,
	}).Info("user deleted")
	httputil.WriteNoContent(w)
}

// setUserActive handles PUT /api/v1/admin/users/{id}/active
func (h *AdminHandlers) setUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		httputil.WriteValidationErrors(w, map[string]string{"is_active": "is_active is required"})
		return
	}

	if err := h.store.SetUserActive(r.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		h.storageError(w, "set_user_active", err)
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.storageError(w, "get_user", err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *AdminHandlers) storageError(w http.ResponseWriter, operation string, err error) {
	h.logger.WithError(err).WithField("operation", operation).Error("storage operation failed")
	if h.metrics != nil {
		h.metrics.StorageErrorsTotal.WithLabelValues(operation).Inc()
	}
	httputil.WriteInternalError(w)
}
