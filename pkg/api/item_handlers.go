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

// ItemHandlers handles CRUD over items, every operation scoped to the
// authenticated owner
type ItemHandlers struct {
	store   storage.Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewItemHandlers creates a new item handlers instance
func NewItemHandlers(store storage.Store, logger *observability.Logger, metrics *observability.Metrics) *ItemHandlers {
	return &ItemHandlers{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// RegisterRoutes registers item routes on the API subrouter; all of them
// require authentication
func (h *ItemHandlers) RegisterRoutes(api *mux.Router, authMw *middleware.AuthMiddleware) {
	items := api.PathPrefix("/items").Subrouter()
	items.Use(authMw.Handler)

	items.HandleFunc("", h.createItem).Methods("POST")
	items.HandleFunc("", h.listItems).Methods("GET")
	items.HandleFunc("/{id:[0-9]+}", h.getItem).Methods("GET")
	items.HandleFunc("/{id:[0-9]+}", h.updateItem).Methods("PUT")
	items.HandleFunc("/{id:[0-9]+}", h.deleteItem).Methods("DELETE")
}

// createItem handles POST /api/v1/items
func (h *ItemHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)

	var req ItemCreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.Validate(); len(problems) > 0 {
		httputil.WriteValidationErrors(w, problems)
		return
	}

	// Owner is always the caller; nothing in the request can override it
	item := &storage.Item{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
	}

	if err := h.store.CreateItem(r.Context(), item); err != nil {
		h.storageError(w, "create_item", err)
		return
	}

	httputil.WriteCreated(w, item)
}

// listItems handles GET /api/v1/items?skip&limit
func (h *ItemHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)

	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil {
		httputil.WriteValidationErrors(w, map[string]string{"skip": err.Error()})
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", defaultListLimit)
	if err != nil {
		httputil.WriteValidationErrors(w, map[string]string{"limit": err.Error()})
		return
	}

	if skip < 0 {
		httputil.WriteValidationErrors(w, map[string]string{"skip": "skip must be non-negative"})
		return
	}
	if limit <= 0 || limit > maxListLimit {
		httputil.WriteValidationErrors(w, map[string]string{"limit": "limit must be between 1 and 1000"})
		return
	}

	items, err := h.store.ListItems(r.Context(), user.ID, skip, limit)
	if err != nil {
		h.storageError(w, "list_items", err)
		return
	}

	httputil.WriteSuccess(w, items)
}

// loadOwnedItem resolves the {id} path parameter and enforces ownership:
// 404 when the item does not exist, 403 when it belongs to someone else.
// The 404/403 distinction leaks the existence of foreign items to
// authenticated callers; it is kept deliberately, matching the observed
// behavior of the API this replaces.
func (h *ItemHandlers) loadOwnedItem(w http.ResponseWriter, r *http.Request) (*storage.Item, bool) {
	user := middleware.UserFromRequest(r)

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	item, err := h.store.GetItem(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "item not found")
		return nil, false
	}
	if err != nil {
		h.storageError(w, "get_item", err)
		return nil, false
	}

	if item.UserID != user.ID {
		httputil.WriteForbidden(w, "not authorized to access this item")
		return nil, false
	}

	return item, true
}

// getItem handles GET /api/v1/items/{id}
func (h *ItemHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, item)
}

// updateItem handles PUT /api/v1/items/{id} with partial semantics: only
// fields present in the body change
func (h *ItemHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	var req ItemUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.Validate(); len(problems) > 0 {
		httputil.WriteValidationErrors(w, problems)
		return
	}

	updated, err := h.store.UpdateItem(r.Context(), item.ID, storage.ItemUpdate{
		Title:          req.Title,
		Description:    req.Description,
		DescriptionSet: req.DescriptionSet,
		IsCompleted:    req.IsCompleted,
	})
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFound(w, "item not found")
		return
	}
	if err != nil {
		h.storageError(w, "update_item", err)
		return
	}

	httputil.WriteSuccess(w, updated)
}

// deleteItem handles DELETE /api/v1/items/{id}
func (h *ItemHandlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnedItem(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteItem(r.Context(), item.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "item not found")
			return
		}
		h.storageError(w, "delete_item", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ItemHandlers) storageError(w http.ResponseWriter, operation string, err error) {
	h.logger.WithError(err).WithField("operation", operation).Error("storage operation failed")
	if h.metrics != nil {
		h.metrics.StorageErrorsTotal.WithLabelValues(operation).Inc()
	}
	httputil.WriteInternalError(w)
}
