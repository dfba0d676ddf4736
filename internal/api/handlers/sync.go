package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/services"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// SyncHandler обработчик команд синхронизации каталога
type SyncHandler struct {
	syncService services.CatalogSyncServiceInterface
	validate    *validator.Validate
	logger      interfaces.LoggerPort
}

// NewSyncHandler создает новый обработчик синхронизации
func NewSyncHandler(syncService services.CatalogSyncServiceInterface, logger interfaces.LoggerPort) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// SyncRequest тело команды синхронизации
type SyncRequest struct {
	Action string `json:"action" validate:"required,max=32"`
}

// IndexRefRequest подтверждение индексатора; null или пустая строка очищают ссылку
type IndexRefRequest struct {
	IndexRef *string `json:"index_ref" validate:"omitempty,max=255"`
}

// SyncProduct godoc
// @Summary      Sync one product
// @Description  Builds the product snapshot and publishes it to the sync queue
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id    path  int          true  "Product ID"
// @Param        body  body  SyncRequest  true  "Sync action"
// @Success      202 {object} response
// @Failure      400 {object} errorResponse
// @Failure      404 {object} errorResponse
// @Failure      422 {object} errorResponse
// @Failure      502 {object} errorResponse
// @Security     BearerAuth
// @Router       /products/{id}/sync [post]
func (h *SyncHandler) SyncProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req SyncRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.syncService.SyncProduct(r.Context(), productID, req.Action); err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response{
		Success: true,
		Data:    map[string]interface{}{"productId": productID, "action": req.Action},
	})
}

// SyncAllProducts godoc
// @Summary      Sync the whole catalog
// @Description  Runs a sync job for every product and returns the run outcome
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        body  body  SyncRequest  true  "Sync action"
// @Success      200 {object} response
// @Failure      400 {object} errorResponse
// @Failure      409 {object} errorResponse
// @Security     BearerAuth
// @Router       /products/sync [post]
func (h *SyncHandler) SyncAllProducts(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !h.decode(w, r, &req) {
		return
	}

	// прогон не должен обрываться при разрыве соединения клиента
	outcome, err := h.syncService.SyncAllProducts(context.WithoutCancel(r.Context()), req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: outcome})
}

// UpdateIndexRef godoc
// @Summary      Apply index reference
// @Description  Stores the search index document reference reported by the indexer
// @Tags         index
// @Accept       json
// @Produce      json
// @Param        id    path  int              true  "Product ID"
// @Param        body  body  IndexRefRequest  true  "Index reference"
// @Success      200 {object} response
// @Failure      400 {object} errorResponse
// @Failure      404 {object} errorResponse
// @Security     BearerAuth
// @Router       /products/{id}/index-ref [put]
func (h *SyncHandler) UpdateIndexRef(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req IndexRefRequest
	if !h.decode(w, r, &req) {
		return
	}

	var indexRef string
	if req.IndexRef != nil {
		indexRef = *req.IndexRef
	}

	if err := h.syncService.ApplyIndexRef(r.Context(), productID, indexRef); err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    map[string]interface{}{"productId": productID, "indexRef": indexRef},
	})
}

func (h *SyncHandler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		h.badRequest(w, r, "некорректный ID товара")
		return 0, false
	}
	return productID, true
}

func (h *SyncHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		h.badRequest(w, r, "некорректное тело запроса")
		return false
	}

	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		h.badRequest(w, r, err.Error())
		return false
	}

	return true
}

func (h *SyncHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{
		Error:   "bad_request",
		Code:    http.StatusBadRequest,
		Message: message,
	})
}

// writeError отображает доменные ошибки в HTTP-статусы
func (h *SyncHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, utils.ErrInvalidProductId), errors.Is(err, utils.ErrInvalidAction):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, utils.ErrProductNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, utils.ErrNoDefaultVariant):
		status, code = http.StatusUnprocessableEntity, "no_default_variant"
	case errors.Is(err, utils.ErrBulkSyncInProgress):
		status, code = http.StatusConflict, "sync_in_progress"
	case errors.Is(err, utils.ErrPublishFailure):
		status, code = http.StatusBadGateway, "publish_failed"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorWithContext(r.Context(), "Ошибка обработки команды синхронизации",
			interfaces.LogField{Key: "path", Value: r.URL.Path},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: err.Error(),
	})
}
