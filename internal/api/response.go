package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Maestro/internal/scheduler"
	"github.com/shaiso/Maestro/internal/worker"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict отправляет ошибку 409.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, ErrCodeConflict, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleWorkerError преобразует ошибку ядра в HTTP ответ.
// Возвращает true, если ответ отправлен.
//
// Маппинг:
//   - ErrTaskNotFound → 404
//   - ErrInvalidState, ErrNoActiveTask, ErrQueueEmpty,
//     ErrPauseUnsupported → 409 (операция конфликтует с текущим
//     состоянием worker'а)
//   - ErrCancelTimeout → 504
//   - остальное → 500
func HandleWorkerError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, worker.ErrTaskNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, worker.ErrInvalidState),
		errors.Is(err, worker.ErrNoActiveTask),
		errors.Is(err, worker.ErrQueueEmpty),
		errors.Is(err, worker.ErrPauseUnsupported):
		Conflict(w, err.Error())

	case errors.Is(err, worker.ErrCancelTimeout):
		Error(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())

	default:
		InternalError(w, logger, err)
	}
	return true
}

// HandleSchedulerError преобразует ошибку планировщика в HTTP ответ.
func HandleSchedulerError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, scheduler.ErrScheduleNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		BadRequest(w, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}
