package api

import (
	"errors"
	"net/http"

	"matching-core/internal/engine"
	"matching-core/internal/matching"
)

// ErrorCode represents unified API error codes
type ErrorCode string

const (
	ErrorCodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeTradingNotAllowed ErrorCode = "TRADING_NOT_ALLOWED"
	ErrorCodeEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"
	ErrorCodeBookNotFound      ErrorCode = "BOOK_NOT_FOUND"
	ErrorCodeBookAlreadyExists ErrorCode = "BOOK_ALREADY_EXISTS"
	ErrorCodeDuplicateRequest  ErrorCode = "DUPLICATE_REQUEST"
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// MapEngineErrorToHTTP maps engine error codes to HTTP status codes and error responses
func MapEngineErrorToHTTP(errorCode engine.ErrorCode, err error) (int, ErrorResponse) {
	switch errorCode {
	case engine.ErrorCodeNone:
		return http.StatusOK, ErrorResponse{}

	case engine.ErrorCodeInvalidArgument:
		resp := ErrorResponse{
			Code:    string(ErrorCodeInvalidArgument),
			Message: getErrorMessage(err, "invalid argument"),
		}
		var invalid *matching.InvalidCommandError
		if errors.As(err, &invalid) {
			resp.Field = invalid.Field
		}
		return http.StatusBadRequest, resp

	case engine.ErrorCodeTradingNotAllowed:
		return http.StatusUnprocessableEntity, ErrorResponse{
			Code:    string(ErrorCodeTradingNotAllowed),
			Message: getErrorMessage(err, "trading not allowed"),
		}

	case engine.ErrorCodeEntryNotFound:
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeEntryNotFound),
			Message: getErrorMessage(err, "entry not found"),
		}

	case engine.ErrorCodeBookNotFound:
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeBookNotFound),
			Message: getErrorMessage(err, "book not found"),
		}

	case engine.ErrorCodeBookAlreadyExists:
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeBookAlreadyExists),
			Message: getErrorMessage(err, "book already exists"),
		}

	case engine.ErrorCodeDuplicateRequest:
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeDuplicateRequest),
			Message: getErrorMessage(err, "duplicate request with different payload"),
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Code:    string(ErrorCodeInternalError),
			Message: getErrorMessage(err, "internal error"),
		}
	}
}

func getErrorMessage(err error, defaultMsg string) string {
	if err != nil {
		return err.Error()
	}
	return defaultMsg
}
