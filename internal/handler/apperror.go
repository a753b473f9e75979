package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrRequestCancelled = &AppError{http.StatusRequestTimeout, "REQUEST_CANCELLED", "Request was cancelled before it completed"}

	ErrAccountNotFound            = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrDestinationAccountNotFound = &AppError{http.StatusUnprocessableEntity, "DESTINATION_ACCOUNT_NOT_FOUND", "Destination account not found"}
	ErrTransactionNotFound        = &AppError{http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found"}
	ErrInvalidAmount              = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrUnsupportedCurrency        = &AppError{http.StatusBadRequest, "UNSUPPORTED_CURRENCY", "Currency is not supported"}
	ErrUnknownOperation           = &AppError{http.StatusBadRequest, "UNKNOWN_OPERATION", "Unknown operation"}
	ErrInvalidReference           = &AppError{http.StatusBadRequest, "INVALID_REFERENCE", "Reference id is required"}
	ErrDestinationRequired        = &AppError{http.StatusBadRequest, "INVALID_DESTINATION", "Destination account is required for transfers only"}
	ErrSelfTransfer               = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrReversalViaProcess         = &AppError{http.StatusBadRequest, "REVERSAL_NOT_ALLOWED", "Use reverse to undo a transaction"}
	ErrInvalidPeriod              = &AppError{http.StatusBadRequest, "INVALID_PERIOD", "Statement start must not be after end"}
	ErrInvalidOwner               = &AppError{http.StatusBadRequest, "INVALID_OWNER", "Owner id is required"}
	ErrInvalidTransition          = &AppError{http.StatusConflict, "INVALID_STATUS_TRANSITION", "Account status does not allow this change"}
	ErrAccountInactive            = &AppError{http.StatusConflict, "ACCOUNT_INACTIVE", "Account is inactive"}
	ErrAccountNumberTaken         = &AppError{http.StatusConflict, "ACCOUNT_NUMBER_TAKEN", "Could not allocate a free account number"}
	ErrVersionConflict            = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrAmountOverflow             = &AppError{http.StatusUnprocessableEntity, "AMOUNT_OVERFLOW", "Amount exceeds the supported range"}
	ErrProcessingFailed           = &AppError{http.StatusInternalServerError, "PROCESSING_FAILED", "Transaction processing failed"}
)

var errorMapping = []struct {
	err    error
	appErr *AppError
}{
	{domain.ErrAccountNotFound, ErrAccountNotFound},
	{domain.ErrDestinationAccountNotFound, ErrDestinationAccountNotFound},
	{domain.ErrTransactionNotFound, ErrTransactionNotFound},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrUnsupportedCurrency, ErrUnsupportedCurrency},
	{domain.ErrUnknownOperation, ErrUnknownOperation},
	{domain.ErrInvalidReference, ErrInvalidReference},
	{domain.ErrDestinationRequired, ErrDestinationRequired},
	{domain.ErrSelfTransfer, ErrSelfTransfer},
	{domain.ErrReversalViaProcess, ErrReversalViaProcess},
	{domain.ErrInvalidPeriod, ErrInvalidPeriod},
	{domain.ErrInvalidOwner, ErrInvalidOwner},
	{domain.ErrInvalidTransition, ErrInvalidTransition},
	{domain.ErrAccountInactive, ErrAccountInactive},
	{domain.ErrAccountNumberTaken, ErrAccountNumberTaken},
	{domain.ErrVersionConflict, ErrVersionConflict},
	{domain.ErrOverflow, ErrAmountOverflow},
	{domain.ErrProcessingFailed, ErrProcessingFailed},
	{domain.ErrNotFound, ErrResourceNotFound},
	{context.Canceled, ErrRequestCancelled},
	{context.DeadlineExceeded, ErrRequestCancelled},
}

// AppErrorFor maps a domain error to its public code. Unknown errors are
// logged and reported as internal errors.
func AppErrorFor(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.appErr
		}
	}
	slog.Error("unhandled domain error", "error", err)
	return ErrInternalError
}
