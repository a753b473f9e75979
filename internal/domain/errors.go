package domain

import "errors"

var (
	ErrNotFound                   = errors.New("not found")
	ErrAccountNotFound            = errors.New("account not found")
	ErrDestinationAccountNotFound = errors.New("destination account not found")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrAccountNotActive           = errors.New("account is not active")
	ErrAccountInactive            = errors.New("account is inactive")
	ErrInvalidAmount              = errors.New("amount must be greater than zero")
	ErrUnsupportedCurrency        = errors.New("unsupported currency")
	ErrUnknownOperation           = errors.New("unknown operation")
	ErrInvalidReference           = errors.New("reference id is required")
	ErrDestinationRequired        = errors.New("destination account is required for transfers only")
	ErrSelfTransfer               = errors.New("cannot transfer to same account")
	ErrReversalViaProcess         = errors.New("reversals must reference an existing transaction")
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrAlreadyReversed            = errors.New("transaction already reversed")
	ErrReversalUnsupported        = errors.New("transaction kind cannot be reversed")
	ErrTransactionNotProcessed    = errors.New("transaction is not processed")
	ErrInvalidTransition          = errors.New("invalid status transition")
	ErrOverflow                   = errors.New("amount overflow")
	ErrUnderflow                  = errors.New("amount underflow")
	ErrDuplicateReference         = errors.New("duplicate reference id")
	ErrVersionConflict            = errors.New("optimistic lock conflict")
	ErrAccountNumberTaken         = errors.New("account number already in use")
	ErrInvalidPeriod              = errors.New("statement start must not be after end")
	ErrInvalidOwner               = errors.New("owner id is required")
	ErrStorageFailure             = errors.New("storage failure")
	ErrProcessingFailed           = errors.New("transaction processing failed")
)

var rejections = []error{
	ErrAccountNotActive,
	ErrInsufficientFunds,
	ErrAlreadyReversed,
	ErrReversalUnsupported,
	ErrTransactionNotProcessed,
	ErrOverflow,
}

// IsRejection reports whether err is a business rule rejection that is
// recorded as a failed transaction rather than aborting the operation.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
