package billing

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// Code classifies a ValidationError so callers can react without parsing text.
type Code string

const (
	CodeInvalidAmount        Code = "invalid_amount"
	CodeUnallocatedAmount    Code = "unallocated_amount"
	CodeOverAllocation       Code = "over_allocation"
	CodeNegativeAllocation   Code = "negative_allocation"
	CodeUnknownCustomer      Code = "unknown_customer"
	CodeUnknownInvoice       Code = "unknown_invoice"
	CodeUnknownProduct       Code = "unknown_product"
	CodeInvoiceNotOpen       Code = "invoice_not_open"
	CodeInvoiceWrongCustomer Code = "invoice_wrong_customer"
	CodeInvalidState         Code = "invalid_state"
	CodeMissingField         Code = "missing_field"
	CodeInvalidHierarchy     Code = "invalid_hierarchy"
	CodeNoPrice              Code = "no_price"
)

// ValidationError is a user-correctable rejection of an operation. Nothing is
// written when one is returned.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}

	return nil, false
}
