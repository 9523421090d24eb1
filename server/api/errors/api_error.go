package errors

import (
	"net/http"
)

const (
	ErrCodeNotFound     = "ERR_CODE_NOT_FOUND"
	ErrCodeInvalidInput = "ERR_CODE_INVALID_INPUT"
	ErrCodeUnavailable  = "ERR_CODE_UNAVAILABLE"
)

// APIError wraps error which is interpreted as in http error
type APIError struct {
	Message    string
	Err        error
	HTTPStatus int
	ErrCode    string
}

func NewAPIError(statusCode int, errCode string, message string, err error) (ae APIError) {
	ae = APIError{
		HTTPStatus: statusCode,
		ErrCode:    errCode,
		Message:    message,
		Err:        err,
	}
	return ae
}

func NotFound(message string) APIError {
	return NewAPIError(http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func InvalidInput(message string, err error) APIError {
	return NewAPIError(http.StatusBadRequest, ErrCodeInvalidInput, message, err)
}

// Error interface implementation
func (ae APIError) Error() string {
	if ae.Err != nil {
		return ae.Err.Error()
	}

	return ae.Message
}

// Detail is the wrapped error text, empty when there is none.
func (ae APIError) Detail() string {
	if ae.Err == nil {
		return ""
	}
	return ae.Err.Error()
}
