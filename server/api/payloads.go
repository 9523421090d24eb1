package api

import (
	"github.com/openrport/dashnotify/server/api/errors"
)

// SuccessPayload represents a uniform format for all successful API responses.
type SuccessPayload struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

func NewSuccessPayload(data interface{}) SuccessPayload {
	return SuccessPayload{
		Data: data,
	}
}

func NewSuccessPayloadWithMeta(data, meta interface{}) SuccessPayload {
	return SuccessPayload{
		Data: data,
		Meta: meta,
	}
}

// ErrorPayload represents a uniform format for all error API responses.
type ErrorPayload struct {
	Errors []ErrorPayloadItem `json:"errors"`
}

// ErrorPayloadItem represents a uniform format for a single error used in API responses.
type ErrorPayloadItem struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func NewErrorPayloadWithCode(code, title, detail string) ErrorPayload {
	return ErrorPayload{
		Errors: []ErrorPayloadItem{
			{
				Code:   code,
				Title:  title,
				Detail: detail,
			},
		},
	}
}

func NewErrorPayload(err error) ErrorPayload {
	return NewErrorPayloadWithCode("", "", err.Error())
}

func NewAPIErrorPayload(err errors.APIError) ErrorPayload {
	return NewErrorPayloadWithCode(err.ErrCode, err.Message, err.Detail())
}
