package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/projectshelf/backend/errs"
	"github.com/rs/zerolog"
)

const (
	maxRequestBodySize  = 1 << 20
	maxResponseSize     = 10 * 1024 * 1024
	contentTypeJSONUTF8 = "application/json; charset=utf-8"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteStatusJSON(w, http.StatusOK, data)
}

// WriteStatusJSON marshals data before touching the response so a marshal failure
// can still become a clean 500.
func (r Responder) WriteStatusJSON(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		jsonData, _ = json.Marshal(map[string]any{
			"error":        "Response too large",
			"message":      "The requested data exceeds the maximum response size",
			"maxSizeMB":    maxResponseSize / (1024 * 1024),
			"actualSizeMB": len(jsonData) / (1024 * 1024),
		})
		status = http.StatusRequestEntityTooLarge
	}

	w.Header().Set("Content-Type", contentTypeJSONUTF8)
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("Unexpected error")
		r.WriteStatusJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal Server Error",
			Status:  "error",
			Details: "An unexpected error occurred",
		})
		return
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Err(err).Str("cause", apiErr.GetFullError()).Msg("Request failed")
	}

	response := ErrorResponse{
		Error:   apiErr.Error(),
		Status:  "error",
		Field:   apiErr.Field,
		Fields:  apiErr.Fields,
		Details: apiErr.Details,
	}
	if apiErr.Cause != nil && apiErr.StatusCode < http.StatusInternalServerError {
		response.Cause = apiErr.GetFullError()
	}
	r.WriteStatusJSON(w, apiErr.StatusCode, response)
}

// decodeJSON reads a size-limited JSON body into dst. Unknown fields are rejected so
// typos in field names surface as errors instead of silently empty values.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	body := http.MaxBytesReader(w, req.Body, maxRequestBodySize)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errs.NewMaxBodySizeExceededError(maxRequestBodySize)
		case errors.Is(err, io.EOF):
			return errs.NewInvalidJSONError(errors.New("request body is empty"))
		default:
			return errs.NewInvalidJSONError(err)
		}
	}
	if decoder.More() {
		return errs.NewInvalidJSONError(errors.New("request body must contain a single JSON object"))
	}
	return nil
}

// readRawJSON reads a size-limited body without decoding it.
func readRawJSON(w http.ResponseWriter, req *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxRequestBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errs.NewMaxBodySizeExceededError(maxRequestBodySize)
		}
		return nil, errs.NewBadRequestError("failed to read request body")
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, errs.NewInvalidJSONError(errors.New("request body is empty"))
	}
	return raw, nil
}
