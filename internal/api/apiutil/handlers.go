package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/models"
)

const (
	maxBodyBytes      = 1 << 20
	defaultRetryAfter = 2 * time.Second
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
	// RetryAfter is sent as a Retry-After header when set.
	RetryAfter time.Duration
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// RateLimited reports a throttled request.
func RateLimited(retryAfter time.Duration, reason string) HandlerError {
	return HandlerError{
		Status:     http.StatusTooManyRequests,
		Message:    "Too many booking requests, try again later",
		Err:        errors.New(reason),
		RetryAfter: retryAfter,
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Field     *FieldError `json:"field,omitempty"`
	Retryable bool        `json:"retryable"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusFor maps an error onto its HTTP status and error code.
func StatusFor(err error) (int, string) {
	var herr HandlerError
	var fieldErr FieldError
	switch {
	case errors.As(err, &herr):
		return herr.Status, codeForStatus(herr.Status)
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrInfrastructure):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// BodyFor builds the error envelope for err. Internal errors never leak their message.
func BodyFor(err error) ErrorBody {
	status, code := StatusFor(err)
	body := ErrorBody{Code: code, Retryable: models.IsRetryable(err) || status == http.StatusTooManyRequests}

	var herr HandlerError
	var invalid models.InvalidRequestError
	var fieldErr FieldError
	switch {
	case errors.As(err, &herr):
		body.Error = herr.Message
	case errors.As(err, &fieldErr):
		body.Error = fieldErr.Error()
		body.Field = &fieldErr
	case errors.As(err, &invalid):
		body.Error = invalid.Error()
		body.Field = &FieldError{Field: invalid.Field, Reason: invalid.Reason}
	case status == http.StatusInternalServerError:
		body.Error = "Internal Server Error"
	case status == http.StatusServiceUnavailable:
		body.Error = "Booking store is temporarily unavailable, try again"
	default:
		body.Error = err.Error()
	}
	return body
}

// WriteError logs and writes err as a JSON error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	status, _ := StatusFor(err)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		var herr HandlerError
		if errors.As(err, &herr) && herr.RetryAfter > 0 {
			retryAfter = herr.RetryAfter
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}

	if writeErr := WriteJSON(w, status, BodyFor(err)); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
