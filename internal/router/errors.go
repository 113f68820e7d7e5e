package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fenix/internal/logger"
	"github.com/patric-chuzhbe/fenix/internal/models"
)

// Body keys used by the error responses. GET and POST endpoints answer with
// {"error": ...}, PATCH and DELETE with {"message": ...}.
const (
	keyError   = "error"
	keyMessage = "message"
)

const msgInternalError = "Error interno del servidor"

// apiError is an error that already knows how it is presented to the client.
type apiError struct {
	status  int
	key     string
	message string
	cause   error
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}

	return e.message
}

func (e *apiError) Unwrap() error {
	return e.cause
}

// newValidationError reports missing or malformed input. It is always raised before any store call.
func newValidationError(key, message string) error {
	return &apiError{status: http.StatusBadRequest, key: key, message: message}
}

// newNotFoundError reports a well-formed request for a document that does not exist.
func newNotFoundError(key, message string) error {
	return &apiError{status: http.StatusNotFound, key: key, message: message}
}

// newStoreError hides a store failure behind a generic message.
func newStoreError(key, message string, cause error) error {
	return &apiError{status: http.StatusInternalServerError, key: key, message: message, cause: cause}
}

type handlerFunc func(res http.ResponseWriter, req *http.Request) error

// handle adapts a handler that returns an error to http.HandlerFunc,
// routing every failure through writeError.
func handle(h handlerFunc) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		if err := h(res, req); err != nil {
			writeError(res, req, err)
		}
	}
}

// writeError is the single place where errors become HTTP responses.
// Anything that is not an *apiError is treated as an internal failure.
func writeError(res http.ResponseWriter, req *http.Request, err error) {
	var theAPIError *apiError
	if !errors.As(err, &theAPIError) {
		theAPIError = &apiError{
			status:  http.StatusInternalServerError,
			key:     keyError,
			message: msgInternalError,
			cause:   err,
		}
	}

	if theAPIError.status >= http.StatusInternalServerError {
		var storeErr *models.StoreError
		if errors.As(theAPIError.cause, &storeErr) {
			logger.Log.Errorw(
				"store operation failed",
				"op", storeErr.Op,
				"collection", storeErr.Collection,
				"method", req.Method,
				"uri", req.RequestURI,
				zap.Error(storeErr.Err),
			)
		} else {
			logger.Log.Errorw(
				"request failed",
				"method", req.Method,
				"uri", req.RequestURI,
				zap.Error(err),
			)
		}
	} else {
		logger.Log.Debugw(
			"request rejected",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", theAPIError.status,
			"reason", theAPIError.message,
		)
	}

	writeJSON(res, theAPIError.status, map[string]string{theAPIError.key: theAPIError.message})
}

func writeJSON(res http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorw("unable to encode the response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"` + keyError + `":"` + msgInternalError + `"}`)
	}

	res.Header().Set("Content-Type", "application/json; charset=utf-8")
	res.WriteHeader(status)
	if _, err := res.Write(body); err != nil {
		logger.Log.Debugw("error writing the response body", zap.Error(err))
	}
}
