package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/inmatch/services"
)

type jsonResponse map[string]interface{}

const genericServerError = "the server encountered a problem and could not process your request"

// exposeErrors включает текст внутренних ошибок в ответы (только для development).
var exposeErrors atomic.Bool

// ExposeInternalErrors controls whether 500 responses carry the internal error text.
func ExposeInternalErrors(enabled bool) {
	exposeErrors.Store(enabled)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := decodeJSON(dec, dst, maxBytes); err != nil {
		return err
	}

	err := dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func decodeJSON(dec *json.Decoder, dst interface{}, maxBytes int) error {
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var invalidUnmarshalError *json.InvalidUnmarshalError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		if unmarshalTypeError.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return fmt.Errorf("body contains unknown key %s", fieldName)
	case errors.As(err, &maxBytesError):
		return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
	case errors.As(err, &invalidUnmarshalError):
		panic(err) // ошибка программиста: передан не указатель
	default:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message string, detail error) {
	env := jsonResponse{"message": message}
	if detail != nil {
		env["error"] = detail.Error()
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	var detail error
	if exposeErrors.Load() {
		detail = err
	}
	errorResponse(w, r, http.StatusInternalServerError, genericServerError, detail)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "the requested resource could not be found"
	}
	errorResponse(w, r, http.StatusNotFound, message, nil)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message, nil)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message, nil)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message, nil)
}

// storageErrorResponse передаёт клиенту текст ошибки хранилища, чтобы он мог повторить запрос.
func storageErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "object storage error", slog.String("path", r.URL.Path), slog.Any("error", err))

	var rerr *services.ReconcileError
	if errors.As(err, &rerr) {
		env := jsonResponse{
			"message":  "some videos could not be uploaded; nothing was changed",
			"error":    rerr.Error(),
			"failed":   rerr.Failed,
			"uploaded": rerr.Uploaded,
		}
		if werr := writeJSON(w, http.StatusInternalServerError, env, nil); werr != nil {
			slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", werr))
		}
		return
	}
	errorResponse(w, r, http.StatusInternalServerError, services.ErrStorageUploadFailed.Error(), err)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Невалидные данные
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrMatchDetailsExist):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrLeagueNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrMatchDetailsNotFound),
		errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrVideoRefNotFound),
		errors.Is(err, services.ErrAdminNotFound):
		notFoundResponse(w, r, err.Error())

	// Конфликты
	case errors.Is(err, services.ErrLeagueNameConflict),
		errors.Is(err, services.ErrLeagueInUse),
		errors.Is(err, services.ErrAdminEmailConflict):
		conflictResponse(w, r, err.Error())

	// Ошибки авторизации/доступа
	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrStorageUploadFailed):
		storageErrorResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", param, idStr)
	}
	return id, nil
}
