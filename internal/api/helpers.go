package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/sdk"
)

// maxRequestBodySize limits request bodies (1MB)
const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestTooLargeError(w, r, "request body must not exceed 1MB")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeSDKError maps SDK precondition and remote errors to HTTP responses.
func writeSDKError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sdk.ErrNotInitialized):
		NotReadyError(w, r, err.Error())
	case errors.Is(err, sdk.ErrInvalidName):
		BadRequestError(w, r, ErrCodeInvalidKey, err.Error())
	case errors.Is(err, sdk.ErrUnidentifiableUser):
		BadRequestError(w, r, ErrCodeInvalidUser, err.Error())
	case errors.Is(err, sdk.ErrRemoteEvaluation):
		BadGatewayError(w, r, err.Error())
	default:
		InternalError(w, r, err.Error())
	}
}
