package server

import (
	"encoding/json"
	"net/http"

	airerrors "github.com/airset-dev/airset/internal/errors"
)

// Sentinel errors for inspector operations. Returned errors carry the same
// code, so errors.Is matches them.
var (
	// ErrStoreNotFound is returned when no store is registered under a name.
	ErrStoreNotFound error = airerrors.New("E080")

	// ErrStoreExists is returned when a name is registered twice.
	ErrStoreExists error = airerrors.New("E081")

	// ErrInvalidBody is returned when a request body cannot be decoded.
	ErrInvalidBody error = airerrors.New("E082")

	// ErrStartFailed is returned when the listener cannot be started.
	ErrStartFailed error = airerrors.New("E083")
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error *airerrors.AirsetError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	ae, ok := err.(*airerrors.AirsetError)
	if !ok {
		ae = airerrors.Newf(airerrors.CategoryInspector, "%s", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: ae})
}

// writeJSON encodes v before writing the header, so values that cannot be
// encoded (cyclic store data) turn into a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(errorResponse{
			Error: airerrors.Newf(airerrors.CategoryInspector, "response could not be encoded: %v", err),
		})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
