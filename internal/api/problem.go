package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fernledger/fern/internal/store"
)

// Problem represents an RFC 7807 problem details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemTypes maps HTTP status codes to problem type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusBadRequest: {
		typeURI: "https://fernledger.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusUnauthorized: {
		typeURI: "https://fernledger.dev/errors/unauthorized",
		title:   "Unauthorized",
	},
	http.StatusNotFound: {
		typeURI: "https://fernledger.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusRequestEntityTooLarge: {
		typeURI: "https://fernledger.dev/errors/payload-too-large",
		title:   "Payload Too Large",
	},
	http.StatusServiceUnavailable: {
		typeURI: "https://fernledger.dev/errors/service-unavailable",
		title:   "Service Unavailable",
	},
	http.StatusInternalServerError: {
		typeURI: "https://fernledger.dev/errors/internal",
		title:   "Internal Server Error",
	},
}

// WriteProblem writes an RFC 7807 problem+json response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt, ok := problemTypes[status]
	if !ok {
		pt = problemTypes[http.StatusInternalServerError]
		status = http.StatusInternalServerError
	}

	problem := Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(problem)
}

// MapStoreError maps store-layer sentinel errors to problem responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrUnknownEntityType),
		errors.Is(err, store.ErrMissingServerID):
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
	default:
		WriteProblem(w, r, http.StatusInternalServerError, "an internal error occurred")
	}
}
