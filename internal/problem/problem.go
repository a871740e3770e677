// Package problem writes RFC 7807 Problem Details responses for every
// AssetScout HTTP surface.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/HerbHall/assetscout/pkg/models"
)

// ContentType is the media type of a problem document.
const ContentType = "application/problem+json"

const typeBase = "https://assetscout.dev/problems/"

// Problem type URIs.
const (
	TypeBadRequest   = typeBase + "bad-request"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeNotFound     = typeBase + "not-found"
	TypeConflict     = typeBase + "conflict"
	TypeRateLimited  = typeBase + "rate-limited"
	TypeInternal     = typeBase + "internal-error"
)

var typesByStatus = map[int]string{
	http.StatusBadRequest:          TypeBadRequest,
	http.StatusUnauthorized:        TypeUnauthorized,
	http.StatusNotFound:            TypeNotFound,
	http.StatusConflict:            TypeConflict,
	http.StatusTooManyRequests:     TypeRateLimited,
	http.StatusInternalServerError: TypeInternal,
}

// TypeFor returns the problem type URI for an HTTP status, or
// "about:blank" for statuses without a dedicated type.
func TypeFor(status int) string {
	if t, ok := typesByStatus[status]; ok {
		return t
	}
	return "about:blank"
}

// New builds the problem for status with the standard title.
func New(status int, detail, instance string) models.APIProblem {
	return models.APIProblem{
		Type:     TypeFor(status),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// Encode writes p with its status code.
func Encode(w http.ResponseWriter, p models.APIProblem) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Write responds to r with a problem for status.
func Write(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Encode(w, New(status, detail, r.URL.Path))
}
