// internal/app/features/shared/request.go
package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/policy/agencypolicy"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/dalemusser/tripdesk/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller returns the signed-in user as the service sees it. The zero Caller
// means nobody is signed in.
func Caller(r *http.Request) agencypolicy.Caller {
	u, ok := auth.CurrentUser(r)
	if !ok || u == nil {
		return agencypolicy.Caller{}
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return agencypolicy.Caller{}
	}
	return agencypolicy.Caller{
		UserID:        id,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

// IDParam parses the chi URL parameter key as an ObjectID. A malformed id
// cannot name an existing record, so it reads as not found.
func IDParam(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, key))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(key)
	}
	return id, nil
}

// DecodeJSON reads a JSON body into v. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.Invalid("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is required")
		}
		return apperr.Invalid("invalid request body: %v", err)
	}
	return nil
}
