// internal/app/features/agencies/activity.go
package agencies

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeActivity handles GET /agencies/{id}/activity.
// Query parameters: user (ObjectID hex), type (event type), limit, offset.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	q, err := parseActivityQuery(r)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	page, err := h.Svc.AgencyActivity(r.Context(), shared.Caller(r), id, q)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

func parseActivityQuery(r *http.Request) (membership.ActivityQuery, error) {
	v := r.URL.Query()
	q := membership.ActivityQuery{EventType: v.Get("type")}

	if s := v.Get("user"); s != "" {
		uid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return q, apperr.Invalid("user %q is not a valid id", s)
		}
		q.UserID = &uid
	}
	for _, p := range []struct {
		name string
		dst  *int64
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, apperr.Invalid("%s must be an integer", p.name)
		}
		*p.dst = n
	}
	return q, nil
}
