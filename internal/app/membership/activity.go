package membership

import (
	"context"
	"fmt"

	"github.com/dalemusser/tripdesk/internal/app/store/audit"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityQuery narrows an agency's audit trail. Zero values mean no filter.
type ActivityQuery struct {
	UserID    *primitive.ObjectID
	EventType string
	Limit     int64
	Offset    int64
}

// ActivityPage is one page of audit events, newest first.
type ActivityPage struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
}

// AgencyActivity returns the audit events recorded for the agency, including
// permission denials. Requires canManageSettings.
func (s *Service) AgencyActivity(ctx context.Context, caller Caller, agencyID primitive.ObjectID, q ActivityQuery) (page ActivityPage, err error) {
	defer func() { s.metrics.Operation("agency_activity", err) }()

	if _, err := s.guard.RequirePermission(ctx, caller, agencyID, permissions.ManageSettings); err != nil {
		return ActivityPage{}, err
	}
	if q.Offset < 0 {
		return ActivityPage{}, apperr.Invalid("offset must not be negative")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = defaultActivityLimit
	case q.Limit > maxActivityLimit:
		q.Limit = maxActivityLimit
	}

	filter := audit.QueryFilter{
		AgencyID:  &agencyID,
		UserID:    q.UserID,
		EventType: q.EventType,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	events, err := s.activity.Query(ctx, filter)
	if err != nil {
		return ActivityPage{}, fmt.Errorf("query activity: %w", err)
	}
	total, err := s.activity.CountByFilter(ctx, filter)
	if err != nil {
		return ActivityPage{}, fmt.Errorf("count activity: %w", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return ActivityPage{Events: events, Total: total}, nil
}
