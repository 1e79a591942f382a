// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/tripdesk/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for agency, membership and invitation changes.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// Security controls logging for permission denials. Same values as Admin.
	Security string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.AgencyID != nil {
		fields = append(fields, zap.String("agency_id", event.AgencyID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op, so tests and tools may omit auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategorySecurity:
		setting = l.config.Security
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) admin(ctx context.Context, eventType string, agencyID, actorID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		AgencyID:  &agencyID,
		ActorID:   &actorID,
		UserID:    userID,
		Success:   true,
		Details:   details,
	})
}

// --- Agency events ---

// AgencyCreated logs creation of an agency by its owner.
func (l *Logger) AgencyCreated(ctx context.Context, agencyID, ownerID primitive.ObjectID, name string) {
	l.admin(ctx, audit.EventAgencyCreated, agencyID, ownerID, &ownerID, map[string]string{"name": name})
}

// AgencyUpdated logs a profile or settings change.
func (l *Logger) AgencyUpdated(ctx context.Context, agencyID, actorID primitive.ObjectID) {
	l.admin(ctx, audit.EventAgencyUpdated, agencyID, actorID, nil, nil)
}

// AgencyDeleted logs deletion of an agency and how much was cascaded.
func (l *Logger) AgencyDeleted(ctx context.Context, agencyID, actorID primitive.ObjectID, name string, members, invitations int64) {
	l.admin(ctx, audit.EventAgencyDeleted, agencyID, actorID, nil, map[string]string{
		"name":                name,
		"members_deleted":     strconv.FormatInt(members, 10),
		"invitations_deleted": strconv.FormatInt(invitations, 10),
	})
}

// --- Membership events ---

// MemberUpdated logs a role, permission or status change.
func (l *Logger) MemberUpdated(ctx context.Context, agencyID, actorID, userID primitive.ObjectID, role, status string) {
	l.admin(ctx, audit.EventMemberUpdated, agencyID, actorID, &userID, map[string]string{"role": role, "status": status})
}

// MemberRemoved logs removal of a member by a manager.
func (l *Logger) MemberRemoved(ctx context.Context, agencyID, actorID, userID primitive.ObjectID, role string) {
	l.admin(ctx, audit.EventMemberRemoved, agencyID, actorID, &userID, map[string]string{"role": role})
}

// MemberLeft logs a member leaving on their own.
func (l *Logger) MemberLeft(ctx context.Context, agencyID, userID primitive.ObjectID, role string) {
	l.admin(ctx, audit.EventMemberLeft, agencyID, userID, &userID, map[string]string{"role": role})
}

// --- Invitation events ---

// InvitationCreated logs a new pending invitation.
func (l *Logger) InvitationCreated(ctx context.Context, agencyID, actorID, invitationID primitive.ObjectID, email, role string) {
	l.admin(ctx, audit.EventInvitationCreated, agencyID, actorID, nil, map[string]string{
		"invitation_id": invitationID.Hex(),
		"email":         email,
		"role":          role,
	})
}

// InvitationAccepted logs redemption of an invitation.
func (l *Logger) InvitationAccepted(ctx context.Context, agencyID, userID, invitationID primitive.ObjectID, role string) {
	l.admin(ctx, audit.EventInvitationAccepted, agencyID, userID, &userID, map[string]string{
		"invitation_id": invitationID.Hex(),
		"role":          role,
	})
}

// InvitationExpired logs an invitation found overdue at redemption time.
func (l *Logger) InvitationExpired(ctx context.Context, agencyID, userID, invitationID primitive.ObjectID) {
	l.admin(ctx, audit.EventInvitationExpired, agencyID, userID, nil, map[string]string{
		"invitation_id": invitationID.Hex(),
	})
}

// InvitationCanceled logs cancellation of a pending invitation.
func (l *Logger) InvitationCanceled(ctx context.Context, agencyID, actorID, invitationID primitive.ObjectID) {
	l.admin(ctx, audit.EventInvitationCanceled, agencyID, actorID, nil, map[string]string{
		"invitation_id": invitationID.Hex(),
	})
}

// --- Security events ---

// PermissionDenied logs a failed authorization check.
func (l *Logger) PermissionDenied(ctx context.Context, agencyID, actorID primitive.ObjectID, required, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventPermissionDenied,
		AgencyID:      &agencyID,
		ActorID:       &actorID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"required": required},
	})
}
