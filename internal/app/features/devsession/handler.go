// internal/app/features/devsession/handler.go
package devsession

import (
	"errors"
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	userstore "github.com/dalemusser/tripdesk/internal/app/store/users"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/waffle/toolkit/validate"
	"go.uber.org/zap"
)

// Handler signs users in and out with a session cookie outside production.
// In production the authentication service issues the cookie or a bearer
// token instead.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

type signInRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type signInResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleSignIn handles POST /dev/session. The user is created on first use
// with a verified email, then stored in the session cookie.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	if req.Email == "" || !validate.SimpleEmailValid(req.Email) {
		respond.Error(w, h.Log, r, apperr.Invalid("email %q is not a valid address", req.Email))
		return
	}

	u, err := h.Users.Upsert(r.Context(), models.User{
		Name:          req.Name,
		Email:         req.Email,
		EmailVerified: true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, h.Log, r, apperr.Invalid("email %q is already taken", req.Email))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}

	if err := h.SessionMgr.Login(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("dev sign-in: save session", zap.Error(err))
		respond.Error(w, h.Log, r, err)
		return
	}
	h.Log.Info("dev session started", zap.String("user_id", u.ID.Hex()))
	respond.JSON(w, http.StatusOK, signInResponse{ID: u.ID.Hex(), Name: u.Name, Email: u.Email})
}

// HandleSignOut handles DELETE /dev/session.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Error("dev sign-out: save session", zap.Error(err))
	}
	respond.NoContent(w)
}
