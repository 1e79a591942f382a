// internal/app/features/agencies/agencies.go
package agencies

import (
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	agencystore "github.com/dalemusser/tripdesk/internal/app/store/agencies"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"github.com/dalemusser/tripdesk/internal/domain/models"
)

type createRequest struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Logo          string                 `json:"logo"`
	Website       string                 `json:"website"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	Address       *models.AgencyAddress  `json:"address"`
	BusinessType  string                 `json:"businessType"`
	LicenseNumber string                 `json:"licenseNumber"`
	Settings      *models.AgencySettings `json:"settings"`
}

// updateRequest carries a partial update; absent fields are left unchanged.
type updateRequest struct {
	Name          *string                `json:"name"`
	Description   *string                `json:"description"`
	Logo          *string                `json:"logo"`
	Website       *string                `json:"website"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	Address       *models.AgencyAddress  `json:"address"`
	BusinessType  *string                `json:"businessType"`
	LicenseNumber *string                `json:"licenseNumber"`
	Settings      *models.AgencySettings `json:"settings"`
	IsActive      *bool                  `json:"isActive"`
}

type permissionResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// ServeList handles GET /agencies.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListMyAgencies(r.Context(), shared.Caller(r))
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /agencies. The caller becomes the owner.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	agency, err := h.Svc.CreateAgency(r.Context(), shared.Caller(r), membership.AgencyInput{
		Name:          req.Name,
		Description:   req.Description,
		Logo:          req.Logo,
		Website:       req.Website,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		BusinessType:  req.BusinessType,
		LicenseNumber: req.LicenseNumber,
		Settings:      req.Settings,
	})
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, agency)
}

// ServeGet handles GET /agencies/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	agency, err := h.Svc.GetAgency(r.Context(), shared.Caller(r), id)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, agency)
}

// HandleUpdate handles PATCH /agencies/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	var req updateRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	agency, err := h.Svc.UpdateAgency(r.Context(), shared.Caller(r), id, agencystore.Update{
		Name:          req.Name,
		Description:   req.Description,
		Logo:          req.Logo,
		Website:       req.Website,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		BusinessType:  req.BusinessType,
		LicenseNumber: req.LicenseNumber,
		Settings:      req.Settings,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, agency)
}

// HandleDelete handles DELETE /agencies/{id}. Owner only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	if err := h.Svc.DeleteAgency(r.Context(), shared.Caller(r), id); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.NoContent(w)
}

// ServeStats handles GET /agencies/{id}/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	stats, err := h.Svc.AgencyStats(r.Context(), shared.Caller(r), id)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}
