package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/api/middleware"
	"github.com/alora-hq/alora/internal/orgs"
)

type InviteHandler struct {
	orgService *orgs.Service
}

func NewInviteHandler(orgService *orgs.Service) *InviteHandler {
	return &InviteHandler{orgService: orgService}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}
	orgID, ok := orgIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	var req dto.CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if req.MaxUses < 0 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "max_uses must be positive")
		return
	}

	invite, err := h.orgService.CreateInvite(r.Context(), orgID, userID, orgs.CreateInviteInput{
		TargetUsername: req.TargetUsername,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, invite)
}

// ListForOrg returns an organization's open invites. Admin-gated.
func (h *InviteHandler) ListForOrg(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}
	orgID, ok := orgIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	invites, err := h.orgService.ListOrgInvites(r.Context(), orgID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invites)
}

// ListMine returns pending invites directed at the caller.
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	invites, err := h.orgService.ListUserInvites(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invites)
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}
	orgID, ok := orgIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}
	inviteID, err := strconv.ParseUint(chi.URLParam(r, "inviteID"), 10, 32)
	if err != nil || inviteID == 0 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid invite ID")
		return
	}

	if err := h.orgService.RevokeInvite(r.Context(), orgID, userID, uint(inviteID)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Invite revoked"})
}

func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	var req dto.AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Code is required")
		return
	}

	org, err := h.orgService.AcceptInvite(r.Context(), req.Code, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}
