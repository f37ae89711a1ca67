package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/api/middleware"
	"github.com/alora-hq/alora/internal/database/models"
	"github.com/alora-hq/alora/internal/orgs"
)

type OrgHandler struct {
	orgService *orgs.Service
}

func NewOrgHandler(orgService *orgs.Service) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

func orgIDParam(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "orgID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	var req dto.CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	org, err := h.orgService.Create(r.Context(), req.Name, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

// ListMine returns the organizations the caller belongs to, each annotated
// with the caller's role set.
func (h *OrgHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	list, err := h.orgService.ListMine(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// List returns the public directory of organizations. By default the
// caller's own organizations are filtered out; ?include_mine=true keeps them.
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	includeMine := r.URL.Query().Get("include_mine") == "true"

	list, err := h.orgService.List(r.Context(), userID, includeMine)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.orgService.Get(r.Context(), orgID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *OrgHandler) Join(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orgService.Join(r.Context(), orgID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Joined organization"})
}

func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.orgService.ListMembers(r.Context(), orgID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *OrgHandler) UpdateMemberRoles(w http.ResponseWriter, r *http.Request) {
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
	targetID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 32)
	if err != nil || targetID == 0 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	var req dto.UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}

	if err := h.orgService.UpdateMemberRoles(r.Context(), orgID, userID, uint(targetID), models.RoleSet(req.Roles)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Roles updated"})
}

func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
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
	targetID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 32)
	if err != nil || targetID == 0 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	if err := h.orgService.RemoveMember(r.Context(), orgID, userID, uint(targetID)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

func (h *OrgHandler) Leave(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orgService.Leave(r.Context(), orgID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left organization"})
}
