package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/api/middleware"
	"github.com/alora-hq/alora/internal/database/models"
)

type AdminHandler struct {
	adminService *admin.Service
}

func NewAdminHandler(adminService *admin.Service) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func idParam(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	users, total, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]dto.UserDTO, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserDTO(&users[i]))
	}

	writeJSON(w, http.StatusOK, dto.PageResponse{Items: out, Total: total})
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	user, err := h.adminService.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}
	id, ok := idParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}

	user, err := h.adminService.UpdateUser(r.Context(), callerID, id, admin.UserPatch{
		Verified:      req.Verified,
		IsAdmin:       req.IsAdmin,
		ClearPassword: req.ClearPassword,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	if err := h.adminService.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User deleted"})
}

func (h *AdminHandler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	orgList, total, err := h.adminService.ListOrgs(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PageResponse{Items: orgList, Total: total})
}

func (h *AdminHandler) GetOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "orgID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	org, err := h.adminService.GetOrg(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

func (h *AdminHandler) UpdateOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "orgID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	var req dto.AdminUpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Name must be between 1 and 100 characters")
		return
	}

	org, err := h.adminService.UpdateOrg(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

func (h *AdminHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "orgID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	var req dto.AdminAddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "user_id is required")
		return
	}

	member, err := h.adminService.AddMember(r.Context(), id, req.UserID, models.RoleSet(req.Roles))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *AdminHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := idParam(r, "orgID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}
	userID, ok := idParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid user ID")
		return
	}

	if err := h.adminService.RemoveMember(r.Context(), orgID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

func (h *AdminHandler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "orgID")
	if !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid organization ID")
		return
	}

	if err := h.adminService.DeleteOrg(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Organization deleted"})
}

func (h *AdminHandler) TopOrgs(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))

	stats, err := h.adminService.TopOrgs(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
