package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/api/middleware"
	"github.com/alora-hq/alora/internal/api/validation"
	"github.com/alora-hq/alora/internal/auth"
)

type UserHandler struct {
	authService *auth.Service
}

func NewUserHandler(authService *auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *UserHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	var req dto.UpdateInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if req.Email != nil && !validation.IsValidEmail(*req.Email) {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid email address")
		return
	}

	user, err := h.authService.UpdateInfo(r.Context(), userID, auth.UpdateInfoInput{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Gender:      req.Gender,
		Language:    req.Language,
		Timezone:    req.Timezone,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	var req dto.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Invalid request body")
		return
	}
	if ok, msg := validation.IsValidPassword(req.NewPassword); !ok {
		writeError(w, http.StatusBadRequest, dto.KindValidation, msg)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password changed"})
}

func (h *UserHandler) LinkedAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	links, err := h.authService.LinkedAccounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]dto.LinkedAccountDTO, 0, len(links))
	for _, link := range links {
		out = append(out, dto.NewLinkedAccountDTO(&link))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) UnlinkAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, "Unauthorized")
		return
	}

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, dto.KindValidation, "Provider is required")
		return
	}

	if err := h.authService.UnlinkAccount(r.Context(), userID, provider); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Account unlinked"})
}
