package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/auth"
	"github.com/alora-hq/alora/internal/orgs"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: kind})
}

func writeValidationErrors(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Code:    dto.KindValidation,
		Details: details,
	})
}

// writeServiceError maps service sentinel errors to HTTP status plus the
// stable machine-checkable kind. Race losers detected at commit time arrive
// here as the same sentinels as pre-check failures.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	// Conflicts
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, auth.ErrProviderConflict),
		errors.Is(err, orgs.ErrNameTaken),
		errors.Is(err, orgs.ErrAlreadyMember),
		errors.Is(err, admin.ErrOrgNameTaken),
		errors.Is(err, admin.ErrAlreadyMember):
		writeError(w, http.StatusConflict, dto.KindConflict, err.Error())

	// Missing entities
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrCodeNotFound),
		errors.Is(err, auth.ErrLinkNotFound),
		errors.Is(err, orgs.ErrOrgNotFound),
		errors.Is(err, orgs.ErrMemberNotFound),
		errors.Is(err, orgs.ErrInviteNotFound),
		errors.Is(err, orgs.ErrTargetNotFound),
		errors.Is(err, admin.ErrUserNotFound),
		errors.Is(err, admin.ErrOrgNotFound),
		errors.Is(err, admin.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, dto.KindNotFound, err.Error())

	// Authentication failures
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNotVerified),
		errors.Is(err, auth.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, dto.KindAuthorization, err.Error())

	// Authorization failures
	case errors.Is(err, orgs.ErrNotMember),
		errors.Is(err, orgs.ErrNotAdmin),
		errors.Is(err, orgs.ErrAdminMustTransfer),
		errors.Is(err, orgs.ErrNotYourInvite):
		writeError(w, http.StatusForbidden, dto.KindAuthorization, err.Error())

	// Bad input
	case errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrCodeExpired),
		errors.Is(err, auth.ErrNoPassword),
		errors.Is(err, orgs.ErrInviteExpired),
		errors.Is(err, orgs.ErrInvalidRoles),
		errors.Is(err, admin.ErrInvalidRoles),
		errors.Is(err, admin.ErrSelfDemotion):
		writeError(w, http.StatusBadRequest, dto.KindValidation, err.Error())

	case errors.Is(err, orgs.ErrInviteExhausted):
		writeError(w, http.StatusBadRequest, dto.KindExhausted, err.Error())
	case errors.Is(err, orgs.ErrCodeGeneration):
		writeError(w, http.StatusInternalServerError, dto.KindExhausted, err.Error())

	// Provider failures
	case errors.Is(err, auth.ErrInvalidAssertion),
		errors.Is(err, auth.ErrMissingEmail):
		writeError(w, http.StatusBadRequest, dto.KindUpstream, err.Error())
	case errors.Is(err, auth.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, dto.KindUpstream, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, dto.KindInternal, "Internal server error")
	}
}
