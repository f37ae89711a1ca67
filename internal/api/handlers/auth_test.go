package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/api"
	"github.com/alora-hq/alora/internal/api/dto"
	"github.com/alora-hq/alora/internal/auth"
	"github.com/alora-hq/alora/internal/orgs"
	"github.com/alora-hq/alora/internal/tasks"
	"github.com/alora-hq/alora/internal/testutil"
)

// fakeProvider returns a canned identity for any credential.
type fakeProvider struct {
	identity *auth.ProviderIdentity
	err      error
}

func (f *fakeProvider) Verify(ctx context.Context, token string) (*auth.ProviderIdentity, error) {
	return f.identity, f.err
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*auth.ProviderIdentity, error) {
	return f.identity, f.err
}

type testEnv struct {
	router   http.Handler
	db       *gorm.DB
	mail     *testutil.MailRecorder
	jwt      *auth.JWTService
	provider *fakeProvider
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mail := &testutil.MailRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := testutil.CreateTestJWTService()
	provider := &fakeProvider{}

	authService := auth.NewService(auth.ServiceConfig{
		DB:              db,
		JWT:             jwtService,
		Google:          provider,
		GitHub:          provider,
		Mail:            mail,
		Logger:          logger,
		VerificationTTL: 15 * time.Minute,
		ResetTTL:        time.Hour,
	})
	orgService := orgs.NewService(db, mail, logger)
	adminService := admin.NewService(db, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:           db,
		Logger:       logger,
		JWTService:   jwtService,
		AuthService:  authService,
		OrgService:   orgService,
		AdminService: adminService,
	})

	return &testEnv{router: router, db: db, mail: mail, jwt: jwtService, provider: provider}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, method, path, body, token))
	return rr
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	env := setupEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Email:    "flow@example.com",
		FullName: "Flow User",
		Username: "flowuser",
		Password: "password123",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var created dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &created)
	assert.False(t, created.Verified)

	// Login is gated until verification.
	rr = env.do(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "flow@example.com",
		Password: "password123",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, dto.KindAuthorization, errResp.Code)

	code := env.mail.Last("verification")
	require.NotNil(t, code)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/verify-email", dto.VerifyEmailRequest{
		Email: "flow@example.com",
		Code:  code.Code,
	}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "flow@example.com",
		Password: "password123",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var authResp dto.AuthResponse
	testutil.ParseJSONResponse(t, rr, &authResp)
	require.NotEmpty(t, authResp.Token)

	// The token works against protected endpoints.
	rr = env.do(t, http.MethodGet, "/api/v1/users/me", nil, authResp.Token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var me dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &me)
	assert.Equal(t, "flowuser", me.Username)
	assert.True(t, me.Verified)
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	env := setupEnv(t)
	existing := testutil.CreateTestUser(t, env.db)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Email:    existing.Email,
		FullName: "Brand New",
		Username: "brandnew",
		Password: "password123",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusConflict)

	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, dto.KindConflict, errResp.Code)
}

func TestSignupValidation(t *testing.T) {
	env := setupEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/auth/signup", dto.SignupRequest{
		Email:    "not-an-email",
		Username: "x",
		Password: "short",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, dto.KindValidation, errResp.Code)
	assert.Contains(t, errResp.Details, "email")
	assert.Contains(t, errResp.Details, "username")
	assert.Contains(t, errResp.Details, "password")
}

func TestGoogleLoginConvergesOnLocalAccount(t *testing.T) {
	env := setupEnv(t)
	local := testutil.CreateTestUser(t, env.db)
	env.provider.identity = &auth.ProviderIdentity{Email: local.Email, Name: local.FullName}

	rr := env.do(t, http.MethodPost, "/api/v1/auth/google", dto.GoogleAuthRequest{Token: "fake"}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var authResp dto.AuthResponse
	testutil.ParseJSONResponse(t, rr, &authResp)
	assert.Equal(t, local.ID, authResp.User.ID)

	// The new link shows up on the linked-accounts listing.
	rr = env.do(t, http.MethodGet, "/api/v1/users/me/linked-accounts", nil, authResp.Token)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var links []dto.LinkedAccountDTO
	testutil.ParseJSONResponse(t, rr, &links)
	require.Len(t, links, 1)
	assert.Equal(t, "google", links[0].Provider)
}

func TestGoogleLoginBadAssertion(t *testing.T) {
	env := setupEnv(t)
	env.provider.err = auth.ErrInvalidAssertion

	rr := env.do(t, http.MethodPost, "/api/v1/auth/google", dto.GoogleAuthRequest{Token: "bad"}, "")
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, dto.KindUpstream, errResp.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)

	// Unknown emails get the same answer as known ones.
	rr := env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: "ghost@example.com"}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", dto.ForgotPasswordRequest{Email: user.Email}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	sent := env.mail.Last("password_reset")
	require.NotNil(t, sent)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/reset-password", dto.ResetPasswordRequest{
		Email:       user.Email,
		Code:        sent.Code,
		NewPassword: "resetpassword1",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    user.Email,
		Password: "resetpassword1",
	}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestCheckEmail(t *testing.T) {
	env := setupEnv(t)
	user := testutil.CreateTestUser(t, env.db)

	rr := env.do(t, http.MethodGet, "/api/v1/auth/check-email?email="+user.Email, nil, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var status auth.EmailStatus
	testutil.ParseJSONResponse(t, rr, &status)
	assert.True(t, status.Exists)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	env := setupEnv(t)

	rr := env.do(t, http.MethodGet, "/api/v1/users/me", nil, "")
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, http.MethodGet, "/api/v1/orgs/", nil, "not-a-token")
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

// The dispatcher without an asynq client must still satisfy the mail
// interfaces; routing through it exercises the inline fallback.
var _ auth.EmailDispatcher = (*tasks.Dispatcher)(nil)
var _ orgs.InviteNotifier = (*tasks.Dispatcher)(nil)
