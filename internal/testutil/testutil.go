package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alora-hq/alora/internal/auth"
	"github.com/alora-hq/alora/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.LinkedAccount{},
		&models.VerificationCode{},
		&models.PasswordReset{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.OrganizationInvite{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

var userSeq int

// CreateTestUser creates a verified local-password user with a unique
// email and username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	userSeq++
	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("test-%d@example.com", userSeq),
		Username:     fmt.Sprintf("testuser%d", userSeq),
		FullName:     "Test User",
		PasswordHash: &hash,
		AuthProvider: models.ProviderLocal,
		Verified:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestOrg creates an organization with the given user as its admin.
func CreateTestOrg(t *testing.T, db *gorm.DB, creator *models.User) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:            fmt.Sprintf("Test Org %d", creator.ID),
		CreatedByUserID: creator.ID,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	member := &models.OrganizationMember{
		UserID:         creator.ID,
		OrganizationID: org.ID,
		Roles:          models.RoleSet{models.RoleAdmin},
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create admin membership: %v", err)
	}

	return org
}

// AddTestMember adds the user to the organization with the given roles.
func AddTestMember(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User, roles ...string) *models.OrganizationMember {
	t.Helper()

	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}
	member := &models.OrganizationMember{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Roles:          models.RoleSet(roles),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	return member
}

// CreateTestJWTService creates a JWT service for testing.
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user.
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication.
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct.
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SentMail records a single outbound email for assertions.
type SentMail struct {
	Kind     string
	Email    string
	Username string
	Code     string
	OrgName  string
}

// MailRecorder captures dispatched mail instead of sending it. It
// satisfies both the verification and org-invite dispatch interfaces.
type MailRecorder struct {
	mu   sync.Mutex
	Sent []SentMail
}

func (r *MailRecorder) SendVerificationCode(email, username, code string) {
	r.record(SentMail{Kind: "verification", Email: email, Username: username, Code: code})
}

func (r *MailRecorder) SendPasswordReset(email, username, code string) {
	r.record(SentMail{Kind: "password_reset", Email: email, Username: username, Code: code})
}

func (r *MailRecorder) SendOrgInvite(email, username, orgName, code string) {
	r.record(SentMail{Kind: "org_invite", Email: email, Username: username, OrgName: orgName, Code: code})
}

func (r *MailRecorder) record(m SentMail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, m)
}

// Last returns the most recent mail of the given kind, or nil.
func (r *MailRecorder) Last(kind string) *SentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Sent) - 1; i >= 0; i-- {
		if r.Sent[i].Kind == kind {
			m := r.Sent[i]
			return &m
		}
	}
	return nil
}
