package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alora-hq/alora/internal/database/models"
)

// A unique violation at commit time means a concurrent signup won the
// race; the reported conflict must name the field that actually collided,
// not default to email.
func TestSignupConflictNamesCollidingField(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := &Service{db: db}
	require.NoError(t, db.Create(&models.User{
		Email:    "winner@example.com",
		Username: "winner",
	}).Error)

	ctx := context.Background()
	assert.ErrorIs(t, svc.signupConflict(ctx, "winner@example.com"), ErrEmailTaken)
	// Same username, different email: the username constraint fired.
	assert.ErrorIs(t, svc.signupConflict(ctx, "loser@example.com"), ErrUsernameTaken)
}
