package orgs_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alora-hq/alora/internal/database/models"
	"github.com/alora-hq/alora/internal/orgs"
	"github.com/alora-hq/alora/internal/testutil"
)

func TestCreateInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mail := &testutil.MailRecorder{}
	svc := newTestService(t, db, mail)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Invite Org", admin.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, org.ID, member.ID))

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(invite.Code, fmt.Sprintf("%d-", org.ID)),
		"code embeds the organization id: %s", invite.Code)
	assert.Equal(t, 1, invite.MaxUses)
	assert.Nil(t, invite.TargetUserID)
	assert.Nil(t, mail.Last("org_invite"), "open invites are not mailed")

	// Plain members cannot mint invites.
	_, err = svc.CreateInvite(ctx, org.ID, member.ID, orgs.CreateInviteInput{})
	assert.ErrorIs(t, err, orgs.ErrNotAdmin)
}

func TestCreateDirectedInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mail := &testutil.MailRecorder{}
	svc := newTestService(t, db, mail)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	target := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Directed Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{
		TargetUsername: target.Username,
	})
	require.NoError(t, err)
	require.NotNil(t, invite.TargetUserID)
	assert.Equal(t, target.ID, *invite.TargetUserID)

	sent := mail.Last("org_invite")
	require.NotNil(t, sent, "directed invites notify the target")
	assert.Equal(t, target.Email, sent.Email)
	assert.Equal(t, invite.Code, sent.Code)
	assert.Equal(t, org.Name, sent.OrgName)

	_, err = svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{
		TargetUsername: "nobody",
	})
	assert.ErrorIs(t, err, orgs.ErrTargetNotFound)
}

func TestAcceptInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	joiner := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Accept Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{})
	require.NoError(t, err)

	joined, err := svc.AcceptInvite(ctx, invite.Code, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, joined.ID)

	membership, err := svc.RequireMember(ctx, org.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSet{models.RoleMember}, membership.Roles)

	// A single-use invite is deleted on redemption.
	var gone models.OrganizationInvite
	err = db.Where("id = ?", invite.ID).First(&gone).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = svc.AcceptInvite(ctx, invite.Code, testutil.CreateTestUser(t, db).ID)
	assert.ErrorIs(t, err, orgs.ErrInviteNotFound)

	_, err = svc.AcceptInvite(ctx, "0-nosuch", joiner.ID)
	assert.ErrorIs(t, err, orgs.ErrInviteNotFound)
}

func TestAcceptDirectedInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	target := testutil.CreateTestUser(t, db)
	stranger := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Target Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{
		TargetUsername: target.Username,
	})
	require.NoError(t, err)

	mine, err := svc.ListUserInvites(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.AcceptInvite(ctx, invite.Code, stranger.ID)
	assert.ErrorIs(t, err, orgs.ErrNotYourInvite)

	_, err = svc.AcceptInvite(ctx, invite.Code, target.ID)
	require.NoError(t, err)
}

func TestAcceptExpiredInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	joiner := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Expired Org", admin.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{ExpiresAt: &past})
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, invite.Code, joiner.ID)
	assert.ErrorIs(t, err, orgs.ErrInviteExpired)
}

func TestAcceptMultiUseInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	org, err := svc.Create(ctx, "Multi Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{MaxUses: 2})
	require.NoError(t, err)

	first := testutil.CreateTestUser(t, db)
	second := testutil.CreateTestUser(t, db)
	third := testutil.CreateTestUser(t, db)

	_, err = svc.AcceptInvite(ctx, invite.Code, first.ID)
	require.NoError(t, err)

	// One use left, the row survives with uses=1.
	var remaining models.OrganizationInvite
	require.NoError(t, db.Where("id = ?", invite.ID).First(&remaining).Error)
	assert.Equal(t, 1, remaining.Uses)

	_, err = svc.AcceptInvite(ctx, invite.Code, second.ID)
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, invite.Code, third.ID)
	assert.ErrorIs(t, err, orgs.ErrInviteNotFound, "exhausted invites are deleted")
}

// A redemption that races another sees a stale use count at its validation
// read; the exhaustion delete must follow the stored count, not the
// snapshot, or the exhausted row is left behind.
func TestAcceptInviteRacingUseStillDeletesExhaustedRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	redeemer := testutil.CreateTestUser(t, db)
	org, err := svc.Create(ctx, "Race Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{MaxUses: 2})
	require.NoError(t, err)

	// Burn one use after the redeemer's validation read but before its
	// commit, as a concurrent redemption would.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("burn_invite_use", func(d *gorm.DB) {
		if d.Statement.Table != "organization_members" {
			return
		}
		d.Session(&gorm.Session{NewDB: true}).
			Model(&models.OrganizationInvite{}).
			Where("id = ?", invite.ID).
			Update("uses", gorm.Expr("uses + 1"))
	}))
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("burn_invite_use")
	})

	_, err = svc.AcceptInvite(ctx, invite.Code, redeemer.ID)
	require.NoError(t, err)

	var count int64
	db.Model(&models.OrganizationInvite{}).Where("id = ?", invite.ID).Count(&count)
	assert.Zero(t, count, "invite at max uses must not linger")
}

func TestAcceptInviteAlreadyMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	org, err := svc.Create(ctx, "Member Org", admin.ID)
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{MaxUses: 5})
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, invite.Code, admin.ID)
	assert.ErrorIs(t, err, orgs.ErrAlreadyMember)

	// A failed redemption must not burn a use.
	var unchanged models.OrganizationInvite
	require.NoError(t, db.Where("id = ?", invite.ID).First(&unchanged).Error)
	assert.Equal(t, 0, unchanged.Uses)
}

func TestRevokeInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)

	org, err := svc.Create(ctx, "Revoke Org", admin.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, org.ID, member.ID))

	invite, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{})
	require.NoError(t, err)

	err = svc.RevokeInvite(ctx, org.ID, member.ID, invite.ID)
	assert.ErrorIs(t, err, orgs.ErrNotAdmin)

	require.NoError(t, svc.RevokeInvite(ctx, org.ID, admin.ID, invite.ID))
	err = svc.RevokeInvite(ctx, org.ID, admin.ID, invite.ID)
	assert.ErrorIs(t, err, orgs.ErrInviteNotFound)

	_, err = svc.AcceptInvite(ctx, invite.Code, member.ID)
	assert.ErrorIs(t, err, orgs.ErrInviteNotFound)
}

func TestListOrgInvites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	admin := testutil.CreateTestUser(t, db)
	org, err := svc.Create(ctx, "List Org", admin.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateInvite(ctx, org.ID, admin.ID, orgs.CreateInviteInput{})
		require.NoError(t, err)
	}

	invites, err := svc.ListOrgInvites(ctx, org.ID, admin.ID)
	require.NoError(t, err)
	assert.Len(t, invites, 3)

	outsider := testutil.CreateTestUser(t, db)
	_, err = svc.ListOrgInvites(ctx, org.ID, outsider.ID)
	assert.ErrorIs(t, err, orgs.ErrNotAdmin)
}
