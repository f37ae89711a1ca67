package admin_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/alora-hq/alora/internal/admin"
	"github.com/alora-hq/alora/internal/database/models"
	"github.com/alora-hq/alora/internal/testutil"
)

func newTestService(t *testing.T) (*admin.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return admin.NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func TestListUsersPagination(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		testutil.CreateTestUser(t, db)
	}

	users, total, err := svc.ListUsers(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, users, 2)

	rest, _, err := svc.ListUsers(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestUpdateUserFlags(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	caller := testutil.CreateTestUser(t, db)
	target := testutil.CreateTestUser(t, db)

	yes := true
	updated, err := svc.UpdateUser(ctx, caller.ID, target.ID, admin.UserPatch{IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)

	no := false
	_, err = svc.UpdateUser(ctx, caller.ID, caller.ID, admin.UserPatch{IsAdmin: &no})
	assert.ErrorIs(t, err, admin.ErrSelfDemotion)

	_, err = svc.UpdateUser(ctx, caller.ID, 9999, admin.UserPatch{IsAdmin: &yes})
	assert.ErrorIs(t, err, admin.ErrUserNotFound)
}

func TestUpdateUserClearPassword(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	caller := testutil.CreateTestUser(t, db)
	target := testutil.CreateTestUser(t, db)
	require.True(t, target.HasPassword())

	_, err := svc.UpdateUser(ctx, caller.ID, target.ID, admin.UserPatch{ClearPassword: true})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, target.ID).Error)
	assert.False(t, reloaded.HasPassword())
}

func TestOrgManagement(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	org := testutil.CreateTestOrg(t, db, owner)
	other := testutil.CreateTestOrg(t, db, outsider)

	detail, err := svc.GetOrg(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, detail.MemberList, 1)

	renamed, err := svc.UpdateOrg(ctx, org.ID, "renamed-org")
	require.NoError(t, err)
	assert.Equal(t, "renamed-org", renamed.Name)

	_, err = svc.UpdateOrg(ctx, org.ID, other.Name)
	assert.ErrorIs(t, err, admin.ErrOrgNameTaken)

	_, err = svc.GetOrg(ctx, 9999)
	assert.ErrorIs(t, err, admin.ErrOrgNotFound)
}

func TestAdminMemberManagement(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	recruit := testutil.CreateTestUser(t, db)
	org := testutil.CreateTestOrg(t, db, owner)

	member, err := svc.AddMember(ctx, org.ID, recruit.ID, nil)
	require.NoError(t, err)
	assert.True(t, member.Roles.Contains(models.RoleMember))

	_, err = svc.AddMember(ctx, org.ID, recruit.ID, nil)
	assert.ErrorIs(t, err, admin.ErrAlreadyMember)

	_, err = svc.AddMember(ctx, org.ID, owner.ID, models.RoleSet{"czar"})
	assert.ErrorIs(t, err, admin.ErrInvalidRoles)
	_, err = svc.AddMember(ctx, 9999, recruit.ID, nil)
	assert.ErrorIs(t, err, admin.ErrOrgNotFound)
	_, err = svc.AddMember(ctx, org.ID, 9999, nil)
	assert.ErrorIs(t, err, admin.ErrUserNotFound)

	require.NoError(t, svc.RemoveMember(ctx, org.ID, recruit.ID))
	assert.ErrorIs(t, svc.RemoveMember(ctx, org.ID, recruit.ID), admin.ErrMemberNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	victim := testutil.CreateTestUser(t, db)
	org := testutil.CreateTestOrg(t, db, owner)
	testutil.AddTestMember(t, db, org, victim)

	require.NoError(t, db.Create(&models.LinkedAccount{
		UserID:   victim.ID,
		Provider: models.ProviderGoogle,
		Email:    victim.Email,
	}).Error)
	require.NoError(t, db.Create(&models.PasswordReset{
		Email: victim.Email,
		Code:  "reset-code",
	}).Error)

	require.NoError(t, svc.DeleteUser(ctx, victim.ID))

	var count int64
	db.Model(&models.OrganizationMember{}).Where("user_id = ?", victim.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.LinkedAccount{}).Where("user_id = ?", victim.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.PasswordReset{}).Where("email = ?", victim.Email).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.DeleteUser(ctx, victim.ID), admin.ErrUserNotFound)
}

func TestDeleteOrgCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	org := testutil.CreateTestOrg(t, db, owner)

	require.NoError(t, db.Create(&models.OrganizationInvite{
		OrgID:   org.ID,
		Code:    "1-abcdef",
		MaxUses: 1,
	}).Error)

	require.NoError(t, svc.DeleteOrg(ctx, org.ID))

	var count int64
	db.Model(&models.OrganizationMember{}).Where("organization_id = ?", org.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.OrganizationInvite{}).Where("org_id = ?", org.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, db.First(&models.Organization{}, org.ID).Error, gorm.ErrRecordNotFound)
}

func TestTopOrgsAndStats(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	a := testutil.CreateTestUser(t, db)
	b := testutil.CreateTestUser(t, db)
	c := testutil.CreateTestUser(t, db)

	big := testutil.CreateTestOrg(t, db, a)
	testutil.AddTestMember(t, db, big, b)
	testutil.AddTestMember(t, db, big, c)
	small := testutil.CreateTestOrg(t, db, b)

	top, err := svc.TopOrgs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, big.ID, top[0].ID)
	assert.Equal(t, int64(3), top[0].MemberCount)
	assert.Equal(t, small.ID, top[1].ID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.VerifiedUsers)
	assert.Equal(t, int64(2), stats.TotalOrgs)
	assert.Zero(t, stats.OpenInvites)
}
