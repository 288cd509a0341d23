package account

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) (*Service, *session.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&AccountModel{}, &session.SessionModel{}, &session.RegistrationBlockModel{}))

	repo := NewRepository(db)
	sessions := session.NewService(db, repo)
	storageClient := storage.NewClient(&config.Config{StorageUrl: "http://127.0.0.1:1", StorageToken: "test"})
	return NewService(db, sessions, storageClient), sessions, db
}

func seedAccount(t *testing.T, db *gorm.DB, acc AccountModel) int64 {
	t.Helper()
	if acc.RegistrationDate.IsZero() {
		acc.RegistrationDate = time.Now()
	}
	require.NoError(t, db.Create(&acc).Error)
	return acc.ID
}

func strPtr(s string) *string { return &s }

func statusOf(t *testing.T, err error) *response.StatusError {
	t.Helper()
	require.Error(t, err)
	statusErr, ok := err.(*response.StatusError)
	require.True(t, ok, "expected a status error, got %v", err)
	return statusErr
}

func TestEditProfileSelf(t *testing.T) {
	service, _, db := testService(t)
	id := seedAccount(t, db, AccountModel{Username: strPtr("alice"), Rights: DefaultRights()})

	err := service.EditProfile(id, id, ProfileEditInput{
		Username: strPtr("alice2"),
		About:    strPtr("modding since 2020"),
	})
	require.NoError(t, err)

	acc, err := service.Repo().GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, acc.Username)
	assert.Equal(t, "alice2", *acc.Username)
	assert.Equal(t, "modding since 2020", acc.About)
	require.NotNil(t, acc.LastUsernameReset)

	// the second rename hits the 30 day cooldown
	err = service.EditProfile(id, id, ProfileEditInput{Username: strPtr("alice3")})
	assert.EqualValues(t, 425, statusOf(t, err).Status)

	// about edits are not affected by the username cooldown
	require.NoError(t, service.EditProfile(id, id, ProfileEditInput{About: strPtr("still here")}))
}

func TestEditProfileValidation(t *testing.T) {
	service, _, db := testService(t)
	id := seedAccount(t, db, AccountModel{Username: strPtr("bob"), Rights: DefaultRights()})

	err := service.EditProfile(id, id, ProfileEditInput{Username: strPtr("x")})
	assert.EqualValues(t, 411, statusOf(t, err).Status)

	long := make([]byte, AboutMaxLen+1)
	err = service.EditProfile(id, id, ProfileEditInput{About: strPtr(string(long))})
	assert.EqualValues(t, 413, statusOf(t, err).Status)

	err = service.EditProfile(id, id, ProfileEditInput{NewPassword: strPtr("short")})
	assert.EqualValues(t, 411, statusOf(t, err).Status)
}

func TestEditProfilePassword(t *testing.T) {
	service, sessions, db := testService(t)
	id := seedAccount(t, db, AccountModel{Username: strPtr("carol"), Rights: DefaultRights()})

	require.NoError(t, service.EditProfile(id, id, ProfileEditInput{NewPassword: strPtr("hunter22")}))

	accountID, _, err := sessions.PasswordLogin("carol", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, accountID)

	// the second reset hits the 5 minute cooldown
	err = service.EditProfile(id, id, ProfileEditInput{NewPassword: strPtr("hunter23")})
	assert.EqualValues(t, 425, statusOf(t, err).Status)

	// rewind the anchor and disable the password entirely
	past := time.Now().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&AccountModel{}).Where("id = ?", id).
		Update("last_password_reset", past).Error)
	require.NoError(t, service.EditProfile(id, id, ProfileEditInput{OffPassword: true}))

	_, _, err = sessions.PasswordLogin("carol", "hunter22")
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestEditProfileMute(t *testing.T) {
	service, _, db := testService(t)

	rights := DefaultRights()
	rights.MuteUsers = true
	moderator := seedAccount(t, db, AccountModel{Username: strPtr("mod"), Rights: rights})
	plain := seedAccount(t, db, AccountModel{Username: strPtr("plain"), Rights: DefaultRights()})
	target := seedAccount(t, db, AccountModel{Username: strPtr("victim"), Rights: DefaultRights()})

	until := time.Now().Add(time.Hour)
	require.NoError(t, service.EditProfile(moderator, target, ProfileEditInput{Mute: &until}))

	acc, err := service.Repo().GetByID(target)
	require.NoError(t, err)
	assert.True(t, acc.Muted(time.Now()))

	// without the mute_users right the edit is forbidden
	err = service.EditProfile(plain, target, ProfileEditInput{Mute: &until})
	assert.EqualValues(t, 403, statusOf(t, err).Status)

	// a mute ending in the past is rejected
	past := time.Now().Add(-time.Hour)
	err = service.EditProfile(moderator, target, ProfileEditInput{Mute: &past})
	assert.EqualValues(t, 411, statusOf(t, err).Status)

	// third parties cannot touch other fields even alongside a mute
	err = service.EditProfile(moderator, target, ProfileEditInput{Mute: &until, About: strPtr("gotcha")})
	assert.EqualValues(t, 403, statusOf(t, err).Status)
}

func TestEditRightsAdminOnly(t *testing.T) {
	service, _, db := testService(t)

	admin := seedAccount(t, db, AccountModel{Username: strPtr("root"), Admin: true})
	target := seedAccount(t, db, AccountModel{Username: strPtr("dave"), Rights: DefaultRights()})

	off := false
	err := service.EditRights(target, target, RightsUpdate{PublishMods: &off})
	assert.EqualValues(t, 403, statusOf(t, err).Status)

	require.NoError(t, service.EditRights(admin, target, RightsUpdate{PublishMods: &off}))

	acc, err := service.Repo().GetByID(target)
	require.NoError(t, err)
	assert.False(t, acc.Rights.PublishMods)
	assert.True(t, acc.Rights.ChangeSelfMods)
}

func TestDeleteAnonymizesAndBlocks(t *testing.T) {
	service, sessions, db := testService(t)

	yandexID := int64(77)
	id := seedAccount(t, db, AccountModel{
		Username: strPtr("erin"),
		YandexID: &yandexID,
		About:    "bye",
		Rights:   DefaultRights(),
	})
	pair, err := sessions.IssueSession(id, "password")
	require.NoError(t, err)

	require.NoError(t, service.Delete(id))

	acc, err := service.Repo().GetByID(id)
	require.NoError(t, err)
	assert.Nil(t, acc.Username)
	assert.Nil(t, acc.YandexID)
	assert.Empty(t, acc.About)

	_, err = sessions.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	var blocks int64
	require.NoError(t, db.Model(&session.RegistrationBlockModel{}).
		Where("yandex_id = ?", yandexID).Count(&blocks).Error)
	assert.EqualValues(t, 1, blocks)
}

func TestDisconnectKeepsLastService(t *testing.T) {
	service, _, db := testService(t)

	yandexID := int64(5)
	both := seedAccount(t, db, AccountModel{Username: strPtr("frank"), YandexID: &yandexID, GoogleID: strPtr("g-1")})
	single := seedAccount(t, db, AccountModel{Username: strPtr("grace"), GoogleID: strPtr("g-2")})

	err := service.Disconnect(both, "vk")
	assert.EqualValues(t, 400, statusOf(t, err).Status)

	err = service.Disconnect(single, "google")
	assert.EqualValues(t, 406, statusOf(t, err).Status)

	require.NoError(t, service.Disconnect(both, "yandex"))
	acc, err := service.Repo().GetByID(both)
	require.NoError(t, err)
	assert.Nil(t, acc.YandexID)
	require.NotNil(t, acc.GoogleID)

	// the remaining service can no longer be removed
	err = service.Disconnect(both, "google")
	assert.EqualValues(t, 406, statusOf(t, err).Status)
}

func TestProfileInfoGating(t *testing.T) {
	service, _, db := testService(t)

	admin := seedAccount(t, db, AccountModel{Username: strPtr("root"), Admin: true})
	target := seedAccount(t, db, AccountModel{Username: strPtr("hank"), Rights: DefaultRights()})
	stranger := seedAccount(t, db, AccountModel{Username: strPtr("ivan"), Rights: DefaultRights()})

	// general is public, even anonymous
	result, err := service.ProfileInfo(nil, target, true, false, false)
	require.NoError(t, err)
	assert.Contains(t, result, "general")

	// rights and private need a session
	_, err = service.ProfileInfo(nil, target, false, true, false)
	assert.EqualValues(t, 401, statusOf(t, err).Status)

	// and the holder or an admin
	_, err = service.ProfileInfo(&stranger, target, false, true, true)
	assert.EqualValues(t, 403, statusOf(t, err).Status)

	result, err = service.ProfileInfo(&target, target, false, true, true)
	require.NoError(t, err)
	assert.Contains(t, result, "rights")
	assert.Contains(t, result, "private")

	result, err = service.ProfileInfo(&admin, target, true, true, true)
	require.NoError(t, err)
	assert.Len(t, result, 3)
}
