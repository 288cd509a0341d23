package session

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubAccount struct {
	id   int64
	hash *string
}

type stubCredentials map[string]stubAccount

func (s stubCredentials) CredentialsByUsername(username string) (int64, *string, error) {
	acc, ok := s[username]
	if !ok {
		return 0, nil, gorm.ErrRecordNotFound
	}
	return acc.id, acc.hash, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&SessionModel{}, &RegistrationBlockModel{}))
	return db
}

func testService(t *testing.T, creds stubCredentials) (*Service, *gorm.DB) {
	db := testDB(t)
	return NewService(db, creds), db
}

func hashOf(t *testing.T, password string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func liveCount(t *testing.T, db *gorm.DB, ownerID int64) int64 {
	t.Helper()
	var count int64
	err := db.Model(&SessionModel{}).
		Where("owner_id = ? AND broken IS NULL AND end_date_refresh > ?", ownerID, time.Now()).
		Count(&count).Error
	require.NoError(t, err)
	return count
}

func TestIssueSessionBreaksSessionStorm(t *testing.T) {
	service, db := testService(t, nil)

	for i := 0; i < 10; i++ {
		_, err := service.IssueSession(7, "password")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 10, liveCount(t, db, 7))

	// one more than the cap: everything is broken, only the new session lives
	_, err := service.IssueSession(7, "password")
	require.NoError(t, err)
	assert.EqualValues(t, 1, liveCount(t, db, 7))

	var broken int64
	require.NoError(t, db.Model(&SessionModel{}).
		Where("owner_id = ? AND broken = ?", 7, BrokenTooManySessions).
		Count(&broken).Error)
	assert.EqualValues(t, 10, broken)
}

func TestPasswordLogin(t *testing.T) {
	creds := stubCredentials{
		"alice": {id: 2, hash: hashOf(t, "correct horse")},
		"bot":   {id: 3, hash: nil},
	}
	service, _ := testService(t, creds)

	accountID, pair, err := service.PasswordLogin("alice", "correct horse")
	require.NoError(t, err)
	assert.EqualValues(t, 2, accountID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	_, _, err = service.PasswordLogin("alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = service.PasswordLogin("nobody", "correct horse")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// nil hash means password login is disabled for the account
	_, _, err = service.PasswordLogin("bot", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefreshSessionIsSingleUse(t *testing.T) {
	service, _ := testService(t, nil)

	pair, err := service.IssueSession(5, "password")
	require.NoError(t, err)

	ownerID, rotated, err := service.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 5, ownerID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// the consumed pair is dead, the rotated one works
	_, _, err = service.RefreshSession(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = service.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = service.ValidateAccessToken(rotated.AccessToken)
	assert.NoError(t, err)
}

func TestValidateAccessTokenTouchesLastRequest(t *testing.T) {
	service, db := testService(t, nil)

	pair, err := service.IssueSession(5, "password")
	require.NoError(t, err)

	record, err := service.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	var stored SessionModel
	require.NoError(t, db.First(&stored, record.ID).Error)
	require.NotNil(t, stored.LastRequestDate)
	assert.WithinDuration(t, time.Now(), *stored.LastRequestDate, 5*time.Second)
}

func TestResolveIdentityRotatesExpiredAccess(t *testing.T) {
	service, db := testService(t, nil)

	pair, err := service.IssueSession(5, "password")
	require.NoError(t, err)

	// valid access token resolves without rotation
	ownerID, rotated, err := service.ResolveIdentity(pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 5, ownerID)
	assert.Nil(t, rotated)

	// expire the access window, keep the refresh window open
	require.NoError(t, db.Model(&SessionModel{}).
		Where("access_token = ?", pair.AccessToken).
		Update("end_date_access", time.Now().Add(-time.Minute)).Error)

	ownerID, rotated, err = service.ResolveIdentity(pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 5, ownerID)
	require.NotNil(t, rotated)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// both tokens gone: unauthenticated
	_, _, err = service.ResolveIdentity("", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutReportsRepeatedCalls(t *testing.T) {
	service, _ := testService(t, nil)

	pair, err := service.IssueSession(5, "password")
	require.NoError(t, err)

	require.NoError(t, service.Logout(pair.AccessToken))
	assert.ErrorIs(t, service.Logout(pair.AccessToken), ErrUnauthenticated)

	_, err = service.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBreakAllForAccount(t *testing.T) {
	service, db := testService(t, nil)

	for i := 0; i < 3; i++ {
		_, err := service.IssueSession(5, "password")
		require.NoError(t, err)
	}
	require.NoError(t, service.BreakAllForAccount(5, BrokenAccountDeleted))
	assert.EqualValues(t, 0, liveCount(t, db, 5))
}

func TestRegistrationBlockPurge(t *testing.T) {
	service, db := testService(t, nil)

	yandexID := int64(42)
	require.NoError(t, service.BlockRegistration(&yandexID, nil))

	// a fresh block survives the purge
	service.PurgeExpiredRegistrationBlocks()
	var count int64
	require.NoError(t, db.Model(&RegistrationBlockModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// an expired one does not
	require.NoError(t, db.Model(&RegistrationBlockModel{}).
		Where("yandex_id = ?", yandexID).
		Update("forget", time.Now().Add(-time.Hour)).Error)
	service.PurgeExpiredRegistrationBlocks()
	require.NoError(t, db.Model(&RegistrationBlockModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestSweepDeadSessions(t *testing.T) {
	service, db := testService(t, nil)

	pair, err := service.IssueSession(5, "password")
	require.NoError(t, err)
	require.NoError(t, service.Logout(pair.AccessToken))

	// recently touched broken sessions are kept
	require.NoError(t, db.Model(&SessionModel{}).
		Where("access_token = ?", pair.AccessToken).
		Update("last_request_date", time.Now()).Error)
	assert.EqualValues(t, 0, service.SweepDeadSessions(time.Hour))

	require.NoError(t, db.Model(&SessionModel{}).
		Where("access_token = ?", pair.AccessToken).
		Update("last_request_date", time.Now().Add(-2*time.Hour)).Error)
	assert.EqualValues(t, 1, service.SweepDeadSessions(time.Hour))
}
