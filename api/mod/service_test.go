package mod

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/api/access"
	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/stats"
	"github.com/openworkshop/owapi/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&account.AccountModel{}, &ModModel{}, &ModAuthorModel{}, &ModTagModel{}, &ModDependencyModel{}))

	accountRepo := account.NewRepository(db)
	sessions := session.NewService(db, accountRepo)
	storageClient := storage.NewClient(&config.Config{StorageUrl: "http://127.0.0.1:1", StorageToken: "test"})
	accounts := account.NewService(db, sessions, storageClient)
	return NewService(db, accounts, storageClient, stats.NewService(db, nil)), db
}

func seedUser(t *testing.T, db *gorm.DB, acc account.AccountModel) int64 {
	t.Helper()
	if acc.RegistrationDate.IsZero() {
		acc.RegistrationDate = time.Now()
	}
	require.NoError(t, db.Create(&acc).Error)
	return acc.ID
}

func serviceStatusOf(t *testing.T, err error) *response.StatusError {
	t.Helper()
	require.Error(t, err)
	statusErr, ok := err.(*response.StatusError)
	require.True(t, ok, "expected a status error, got %v", err)
	return statusErr
}

func TestEditAuthorsOwnerRemoval(t *testing.T) {
	s, db := testService(t)

	owner := seedUser(t, db, account.AccountModel{})
	member := seedUser(t, db, account.AccountModel{})
	curator := seedUser(t, db, account.AccountModel{Rights: access.Rights{ChangeAuthorshipMods: true}})
	admin := seedUser(t, db, account.AccountModel{Admin: true})

	modID := seedMod(t, s.repo, ModModel{Name: "transferable"})
	require.NoError(t, s.repo.SetAuthor(modID, owner, true))
	require.NoError(t, s.repo.SetAuthor(modID, member, false))

	// the owner may hand the role over but never delete their own row
	err := s.EditAuthors(owner, modID, owner, false, false)
	assert.Equal(t, http.StatusForbidden, serviceStatusOf(t, err).Status)

	// a plain member may only leave, not touch the owner
	err = s.EditAuthors(member, modID, owner, false, false)
	assert.Equal(t, http.StatusForbidden, serviceStatusOf(t, err).Status)

	// the authorship flag allows any transfer, owner removal included
	require.NoError(t, s.EditAuthors(curator, modID, owner, false, false))
	m, err := s.repo.Membership(modID, owner)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipNone, m)

	require.NoError(t, s.repo.SetAuthor(modID, owner, true))
	require.NoError(t, s.EditAuthors(admin, modID, owner, false, false))
	m, err = s.repo.Membership(modID, owner)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipNone, m)
}

func TestEditAuthorsMemberLeaves(t *testing.T) {
	s, db := testService(t)

	owner := seedUser(t, db, account.AccountModel{})
	member := seedUser(t, db, account.AccountModel{})

	modID := seedMod(t, s.repo, ModModel{Name: "shared"})
	require.NoError(t, s.repo.SetAuthor(modID, owner, true))
	require.NoError(t, s.repo.SetAuthor(modID, member, false))

	require.NoError(t, s.EditAuthors(member, modID, member, false, false))
	m, err := s.repo.Membership(modID, member)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipNone, m)
}

func accessRequest(t *testing.T, h *Handler, target string, userID *int64) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("userID", *userID)
	}
	return rec, h.Access(c)
}

func TestAccessThirdPartyCheck(t *testing.T) {
	s, db := testService(t)
	h := NewHandler(s, &config.Config{AccessCheckToken: "svc-token"})

	author := seedUser(t, db, account.AccountModel{})
	admin := seedUser(t, db, account.AccountModel{Admin: true})

	open := seedMod(t, s.repo, ModModel{Name: "open", Public: access.PublicityCataloged})
	hidden := seedMod(t, s.repo, ModModel{Name: "hidden", Public: access.PublicityRestricted})
	require.NoError(t, s.repo.SetAuthor(hidden, author, true))

	// the query strings below rely on the seed order
	require.EqualValues(t, 1, author)
	require.EqualValues(t, 1, open)
	require.EqualValues(t, 2, hidden)

	// sibling service asks on behalf of the author
	rec, err := accessRequest(t, h,
		"/?ids=1,2&user=1&token=svc-token", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[1,2]")

	// wrong token and no admin cookie
	rec, err = accessRequest(t, h, "/?ids=1,2&user=1&token=bogus", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// an admin cookie substitutes for the token
	rec, err = accessRequest(t, h, "/?ids=1,2&user=1", &admin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[1,2]")

	// user=0 runs the anonymous path without any token
	rec, err = accessRequest(t, h, "/?ids=1,2&user=0", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[1]")
	assert.NotContains(t, rec.Body.String(), "2")

	// anonymous callers never hold edit access
	rec, err = accessRequest(t, h, "/?ids=1,2&user=0&edit=true", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[]")
}

func TestAccessDefaultsToCookieIdentity(t *testing.T) {
	s, db := testService(t)
	h := NewHandler(s, &config.Config{})

	author := seedUser(t, db, account.AccountModel{})
	hidden := seedMod(t, s.repo, ModModel{Name: "hidden", Public: access.PublicityRestricted})
	require.NoError(t, s.repo.SetAuthor(hidden, author, true))
	require.EqualValues(t, 1, hidden)

	rec, err := accessRequest(t, h, "/?ids=1", &author)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[1]")

	rec, err = accessRequest(t, h, "/?ids=1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[]")
}
