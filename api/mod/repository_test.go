package mod

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openworkshop/owapi/api/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ModModel{}, &ModAuthorModel{}, &ModTagModel{}, &ModDependencyModel{}))
	require.NoError(t, db.Exec(
		"CREATE TABLE games (id INTEGER PRIMARY KEY, mods_count INTEGER DEFAULT 0, mods_downloads INTEGER DEFAULT 0)").Error)
	return NewRepository(db)
}

func seedMod(t *testing.T, r *Repository, m ModModel) int64 {
	t.Helper()
	if m.DateCreation.IsZero() {
		m.DateCreation = time.Now()
	}
	require.NoError(t, r.Insert(&m))
	return m.ID
}

func TestSetAuthorKeepsSingleOwner(t *testing.T) {
	r := testRepo(t)
	modID := seedMod(t, r, ModModel{Name: "first"})

	require.NoError(t, r.SetAuthor(modID, 1, true))
	require.NoError(t, r.SetAuthor(modID, 2, false))

	m, err := r.Membership(modID, 1)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipOwner, m)

	// promoting a new owner demotes the old one in the same call
	require.NoError(t, r.SetAuthor(modID, 2, true))

	m, err = r.Membership(modID, 1)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipMember, m)
	m, err = r.Membership(modID, 2)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipOwner, m)

	var owners int64
	require.NoError(t, r.DB.Model(&ModAuthorModel{}).
		Where("mod_id = ? AND owner", modID).Count(&owners).Error)
	assert.EqualValues(t, 1, owners)

	require.NoError(t, r.RemoveAuthor(modID, 1))
	m, err = r.Membership(modID, 1)
	require.NoError(t, err)
	assert.Equal(t, access.MembershipNone, m)
}

func TestListFilters(t *testing.T) {
	r := testRepo(t)

	alpha := seedMod(t, r, ModModel{Name: "alpha tools", Public: access.PublicityCataloged, Game: 1, Downloads: 30})
	beta := seedMod(t, r, ModModel{Name: "beta pack", Public: access.PublicityUnlisted, Game: 1, Downloads: 20})
	gamma := seedMod(t, r, ModModel{Name: "gamma map", Public: access.PublicityRestricted, Game: 2, Downloads: 10})
	seedMod(t, r, ModModel{Name: "still uploading", Condition: ConditionUploading, Game: 1})

	require.NoError(t, r.SetAuthor(alpha, 9, true))
	require.NoError(t, r.SetAuthor(beta, 9, false))
	require.NoError(t, r.DB.Create(&ModTagModel{ModID: alpha, TagID: 5}).Error)

	list := func(opts ListOptions) []int64 {
		if opts.PageSize == 0 {
			opts.PageSize = 50
		}
		mods, _, err := r.List(opts)
		require.NoError(t, err)
		ids := make([]int64, 0, len(mods))
		for _, m := range mods {
			ids = append(ids, m.ID)
		}
		return ids
	}

	// only ready mods ever list; default sort is downloads ascending
	assert.Equal(t, []int64{gamma, beta, alpha}, list(ListOptions{}))
	assert.Equal(t, []int64{alpha, beta, gamma}, list(ListOptions{Sort: "iMOD_DOWNLOADS"}))

	assert.Equal(t, []int64{alpha}, list(ListOptions{OnlyPublic: true}))
	assert.Equal(t, []int64{gamma}, list(ListOptions{Game: 2}))
	assert.Equal(t, []int64{beta}, list(ListOptions{Name: "beta"}))
	assert.Equal(t, []int64{alpha}, list(ListOptions{Tags: []int64{5}}))
	assert.Equal(t, []int64{beta, alpha}, list(ListOptions{User: 9, UserOwner: -1}))
	assert.Equal(t, []int64{alpha}, list(ListOptions{User: 9, UserOwner: 0}))
	assert.Equal(t, []int64{beta}, list(ListOptions{User: 9, UserOwner: 1}))
	assert.Equal(t, []int64{beta, alpha}, list(ListOptions{AllowedIDs: []int64{alpha, beta}}))

	// pagination reports the full count
	mods, total, err := r.List(ListOptions{PageSize: 2, Page: 1, Sort: "NAME"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, mods, 1)
	assert.Equal(t, gamma, mods[0].ID)
}

func TestListIndependents(t *testing.T) {
	r := testRepo(t)

	base := seedMod(t, r, ModModel{Name: "base"})
	addon := seedMod(t, r, ModModel{Name: "addon"})
	require.NoError(t, r.DB.Create(&ModDependencyModel{ModID: addon, Dependence: base}).Error)

	mods, _, err := r.List(ListOptions{PageSize: 50, Independents: true})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, base, mods[0].ID)
}

func TestPublicIDs(t *testing.T) {
	r := testRepo(t)

	cataloged := seedMod(t, r, ModModel{Name: "a", Public: access.PublicityCataloged})
	unlisted := seedMod(t, r, ModModel{Name: "b", Public: access.PublicityUnlisted})
	restricted := seedMod(t, r, ModModel{Name: "c", Public: access.PublicityRestricted})

	ids, err := r.PublicIDs([]int64{cataloged, unlisted, restricted, 999}, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{cataloged, unlisted}, ids)

	ids, err = r.PublicIDs([]int64{cataloged, unlisted, restricted}, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{cataloged}, ids)
}

func TestFacts(t *testing.T) {
	r := testRepo(t)

	mine := seedMod(t, r, ModModel{Name: "mine", Public: access.PublicityRestricted})
	other := seedMod(t, r, ModModel{Name: "other", Public: access.PublicityCataloged})
	require.NoError(t, r.SetAuthor(mine, 7, true))

	// unknown ids are skipped, input order is preserved
	facts, err := r.Facts(7, []int64{other, 999, mine})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, access.ModFacts{ID: other, Membership: access.MembershipNone, Publicity: access.PublicityCataloged}, facts[0])
	assert.Equal(t, access.ModFacts{ID: mine, Membership: access.MembershipOwner, Publicity: access.PublicityRestricted}, facts[1])

	// anonymous callers get no memberships
	facts, err = r.Facts(0, []int64{mine})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, access.MembershipNone, facts[0].Membership)
}

func TestDeleteCascades(t *testing.T) {
	r := testRepo(t)

	base := seedMod(t, r, ModModel{Name: "base"})
	addon := seedMod(t, r, ModModel{Name: "addon"})
	require.NoError(t, r.SetAuthor(base, 1, true))
	require.NoError(t, r.DB.Create(&ModTagModel{ModID: base, TagID: 5}).Error)
	require.NoError(t, r.DB.Create(&ModDependencyModel{ModID: addon, Dependence: base}).Error)

	require.NoError(t, r.Delete(base))

	_, err := r.GetByID(base)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, count := range []int64{
		tableCount(t, r.DB, &ModAuthorModel{}, "mod_id = ?", base),
		tableCount(t, r.DB, &ModTagModel{}, "mod_id = ?", base),
		tableCount(t, r.DB, &ModDependencyModel{}, "dependence = ?", base),
	} {
		assert.EqualValues(t, 0, count)
	}
}

func tableCount(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

func TestCountDownload(t *testing.T) {
	r := testRepo(t)
	require.NoError(t, r.DB.Exec("INSERT INTO games (id) VALUES (3)").Error)
	modID := seedMod(t, r, ModModel{Name: "popular", Game: 3})

	m, err := r.GetByID(modID)
	require.NoError(t, err)
	require.NoError(t, r.CountDownload(m))
	require.NoError(t, r.CountDownload(m))

	m, err = r.GetByID(modID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.Downloads)

	var gameDownloads int64
	require.NoError(t, r.DB.Raw("SELECT mods_downloads FROM games WHERE id = 3").Scan(&gameDownloads).Error)
	assert.EqualValues(t, 2, gameDownloads)
}

func TestSortExpr(t *testing.T) {
	assert.Equal(t, "downloads ASC", sortExpr(""))
	assert.Equal(t, "downloads DESC", sortExpr("iDOWNLOADS"))
	assert.Equal(t, "name ASC", sortExpr("NAME"))
	assert.Equal(t, "date_creation DESC", sortExpr("iCREATION_DATE"))
	// unknown keys fall back to downloads
	assert.Equal(t, "downloads ASC", sortExpr("BOGUS"))
}
