package mod

import (
	"strings"
	"time"

	"github.com/openworkshop/owapi/api/access"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) GetByID(id int64) (*ModModel, error) {
	var m ModModel
	err := r.DB.Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// sortExpr maps the public sort keys onto columns. An `i` prefix inverts
// the direction.
func sortExpr(sort string) string {
	desc := false
	if strings.HasPrefix(sort, "i") {
		desc = true
		sort = sort[1:]
	}

	column := "downloads"
	switch sort {
	case "NAME":
		column = "name"
	case "SIZE":
		column = "size"
	case "CREATION_DATE":
		column = "date_creation"
	case "UPDATE_DATE":
		column = "date_update_file"
	case "EDIT_DATE":
		column = "date_edit"
	case "SOURCE":
		column = "source"
	case "DOWNLOADS", "MOD_DOWNLOADS":
	}

	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// ListOptions are the filters of the mod listing endpoint.
type ListOptions struct {
	PageSize int
	Page     int
	Sort     string

	Tags              []int64
	Game              int64
	AllowedIDs        []int64
	Independents      bool
	PrimarySources    []string
	AllowedSourcesIDs []int64
	Name              string

	User      int64
	UserOwner int // -1 any role, 0 owners only, 1 members only

	OnlyPublic bool
}

// List applies the filters and returns one page plus the total count.
func (r *Repository) List(opts ListOptions) ([]ModModel, int64, error) {
	query := r.DB.Model(&ModModel{}).Where("condition = ?", ConditionReady)

	if opts.OnlyPublic {
		query = query.Where("public = ?", access.PublicityCataloged)
	}
	if len(opts.AllowedIDs) > 0 {
		query = query.Where("id IN ?", opts.AllowedIDs)
	}
	if opts.Game > 0 {
		query = query.Where("game = ?", opts.Game)
	}
	if len(opts.PrimarySources) > 0 {
		query = query.Where("source IN ?", opts.PrimarySources)
		if len(opts.AllowedSourcesIDs) > 0 {
			query = query.Where("source_id IN ?", opts.AllowedSourcesIDs)
		}
	}
	if opts.Independents {
		query = query.Where("NOT EXISTS (SELECT 1 FROM " + ModDependenciesTableName + " d WHERE d.mod_id = " + ModsTableName + ".id)")
	}
	if opts.Name != "" {
		query = query.Where("name LIKE ?", "%"+opts.Name+"%")
	}
	for _, tag := range opts.Tags {
		query = query.Where("EXISTS (SELECT 1 FROM "+ModTagsTableName+" t WHERE t.mod_id = "+ModsTableName+".id AND t.tag_id = ?)", tag)
	}
	if opts.User > 0 {
		query = query.Where("EXISTS (SELECT 1 FROM "+ModAuthorsTableName+" a WHERE a.mod_id = "+ModsTableName+".id AND a.user_id = ?"+ownerRoleFilter(opts.UserOwner)+")", opts.User)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var mods []ModModel
	err := query.Order(sortExpr(opts.Sort)).
		Offset(opts.PageSize * opts.Page).
		Limit(opts.PageSize).
		Find(&mods).Error
	if err != nil {
		return nil, 0, err
	}
	return mods, total, nil
}

func ownerRoleFilter(userOwner int) string {
	switch userOwner {
	case 0:
		return " AND a.owner"
	case 1:
		return " AND NOT a.owner"
	default:
		return ""
	}
}

// PublicIDs filters the given ids down to public mods, cataloged-only
// when inCatalog is set.
func (r *Repository) PublicIDs(ids []int64, inCatalog bool) ([]int64, error) {
	query := r.DB.Model(&ModModel{}).Where("id IN ?", ids)
	if inCatalog {
		query = query.Where("public = ?", access.PublicityCataloged)
	} else {
		query = query.Where("public <= ?", access.PublicityUnlisted)
	}

	var found []int64
	if err := query.Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// Facts loads the evaluator inputs for the given mods as seen by userID
// (0 for anonymous). Unknown ids are skipped.
func (r *Repository) Facts(userID int64, ids []int64) ([]access.ModFacts, error) {
	var mods []ModModel
	if err := r.DB.Select("id", "public").Where("id IN ?", ids).Find(&mods).Error; err != nil {
		return nil, err
	}

	memberships := map[int64]access.Membership{}
	if userID > 0 {
		var rows []ModAuthorModel
		if err := r.DB.Where("user_id = ? AND mod_id IN ?", userID, ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Owner {
				memberships[row.ModID] = access.MembershipOwner
			} else {
				memberships[row.ModID] = access.MembershipMember
			}
		}
	}

	byID := map[int64]access.ModFacts{}
	for _, m := range mods {
		byID[m.ID] = access.ModFacts{ID: m.ID, Membership: memberships[m.ID], Publicity: m.Public}
	}

	// preserve request order
	facts := make([]access.ModFacts, 0, len(byID))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			facts = append(facts, f)
			delete(byID, id)
		}
	}
	return facts, nil
}

// Membership returns the authorship relation of one user to one mod.
func (r *Repository) Membership(modID, userID int64) (access.Membership, error) {
	var row ModAuthorModel
	err := r.DB.Where("mod_id = ? AND user_id = ?", modID, userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return access.MembershipNone, nil
		}
		return access.MembershipNone, err
	}
	if row.Owner {
		return access.MembershipOwner, nil
	}
	return access.MembershipMember, nil
}

func (r *Repository) Authors(modID int64) ([]ModAuthorModel, error) {
	var rows []ModAuthorModel
	err := r.DB.Where("mod_id = ?", modID).Find(&rows).Error
	return rows, err
}

// SetAuthor inserts or updates an authorship row. Promoting a new owner
// demotes the existing one inside the same transaction, keeping the
// single-owner invariant.
func (r *Repository) SetAuthor(modID, userID int64, owner bool) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if owner {
			err := tx.Model(&ModAuthorModel{}).
				Where("mod_id = ? AND owner AND user_id <> ?", modID, userID).
				Update("owner", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mod_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"owner": owner}),
		}).Create(&ModAuthorModel{ModID: modID, UserID: userID, Owner: owner}).Error
	})
}

func (r *Repository) RemoveAuthor(modID, userID int64) error {
	return r.DB.Where("mod_id = ? AND user_id = ?", modID, userID).Delete(&ModAuthorModel{}).Error
}

func (r *Repository) Insert(m *ModModel) error {
	return r.DB.Create(m).Error
}

func (r *Repository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.DB.Model(&ModModel{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the mod and its authorship, tag and dependency rows.
func (r *Repository) Delete(id int64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mod_id = ?", id).Delete(&ModAuthorModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("mod_id = ?", id).Delete(&ModTagModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("mod_id = ? OR dependence = ?", id, id).Delete(&ModDependencyModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&ModModel{}).Error
	})
}

// CountDownload bumps the persistent download counters of the mod and its
// game.
func (r *Repository) CountDownload(m *ModModel) error {
	err := r.DB.Model(&ModModel{}).Where("id = ?", m.ID).
		Update("downloads", gorm.Expr("downloads + 1")).Error
	if err != nil {
		return err
	}
	return r.DB.Table("games").Where("id = ?", m.Game).
		Update("mods_downloads", gorm.Expr("mods_downloads + 1")).Error
}

// Dependencies returns up to limit dependency ids of the mod.
func (r *Repository) Dependencies(modID int64, limit int) ([]int64, int64, error) {
	query := r.DB.Model(&ModDependencyModel{}).Where("mod_id = ?", modID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ids []int64
	if err := query.Limit(limit).Pluck("dependence", &ids).Error; err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

// TagIDs returns the tag ids attached to the mod.
func (r *Repository) TagIDs(modID int64) ([]int64, error) {
	var ids []int64
	err := r.DB.Model(&ModTagModel{}).Where("mod_id = ?", modID).Pluck("tag_id", &ids).Error
	return ids, err
}

// touchEdit stamps the edit date when mod fields change.
func touchEdit(fields map[string]interface{}) map[string]interface{} {
	fields["date_edit"] = time.Now()
	return fields
}
