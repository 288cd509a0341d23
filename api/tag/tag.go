// Package tag holds the mod tag dictionary. Tags are attached to mods and
// allow-listed per game through the association endpoints.
package tag

import (
	"fmt"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/shared/response"
	"gorm.io/gorm"
)

const TagsTableName = "unity_tags"

const (
	NameMinLen  = 1
	NameMaxLen  = 60
	PageSizeMin = 1
	PageSizeMax = 50
)

type TagModel struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128" json:"name"`
}

func (TagModel) TableName() string {
	return TagsTableName
}

type Service struct {
	db       *gorm.DB
	accounts *account.Service
}

func NewService(db *gorm.DB, accounts *account.Service) *Service {
	return &Service{db: db, accounts: accounts}
}

func (s *Service) requireAdmin(actorID int64) error {
	actor, err := s.accounts.Identity(actorID)
	if err != nil {
		return err
	}
	if !actor.Admin {
		return response.Forbidden("Forbidden")
	}
	return nil
}

// ListOptions are the filters of the tag listing endpoint.
type ListOptions struct {
	PageSize int
	Page     int

	Name string
	// Game narrows to tags allowed for one game via unity_games_tags.
	Game int64
	// Mod narrows to tags attached to one mod via unity_mods_tags.
	Mod int64
}

func (s *Service) List(opts ListOptions) (map[string]interface{}, error) {
	query := s.db.Model(&TagModel{})
	if opts.Name != "" {
		query = query.Where("name LIKE ?", "%"+opts.Name+"%")
	}
	if opts.Game > 0 {
		query = query.Where("EXISTS (SELECT 1 FROM unity_games_tags g WHERE g.tag_id = "+TagsTableName+".id AND g.game_id = ?)", opts.Game)
	}
	if opts.Mod > 0 {
		query = query.Where("EXISTS (SELECT 1 FROM unity_mods_tags m WHERE m.tag_id = "+TagsTableName+".id AND m.mod_id = ?)", opts.Mod)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var tags []TagModel
	err := query.Order("name ASC").
		Offset(opts.PageSize * opts.Page).
		Limit(opts.PageSize).
		Find(&tags).Error
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"database_size": total,
		"offset":        opts.PageSize * opts.Page,
		"results":       tags,
	}, nil
}

func validateName(name string) error {
	if len(name) < NameMinLen {
		return response.TooShort(fmt.Sprintf("Name shorter than %d characters", NameMinLen))
	}
	if len(name) > NameMaxLen {
		return response.TooLong(fmt.Sprintf("Name longer than %d characters", NameMaxLen))
	}
	return nil
}

func (s *Service) Add(actorID int64, name string) (int64, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return 0, err
	}
	if err := validateName(name); err != nil {
		return 0, err
	}
	t := &TagModel{Name: name}
	if err := s.db.Create(t).Error; err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Service) Edit(actorID, tagID int64, name string) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	result := s.db.Model(&TagModel{}).Where("id = ?", tagID).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NotFound("Tag not found")
	}
	return nil
}

// Delete removes the tag together with its mod and game links.
func (s *Service) Delete(actorID, tagID int64) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM unity_mods_tags WHERE tag_id = ?", tagID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM unity_games_tags WHERE tag_id = ?", tagID).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", tagID).Delete(&TagModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NotFound("Tag not found")
		}
		return nil
	})
}

func (s *Service) Exists(tagID int64) (bool, error) {
	var count int64
	err := s.db.Model(&TagModel{}).Where("id = ?", tagID).Count(&count).Error
	return count > 0, err
}
