// Package genre holds the game genre dictionary.
package genre

import (
	"fmt"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/shared/response"
	"gorm.io/gorm"
)

const GenresTableName = "unity_genres"

const (
	NameMinLen  = 1
	NameMaxLen  = 60
	PageSizeMin = 1
	PageSizeMax = 50
)

type GenreModel struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128" json:"name"`
}

func (GenreModel) TableName() string {
	return GenresTableName
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

// ListOptions are the filters of the genre listing endpoint.
type ListOptions struct {
	PageSize int
	Page     int

	Name string
	// Game narrows to genres of one game via unity_games_genres.
	Game int64
}

func (s *Service) List(opts ListOptions) (map[string]interface{}, error) {
	query := s.db.Model(&GenreModel{})
	if opts.Name != "" {
		query = query.Where("name LIKE ?", "%"+opts.Name+"%")
	}
	if opts.Game > 0 {
		query = query.Where("EXISTS (SELECT 1 FROM unity_games_genres g WHERE g.genre_id = "+GenresTableName+".id AND g.game_id = ?)", opts.Game)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var genres []GenreModel
	err := query.Order("name ASC").
		Offset(opts.PageSize * opts.Page).
		Limit(opts.PageSize).
		Find(&genres).Error
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"database_size": total,
		"offset":        opts.PageSize * opts.Page,
		"results":       genres,
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
	g := &GenreModel{Name: name}
	if err := s.db.Create(g).Error; err != nil {
		return 0, err
	}
	return g.ID, nil
}

func (s *Service) Edit(actorID, genreID int64, name string) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	result := s.db.Model(&GenreModel{}).Where("id = ?", genreID).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NotFound("Genre not found")
	}
	return nil
}

// Delete removes the genre together with its game links.
func (s *Service) Delete(actorID, genreID int64) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM unity_games_genres WHERE genre_id = ?", genreID).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", genreID).Delete(&GenreModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NotFound("Genre not found")
		}
		return nil
	})
}

func (s *Service) Exists(genreID int64) (bool, error) {
	var count int64
	err := s.db.Model(&GenreModel{}).Where("id = ?", genreID).Count(&count).Error
	return count > 0, err
}
