package game

import (
	"strings"

	"gorm.io/gorm"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) GetByID(id int64) (*GameModel, error) {
	var g GameModel
	if err := r.DB.Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func sortExpr(sort string) string {
	desc := false
	if strings.HasPrefix(sort, "i") {
		desc = true
		sort = sort[1:]
	}

	column := "mods_downloads"
	switch sort {
	case "NAME":
		column = "name"
	case "CREATION_DATE":
		column = "date_creation"
	case "MODS_COUNT":
		column = "mods_count"
	case "MODS_DOWNLOADS":
	}

	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// ListOptions are the filters of the game listing endpoint.
type ListOptions struct {
	PageSize int
	Page     int
	Sort     string

	Name string
	Type string

	// Genres narrows the listing to games carrying every listed genre.
	Genres []int64
}

func (r *Repository) List(opts ListOptions) ([]GameModel, int64, error) {
	query := r.DB.Model(&GameModel{})

	if opts.Name != "" {
		query = query.Where("name LIKE ?", "%"+opts.Name+"%")
	}
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}
	for _, genre := range opts.Genres {
		query = query.Where("EXISTS (SELECT 1 FROM unity_games_genres g WHERE g.game_id = "+GamesTableName+".id AND g.genre_id = ?)", genre)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var games []GameModel
	err := query.Order(sortExpr(opts.Sort)).
		Offset(opts.PageSize * opts.Page).
		Limit(opts.PageSize).
		Find(&games).Error
	if err != nil {
		return nil, 0, err
	}
	return games, total, nil
}

func (r *Repository) Insert(g *GameModel) error {
	return r.DB.Create(g).Error
}

func (r *Repository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.DB.Model(&GameModel{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the game and its genre and tag links.
func (r *Repository) Delete(id int64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM unity_games_genres WHERE game_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM unity_games_tags WHERE game_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&GameModel{}).Error
	})
}
