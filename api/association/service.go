// Package association toggles the link tables of the catalog: game-genre,
// game-tag, mod-tag and mod-dependency pairs.
package association

import (
	"errors"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/api/genre"
	"github.com/openworkshop/owapi/api/mod"
	"github.com/openworkshop/owapi/api/tag"
	"github.com/openworkshop/owapi/shared/response"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	accounts *account.Service
	mods     *mod.Service
	tags     *tag.Service
	genres   *genre.Service
}

func NewService(db *gorm.DB, accounts *account.Service, mods *mod.Service, tags *tag.Service, genres *genre.Service) *Service {
	return &Service{db: db, accounts: accounts, mods: mods, tags: tags, genres: genres}
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

// toggle inserts the row when mode is true, deletes it otherwise. Insertion
// of an existing pair conflicts, deletion of a missing one does not.
func (s *Service) toggle(mode bool, query string, model interface{}, args ...interface{}) error {
	var count int64
	if err := s.db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return err
	}
	if mode {
		if count > 0 {
			return response.Conflict("The association is already present")
		}
		return s.db.Create(model).Error
	}
	if count == 0 {
		return nil
	}
	return s.db.Where(query, args...).Delete(model).Error
}

// GameGenre links or unlinks a genre on a game, admin only.
func (s *Service) GameGenre(actorID, gameID, genreID int64, mode bool) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if err := s.gameExists(gameID); err != nil {
		return err
	}
	if mode {
		ok, err := s.genres.Exists(genreID)
		if err != nil {
			return err
		}
		if !ok {
			return response.NotFound("Genre not found")
		}
	}
	return s.toggle(mode, "game_id = ? AND genre_id = ?",
		&GameGenreModel{GameID: gameID, GenreID: genreID}, gameID, genreID)
}

// GameTag allow-lists or removes a mod tag for a game, admin only.
func (s *Service) GameTag(actorID, gameID, tagID int64, mode bool) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if err := s.gameExists(gameID); err != nil {
		return err
	}
	if mode {
		ok, err := s.tags.Exists(tagID)
		if err != nil {
			return err
		}
		if !ok {
			return response.NotFound("Tag not found")
		}
	}
	return s.toggle(mode, "game_id = ? AND tag_id = ?",
		&GameTagModel{GameID: gameID, TagID: tagID}, gameID, tagID)
}

// ModTag attaches or detaches a tag on a mod. Requires edit access on the
// mod, and the tag must be allow-listed for the mod's game.
func (s *Service) ModTag(actorID, modID, tagID int64, mode bool) error {
	m, err := s.mods.Repo().GetByID(modID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Mod not found")
		}
		return err
	}
	if err := s.mods.EditAccess(actorID, modID); err != nil {
		return err
	}
	if mode {
		var allowed int64
		err := s.db.Model(&GameTagModel{}).
			Where("game_id = ? AND tag_id = ?", m.Game, tagID).
			Count(&allowed).Error
		if err != nil {
			return err
		}
		if allowed == 0 {
			return response.Forbidden("The tag is not allowed for this game")
		}
	}
	return s.toggle(mode, "mod_id = ? AND tag_id = ?",
		&mod.ModTagModel{ModID: modID, TagID: tagID}, modID, tagID)
}

// ModDependency records or removes a dependency between two mods. Requires
// edit access on the dependent mod; self-dependencies are rejected.
func (s *Service) ModDependency(actorID, modID, dependenceID int64, mode bool) error {
	if modID == dependenceID {
		return response.Conflict("A mod cannot depend on itself")
	}
	if _, err := s.mods.Repo().GetByID(modID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Mod not found")
		}
		return err
	}
	if err := s.mods.EditAccess(actorID, modID); err != nil {
		return err
	}
	if mode {
		if _, err := s.mods.Repo().GetByID(dependenceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NotFound("Dependency mod not found")
			}
			return err
		}
	}
	return s.toggle(mode, "mod_id = ? AND dependence = ?",
		&mod.ModDependencyModel{ModID: modID, Dependence: dependenceID}, modID, dependenceID)
}

func (s *Service) gameExists(gameID int64) error {
	var count int64
	if err := s.db.Table("games").Where("id = ?", gameID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NotFound("Game not found")
	}
	return nil
}
