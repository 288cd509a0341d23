package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/stats"
	"gorm.io/gorm"
)

type Service struct {
	repo     *Repository
	accounts *account.Service
	stats    *stats.Service
}

func NewService(db *gorm.DB, accounts *account.Service, statsService *stats.Service) *Service {
	return &Service{repo: NewRepository(db), accounts: accounts, stats: statsService}
}

func (s *Service) Repo() *Repository {
	return s.repo
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

func (s *Service) List(opts ListOptions) (map[string]interface{}, error) {
	games, total, err := s.repo.List(opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"database_size": total,
		"offset":        opts.PageSize * opts.Page,
		"results":       games,
	}, nil
}

func (s *Service) Info(id int64) (*GameModel, error) {
	g, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound("Game not found")
		}
		return nil, err
	}
	s.stats.Bump("game", g.ID, stats.MetricView)
	return g, nil
}

func validateFields(name, short, desc *string, gameType *string) error {
	if name != nil {
		if len(*name) < NameMinLen {
			return response.TooShort(fmt.Sprintf("Name shorter than %d characters", NameMinLen))
		}
		if len(*name) > NameMaxLen {
			return response.TooLong(fmt.Sprintf("Name longer than %d characters", NameMaxLen))
		}
	}
	if short != nil && len(*short) > ShortDescMaxLen {
		return response.TooLong(fmt.Sprintf("Short description longer than %d characters", ShortDescMaxLen))
	}
	if desc != nil && len(*desc) > DescMaxLen {
		return response.TooLong(fmt.Sprintf("Description longer than %d characters", DescMaxLen))
	}
	if gameType != nil && *gameType != TypeGame && *gameType != TypeApp {
		return response.NewStatusError(400, response.ErrInput, "Unknown game type")
	}
	return nil
}

// EditInput carries optional field updates for add and edit calls.
type EditInput struct {
	Name             *string
	ShortDescription *string
	Description      *string
	Type             *string
	Logo             *string
}

func (s *Service) Add(actorID int64, in EditInput) (int64, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return 0, err
	}
	if in.Name == nil {
		return 0, response.TooShort("Name is required")
	}
	if err := validateFields(in.Name, in.ShortDescription, in.Description, in.Type); err != nil {
		return 0, err
	}

	g := &GameModel{
		Name:         *in.Name,
		Type:         TypeGame,
		Source:       "local",
		DateCreation: time.Now(),
	}
	if in.ShortDescription != nil {
		g.ShortDescription = *in.ShortDescription
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Type != nil {
		g.Type = *in.Type
	}
	if in.Logo != nil {
		g.Logo = *in.Logo
	}
	if err := s.repo.Insert(g); err != nil {
		return 0, err
	}
	return g.ID, nil
}

func (s *Service) Edit(actorID, gameID int64, in EditInput) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(gameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Game not found")
		}
		return err
	}
	if err := validateFields(in.Name, in.ShortDescription, in.Description, in.Type); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.ShortDescription != nil {
		fields["short_description"] = *in.ShortDescription
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Type != nil {
		fields["type"] = *in.Type
	}
	if in.Logo != nil {
		fields["logo"] = *in.Logo
	}
	if len(fields) == 0 {
		return nil
	}
	return s.repo.UpdateFields(gameID, fields)
}

// Delete refuses while mods still reference the game.
func (s *Service) Delete(actorID, gameID int64) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	g, err := s.repo.GetByID(gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Game not found")
		}
		return err
	}
	if g.ModsCount > 0 {
		return response.Conflict("The game still has mods attached")
	}
	return s.repo.Delete(gameID)
}
