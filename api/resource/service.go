// Package resource stores the images of the catalog: logos and
// screenshots attached to mods and games.
package resource

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/api/mod"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/storage"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	accounts *account.Service
	mods     *mod.Service
	storage  *storage.Client
}

func NewService(db *gorm.DB, accounts *account.Service, mods *mod.Service, storageClient *storage.Client) *Service {
	return &Service{db: db, accounts: accounts, mods: mods, storage: storageClient}
}

// ListOptions are the filters of the resource listing endpoint.
type ListOptions struct {
	PageSize int
	Page     int

	OwnerType string
	OwnerIDs  []int64
	Types     []string
}

// List returns resources of the requested owners. Mod owners the caller
// may not read are dropped from the filter before querying, so restricted
// mods leak neither rows nor counts.
func (s *Service) List(userID *int64, opts ListOptions) (map[string]interface{}, error) {
	if opts.OwnerType != OwnerMod && opts.OwnerType != OwnerGame {
		return nil, response.NewStatusError(400, response.ErrInput, "Unknown owner type")
	}
	if len(opts.OwnerIDs) == 0 {
		return nil, response.TooShort("At least one owner id is required")
	}

	ownerIDs := opts.OwnerIDs
	if opts.OwnerType == OwnerMod {
		allowed, err := s.mods.FilterAccessible(userID, ownerIDs, false)
		if err != nil {
			return nil, err
		}
		ownerIDs = allowed
	}

	query := s.db.Model(&ResourceModel{}).
		Where("owner_type = ? AND owner_id IN ?", opts.OwnerType, ownerIDs)
	if len(opts.Types) > 0 {
		query = query.Where("type IN ?", opts.Types)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var resources []ResourceModel
	err := query.Order("date_event DESC").
		Offset(opts.PageSize * opts.Page).
		Limit(opts.PageSize).
		Find(&resources).Error
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"database_size": total,
		"offset":        opts.PageSize * opts.Page,
		"results":       resources,
	}, nil
}

// editAccess gates mutations: mod resources follow mod edit access, game
// resources are admin only.
func (s *Service) editAccess(actorID int64, ownerType string, ownerID int64) error {
	switch ownerType {
	case OwnerMod:
		if _, err := s.mods.Repo().GetByID(ownerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NotFound("Mod not found")
			}
			return err
		}
		return s.mods.EditAccess(actorID, ownerID)
	case OwnerGame:
		actor, err := s.accounts.Identity(actorID)
		if err != nil {
			return err
		}
		if !actor.Admin {
			return response.Forbidden("Forbidden")
		}
		return nil
	default:
		return response.NewStatusError(400, response.ErrInput, "Unknown owner type")
	}
}

// AddInput is a new resource: either an external URL or an uploaded file.
type AddInput struct {
	Type      string
	OwnerType string
	OwnerID   int64

	URL string

	File    io.Reader
	FileExt string
}

func (s *Service) Add(actorID int64, in AddInput) (int64, error) {
	if in.Type != TypeLogo && in.Type != TypeScreenshot {
		return 0, response.NewStatusError(400, response.ErrInput, "Unknown resource type")
	}
	if err := s.editAccess(actorID, in.OwnerType, in.OwnerID); err != nil {
		return 0, err
	}
	if in.URL == "" && in.File == nil {
		return 0, response.TooShort("Either a url or a file is required")
	}
	if len(in.URL) > URLMaxLen {
		return 0, response.TooLong(fmt.Sprintf("URL longer than %d characters", URLMaxLen))
	}

	r := &ResourceModel{
		Type:      in.Type,
		URL:       in.URL,
		DateEvent: time.Now(),
		OwnerType: in.OwnerType,
		OwnerID:   in.OwnerID,
	}
	if err := s.db.Create(r).Error; err != nil {
		return 0, err
	}

	if in.File != nil {
		path := storedPath(r, in.FileExt)
		if err := s.storage.Upload("resources", path, in.File); err != nil {
			s.db.Delete(r)
			return 0, err
		}
		url := s.storage.PublicURL("resources", path)
		if err := s.db.Model(r).Update("url", url).Error; err != nil {
			return 0, err
		}
	}
	return r.ID, nil
}

func (s *Service) Edit(actorID, resourceID int64, resourceType, url *string) error {
	r, err := s.get(resourceID)
	if err != nil {
		return err
	}
	if err := s.editAccess(actorID, r.OwnerType, r.OwnerID); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if resourceType != nil {
		if *resourceType != TypeLogo && *resourceType != TypeScreenshot {
			return response.NewStatusError(400, response.ErrInput, "Unknown resource type")
		}
		fields["type"] = *resourceType
	}
	if url != nil {
		if len(*url) > URLMaxLen {
			return response.TooLong(fmt.Sprintf("URL longer than %d characters", URLMaxLen))
		}
		fields["url"] = *url
	}
	if len(fields) == 0 {
		return nil
	}
	return s.db.Model(&ResourceModel{}).Where("id = ?", resourceID).Updates(fields).Error
}

func (s *Service) Delete(actorID, resourceID int64) error {
	r, err := s.get(resourceID)
	if err != nil {
		return err
	}
	if err := s.editAccess(actorID, r.OwnerType, r.OwnerID); err != nil {
		return err
	}

	// best effort; external URLs have nothing stored
	for _, ext := range []string{"png", "jpg", "webp"} {
		_ = s.storage.Delete("resources", storedPath(r, ext))
	}
	return s.db.Where("id = ?", resourceID).Delete(&ResourceModel{}).Error
}

func (s *Service) get(resourceID int64) (*ResourceModel, error) {
	var r ResourceModel
	err := s.db.Where("id = ?", resourceID).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound("Resource not found")
		}
		return nil, err
	}
	return &r, nil
}

func storedPath(r *ResourceModel, ext string) string {
	return fmt.Sprintf("%s/%d/%d.%s", r.OwnerType, r.OwnerID, r.ID, ext)
}
