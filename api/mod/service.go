package mod

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openworkshop/owapi/api/access"
	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/stats"
	"github.com/openworkshop/owapi/storage"
	"gorm.io/gorm"
)

// Service holds the catalog business logic for mods: listing, CRUD,
// authorship management and access decisions.
type Service struct {
	repo     *Repository
	accounts *account.Service
	storage  *storage.Client
	stats    *stats.Service
}

func NewService(db *gorm.DB, accounts *account.Service, storageClient *storage.Client, statsService *stats.Service) *Service {
	return &Service{
		repo:     NewRepository(db),
		accounts: accounts,
		storage:  storageClient,
		stats:    statsService,
	}
}

func (s *Service) Repo() *Repository {
	return s.repo
}

// identity loads an evaluator snapshot, nil for anonymous callers.
func (s *Service) identity(userID *int64) (*access.Identity, error) {
	if userID == nil {
		return nil, nil
	}
	actor, err := s.accounts.Identity(*userID)
	if err != nil {
		return nil, err
	}
	return &actor, nil
}

// EditAccess rejects the call unless userID may edit the mod.
func (s *Service) EditAccess(userID, modID int64) error {
	actor, err := s.accounts.Identity(userID)
	if err != nil {
		return err
	}
	membership, err := s.repo.Membership(modID, userID)
	if err != nil {
		return err
	}
	if !access.CanEditMod(actor, membership, time.Now()) {
		return response.Forbidden("Forbidden")
	}
	return nil
}

// DeleteAccess rejects the call unless userID may delete the mod.
func (s *Service) DeleteAccess(userID, modID int64) error {
	actor, err := s.accounts.Identity(userID)
	if err != nil {
		return err
	}
	membership, err := s.repo.Membership(modID, userID)
	if err != nil {
		return err
	}
	if !access.CanDeleteMod(actor, membership, time.Now()) {
		return response.Forbidden("Forbidden")
	}
	return nil
}

// ReadAccess rejects the call unless the (possibly anonymous) caller may
// read the mod.
func (s *Service) ReadAccess(userID *int64, m *ModModel) error {
	if m.Public <= access.PublicityUnlisted {
		return nil
	}
	actor, err := s.identity(userID)
	if err != nil {
		return err
	}
	var membership access.Membership
	if actor != nil {
		membership, err = s.repo.Membership(m.ID, actor.ID)
		if err != nil {
			return err
		}
	}
	if !access.CanReadMod(actor, access.ModFacts{ID: m.ID, Membership: membership, Publicity: m.Public}) {
		return response.Forbidden("Forbidden")
	}
	return nil
}

// FilterAccessible returns the subset of ids the caller may access, in
// input order. Denied and unknown ids are dropped silently.
func (s *Service) FilterAccessible(userID *int64, ids []int64, edit bool) ([]int64, error) {
	if edit && userID == nil {
		return []int64{}, nil
	}
	actor, err := s.identity(userID)
	if err != nil {
		return nil, err
	}

	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	facts, err := s.repo.Facts(actorID, ids)
	if err != nil {
		return nil, err
	}
	return access.FilterMods(actor, facts, edit, time.Now()), nil
}

// ListInput is the listing request after handler-side parsing.
type ListInput struct {
	Options ListOptions

	General          bool
	ShortDescription bool
	Description      bool
	Dates            bool
}

// project builds one listing element with the requested sections.
func (in ListInput) project(m ModModel) map[string]interface{} {
	out := map[string]interface{}{"id": m.ID}
	if in.General {
		out["name"] = m.Name
		out["size"] = m.Size
		out["condition"] = m.Condition
		out["public"] = m.Public
		out["source"] = m.Source
		out["downloads"] = m.Downloads
		out["game"] = m.Game
	}
	if in.ShortDescription {
		out["short_description"] = m.ShortDescription
	}
	if in.Description {
		out["description"] = m.Description
	}
	if in.Dates {
		out["date_creation"] = m.DateCreation
		out["date_update_file"] = m.DateUpdateFile
		out["date_edit"] = m.DateEdit
	}
	return out
}

// List returns one catalog page. Restricted mods that the caller may not
// read are kept in place but replaced with the sentinel string, so callers
// requesting explicit ids get positional results without leaking content.
func (s *Service) List(userID *int64, in ListInput) (map[string]interface{}, error) {
	mods, total, err := s.repo.List(in.Options)
	if err != nil {
		return nil, err
	}

	actor, err := s.identity(userID)
	if err != nil {
		return nil, err
	}

	readable := map[int64]bool{}
	var hidden []int64
	for _, m := range mods {
		if m.Public <= access.PublicityUnlisted {
			readable[m.ID] = true
		} else {
			hidden = append(hidden, m.ID)
		}
	}
	if len(hidden) > 0 && actor != nil {
		facts, err := s.repo.Facts(actor.ID, hidden)
		if err != nil {
			return nil, err
		}
		for _, id := range access.FilterMods(actor, facts, false, time.Now()) {
			readable[id] = true
		}
	}

	results := make([]interface{}, 0, len(mods))
	for _, m := range mods {
		if !readable[m.ID] {
			results = append(results, AccessDeniedSentinel)
			continue
		}
		results = append(results, in.project(m))
	}

	return map[string]interface{}{
		"database_size": total,
		"offset":        in.Options.PageSize * in.Options.Page,
		"results":       results,
	}, nil
}

// InfoInput selects the optional sections of the info response.
type InfoInput struct {
	ModID int64

	General          bool
	ShortDescription bool
	Description      bool
	Dates            bool
	Dependencies     bool
	Tags             bool
	Authors          bool
}

// DependenciesPageSize caps the dependency list embedded in info responses.
const DependenciesPageSize = 20

// Info returns one mod. Restricted mods require read access; callers
// without it get a not-found style denial.
func (s *Service) Info(userID *int64, in InfoInput) (map[string]interface{}, error) {
	m, err := s.repo.GetByID(in.ModID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound("Mod not found")
		}
		return nil, err
	}
	if err := s.ReadAccess(userID, m); err != nil {
		return nil, err
	}

	out := map[string]interface{}{"id": m.ID}
	if in.General {
		out["name"] = m.Name
		out["size"] = m.Size
		out["condition"] = m.Condition
		out["public"] = m.Public
		out["source"] = m.Source
		out["downloads"] = m.Downloads
		out["game"] = m.Game
	}
	if in.ShortDescription {
		out["short_description"] = m.ShortDescription
	}
	if in.Description {
		out["description"] = m.Description
	}
	if in.Dates {
		out["date_creation"] = m.DateCreation
		out["date_update_file"] = m.DateUpdateFile
		out["date_edit"] = m.DateEdit
	}
	if in.Dependencies {
		ids, total, err := s.repo.Dependencies(m.ID, DependenciesPageSize)
		if err != nil {
			return nil, err
		}
		out["dependencies"] = ids
		out["dependencies_count"] = total
	}
	if in.Tags {
		ids, err := s.repo.TagIDs(m.ID)
		if err != nil {
			return nil, err
		}
		out["tags"] = ids
	}
	if in.Authors {
		rows, err := s.repo.Authors(m.ID)
		if err != nil {
			return nil, err
		}
		authors := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			authors = append(authors, map[string]interface{}{"user": row.UserID, "owner": row.Owner})
		}
		out["authors"] = authors
	}

	s.stats.Bump("mod", m.ID, stats.MetricView)
	return out, nil
}

// PublicIDs filters the requested ids down to the publicly readable ones.
func (s *Service) PublicIDs(ids []int64, inCatalog bool) ([]int64, error) {
	if len(ids) > PublicIDsMax {
		return nil, response.TooLong(fmt.Sprintf("Too many ids, maximum %d", PublicIDsMax))
	}
	return s.repo.PublicIDs(ids, inCatalog)
}

// AddInput is a new mod upload.
type AddInput struct {
	Name             string
	ShortDescription string
	Description      string
	Public           int
	Game             int64

	File     io.Reader
	FileSize int64
}

func validateTexts(name, short, desc *string) error {
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
	return nil
}

// Add validates and stores a new mod. The row is created in the uploading
// condition, flipped to ready once the archive lands in storage.
func (s *Service) Add(actorID int64, in AddInput) (int64, error) {
	actor, err := s.accounts.Identity(actorID)
	if err != nil {
		return 0, err
	}
	if !access.CanPublishMod(actor, time.Now()) {
		return 0, response.Forbidden("Forbidden")
	}

	if err := validateTexts(&in.Name, &in.ShortDescription, &in.Description); err != nil {
		return 0, err
	}
	if in.Public < access.PublicityCataloged || in.Public > access.PublicityRestricted {
		return 0, response.NewStatusError(400, response.ErrInput, "Unknown public level")
	}
	if in.FileSize > FileMaxBytes {
		return 0, response.TooLong(fmt.Sprintf("File larger than %d bytes", FileMaxBytes))
	}
	if err := s.gameExists(in.Game); err != nil {
		return 0, err
	}

	now := time.Now()
	m := &ModModel{
		Name:             in.Name,
		ShortDescription: in.ShortDescription,
		Description:      in.Description,
		Size:             in.FileSize,
		Condition:        ConditionUploading,
		Public:           in.Public,
		DateCreation:     now,
		DateUpdateFile:   now,
		DateEdit:         now,
		Source:           "local",
		Game:             in.Game,
	}
	if err := s.repo.Insert(m); err != nil {
		return 0, err
	}
	if err := s.repo.SetAuthor(m.ID, actorID, true); err != nil {
		return 0, err
	}

	if err := s.storage.Upload("mods", archivePath(m.ID), in.File); err != nil {
		return 0, err
	}
	err = s.repo.UpdateFields(m.ID, map[string]interface{}{"condition": ConditionReady})
	if err != nil {
		return 0, err
	}
	if err := s.bumpGameMods(in.Game, 1); err != nil {
		return 0, err
	}
	return m.ID, nil
}

// EditInput carries the optional field updates of an edit call.
type EditInput struct {
	Name             *string
	ShortDescription *string
	Description      *string
	Public           *int
	Game             *int64

	File     io.Reader
	FileSize int64
}

// Edit applies field updates and optionally replaces the archive.
func (s *Service) Edit(actorID, modID int64, in EditInput) error {
	m, err := s.repo.GetByID(modID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Mod not found")
		}
		return err
	}
	if err := s.EditAccess(actorID, modID); err != nil {
		return err
	}
	if err := validateTexts(in.Name, in.ShortDescription, in.Description); err != nil {
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
	if in.Public != nil {
		if *in.Public < access.PublicityCataloged || *in.Public > access.PublicityRestricted {
			return response.NewStatusError(400, response.ErrInput, "Unknown public level")
		}
		fields["public"] = *in.Public
	}
	if in.Game != nil && *in.Game != m.Game {
		if err := s.gameExists(*in.Game); err != nil {
			return err
		}
		fields["game"] = *in.Game
	}

	if in.File != nil {
		if in.FileSize > FileMaxBytes {
			return response.TooLong(fmt.Sprintf("File larger than %d bytes", FileMaxBytes))
		}
		if err := s.storage.Upload("mods", archivePath(modID), in.File); err != nil {
			return err
		}
		fields["size"] = in.FileSize
		fields["date_update_file"] = time.Now()
	}

	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.UpdateFields(modID, touchEdit(fields)); err != nil {
		return err
	}
	if game, ok := fields["game"]; ok {
		if err := s.bumpGameMods(m.Game, -1); err != nil {
			return err
		}
		if err := s.bumpGameMods(game.(int64), 1); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the mod, its relations and the stored archive.
func (s *Service) Delete(actorID, modID int64) error {
	m, err := s.repo.GetByID(modID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Mod not found")
		}
		return err
	}
	if err := s.DeleteAccess(actorID, modID); err != nil {
		return err
	}

	if err := s.storage.Delete("mods", archivePath(modID)); err != nil {
		return err
	}
	if err := s.repo.Delete(modID); err != nil {
		return err
	}
	return s.bumpGameMods(m.Game, -1)
}

// EditAuthors adds, updates or removes one authorship row.
func (s *Service) EditAuthors(actorID, modID, targetID int64, adding, owner bool) error {
	if _, err := s.repo.GetByID(modID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound("Mod not found")
		}
		return err
	}

	actor, err := s.accounts.Identity(actorID)
	if err != nil {
		return err
	}
	membership, err := s.repo.Membership(modID, actorID)
	if err != nil {
		return err
	}
	req := access.TransferRequest{Target: targetID, Adding: adding}
	if !access.CanTransferAuthorship(actor, membership, req, time.Now()) {
		return response.Forbidden("Forbidden")
	}

	if adding {
		if _, err := s.accounts.Identity(targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NotFound("User not found")
			}
			return err
		}
		return s.repo.SetAuthor(modID, targetID, owner)
	}

	targetMembership, err := s.repo.Membership(modID, targetID)
	if err != nil {
		return err
	}
	if targetMembership == access.MembershipNone {
		return response.NotFound("User is not an author of this mod")
	}
	return s.repo.RemoveAuthor(modID, targetID)
}

// DownloadInfo checks read access, counts the download and returns the
// storage link.
func (s *Service) DownloadInfo(userID *int64, modID int64) (string, error) {
	m, err := s.repo.GetByID(modID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", response.NotFound("Mod not found")
		}
		return "", err
	}
	if m.Condition != ConditionReady {
		return "", response.NewStatusError(425, response.ErrCooldown, "The mod is still uploading")
	}
	if err := s.ReadAccess(userID, m); err != nil {
		return "", err
	}

	s.stats.Bump("mod", m.ID, stats.MetricDownload)
	if err := s.repo.CountDownload(m); err != nil {
		return "", err
	}
	return s.storage.DownloadURL(m.ID), nil
}

func archivePath(modID int64) string {
	return fmt.Sprintf("%d/main.zip", modID)
}

func (s *Service) gameExists(gameID int64) error {
	var count int64
	err := s.repo.DB.Table("games").Where("id = ?", gameID).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return response.NotFound("Game not found")
	}
	return nil
}

func (s *Service) bumpGameMods(gameID int64, delta int) error {
	return s.repo.DB.Table("games").Where("id = ?", gameID).
		Update("mods_count", gorm.Expr("mods_count + ?", delta)).Error
}
