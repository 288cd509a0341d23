package account

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openworkshop/owapi/api/access"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/shared/zaplogger"
	"github.com/openworkshop/owapi/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 9

type Service struct {
	repo     *Repository
	sessions *session.Service
	storage  *storage.Client
}

func NewService(db *gorm.DB, sessions *session.Service, storageClient *storage.Client) *Service {
	return &Service{
		repo:     NewRepository(db),
		sessions: sessions,
		storage:  storageClient,
	}
}

func (s *Service) Repo() *Repository {
	return s.repo
}

// Identity loads the evaluator snapshot of an account.
func (s *Service) Identity(accountID int64) (access.Identity, error) {
	acc, err := s.repo.GetByID(accountID)
	if err != nil {
		return access.Identity{}, response.Unauthenticated("Invalid session key")
	}
	return acc.Identity(), nil
}

// ProfileInfo assembles the requested sections of a profile. The rights
// and private sections are visible to the account holder and admins only.
func (s *Service) ProfileInfo(requesterID *int64, targetID int64, general, rights, private bool) (map[string]interface{}, error) {
	target, err := s.repo.GetByID(targetID)
	if err != nil {
		return nil, response.NotFound("User not found")
	}

	result := map[string]interface{}{}

	if rights || private {
		if requesterID == nil {
			return nil, response.Unauthenticated("Invalid session key")
		}
		if *requesterID != targetID {
			requester, err := s.repo.GetByID(*requesterID)
			if err != nil || !requester.Admin {
				return nil, response.Forbidden("You do not have access to this information")
			}
		}

		if private {
			result["private"] = map[string]interface{}{
				"last_username_reset": target.LastUsernameReset,
				"last_password_reset": target.LastPasswordReset,
				"yandex":              target.YandexID != nil,
				"google":              target.GoogleID != nil,
			}
		}
		if rights {
			result["rights"] = map[string]interface{}{
				"admin":  target.Admin,
				"rights": target.Rights,
			}
		}
	}

	if general {
		var mute interface{} = false
		if target.Muted(time.Now()) {
			mute = target.MuteUntil
		}
		result["general"] = map[string]interface{}{
			"id":                target.ID,
			"username":          target.Username,
			"about":             target.About,
			"avatar_url":        target.AvatarURL,
			"grade":             target.Grade,
			"comments":          target.Comments,
			"author_mods":       target.AuthorMods,
			"registration_date": target.RegistrationDate,
			"reputation":        target.Reputation,
			"mute":              mute,
		}
	}

	return result, nil
}

// AvatarLocation resolves the avatar redirect target. An empty string with
// a nil error means the avatar is not set.
func (s *Service) AvatarLocation(userID int64) (string, error) {
	acc, err := s.repo.GetByID(userID)
	if err != nil {
		return "", response.NotFound("User not found")
	}
	switch {
	case acc.AvatarURL == "":
		return "", nil
	case len(acc.AvatarURL) > len("local.") && acc.AvatarURL[:6] == "local.":
		return s.storage.AvatarURL(userID, acc.AvatarURL[6:]), nil
	default:
		return acc.AvatarURL, nil
	}
}

// ProfileEditInput lists the requested profile changes; nil pointers mean
// the field is untouched.
type ProfileEditInput struct {
	Username    *string
	About       *string
	Grade       *string
	NewPassword *string
	OffPassword bool
	Mute        *time.Time
	EmptyAvatar bool
	Avatar      io.Reader
	AvatarExt   string
	AvatarSize  int64
}

func (in ProfileEditInput) editFlags() access.ProfileEdit {
	return access.ProfileEdit{
		Username: in.Username != nil,
		About:    in.About != nil,
		Avatar:   in.Avatar != nil || in.EmptyAvatar,
		Grade:    in.Grade != nil,
		Password: in.NewPassword != nil || in.OffPassword,
		Mute:     in.Mute != nil,
	}
}

// EditProfile applies a profile mutation under the profile edit policy.
func (s *Service) EditProfile(actorID, targetID int64, in ProfileEditInput) error {
	now := time.Now()

	actor, err := s.repo.GetByID(actorID)
	if err != nil {
		return response.Unauthenticated("Invalid session key")
	}
	if _, err := s.repo.GetByID(targetID); err != nil {
		return response.NotFound("User not found")
	}

	verdict := access.EvaluateProfileEdit(actor.Identity(), actor.ProfileState(), targetID, in.editFlags(), now)
	switch verdict.Code {
	case access.ProfileAllowed:
	case access.ProfileCooldown:
		return response.Cooldown(verdict.RetryAt.Format(session.CookieTimeFormat))
	case access.ProfileBadRequest:
		return response.NewStatusError(http.StatusBadRequest, response.ErrInput, verdict.Reason)
	default:
		return response.Forbidden(verdict.Reason)
	}

	updates := map[string]interface{}{}

	if in.Username != nil {
		if len(*in.Username) < UsernameMinLen {
			return response.TooShort("Username is too short")
		}
		if len(*in.Username) > UsernameMaxLen {
			return response.TooLong("Username is too long")
		}
		updates["username"] = *in.Username
		updates["last_username_reset"] = now
	}
	if in.About != nil {
		if len(*in.About) > AboutMaxLen {
			return response.TooLong("About text is too long")
		}
		updates["about"] = *in.About
	}
	if in.Grade != nil {
		if len(*in.Grade) < GradeMinLen {
			return response.TooShort("Grade is too short")
		}
		if len(*in.Grade) > GradeMaxLen {
			return response.TooLong("Grade is too long")
		}
		updates["grade"] = *in.Grade
	}
	if in.OffPassword {
		updates["password_hash"] = nil
		updates["last_password_reset"] = now
	} else if in.NewPassword != nil {
		if len(*in.NewPassword) < PasswordMinLen {
			return response.TooShort("Password is too short")
		}
		if len(*in.NewPassword) > PasswordMaxLen {
			return response.TooLong("Password is too long")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.NewPassword), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %v", err)
		}
		updates["password_hash"] = string(hash)
		updates["last_password_reset"] = now
	}
	if in.Mute != nil {
		if in.Mute.Before(now) {
			return response.TooShort("The mute end date has already passed")
		}
		updates["mute_until"] = *in.Mute
	}

	if in.EmptyAvatar {
		updates["avatar_url"] = ""
		if err := s.storage.Delete("avatar", fmt.Sprintf("%d", targetID)); err != nil {
			zaplogger.Warn("failed to delete avatar", zaplogger.Fields{"user_id": targetID, "error": err.Error()})
		}
	} else if in.Avatar != nil {
		if in.AvatarSize > AvatarMaxBytes {
			return response.TooLong("Avatar must not exceed 2 MB")
		}
		path := fmt.Sprintf("%d.%s", targetID, in.AvatarExt)
		if err := s.storage.Upload("avatar", path, in.Avatar); err != nil {
			return response.Upstream("Failed to upload the avatar")
		}
		updates["avatar_url"] = "local." + in.AvatarExt
	}

	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateFields(targetID, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict("Username is already taken")
		}
		return fmt.Errorf("failed to update profile: %v", err)
	}
	return nil
}

// RightsUpdate lists the permission flags an admin wants to change.
type RightsUpdate struct {
	WriteComments          *bool `json:"write_comments" form:"write_comments"`
	SetReactions           *bool `json:"set_reactions" form:"set_reactions"`
	CreateReactions        *bool `json:"create_reactions" form:"create_reactions"`
	MuteUsers              *bool `json:"mute_users" form:"mute_users"`
	PublishMods            *bool `json:"publish_mods" form:"publish_mods"`
	ChangeAuthorshipMods   *bool `json:"change_authorship_mods" form:"change_authorship_mods"`
	ChangeSelfMods         *bool `json:"change_self_mods" form:"change_self_mods"`
	ChangeMods             *bool `json:"change_mods" form:"change_mods"`
	DeleteSelfMods         *bool `json:"delete_self_mods" form:"delete_self_mods"`
	DeleteMods             *bool `json:"delete_mods" form:"delete_mods"`
	CreateForums           *bool `json:"create_forums" form:"create_forums"`
	ChangeAuthorshipForums *bool `json:"change_authorship_forums" form:"change_authorship_forums"`
	ChangeSelfForums       *bool `json:"change_self_forums" form:"change_self_forums"`
	ChangeForums           *bool `json:"change_forums" form:"change_forums"`
	DeleteSelfForums       *bool `json:"delete_self_forums" form:"delete_self_forums"`
	DeleteForums           *bool `json:"delete_forums" form:"delete_forums"`
	ChangeUsername         *bool `json:"change_username" form:"change_username"`
	ChangeAbout            *bool `json:"change_about" form:"change_about"`
	ChangeAvatar           *bool `json:"change_avatar" form:"change_avatar"`
	VoteForReputation      *bool `json:"vote_for_reputation" form:"vote_for_reputation"`
}

func (u RightsUpdate) columns() map[string]interface{} {
	fields := map[string]*bool{
		"write_comments":           u.WriteComments,
		"set_reactions":            u.SetReactions,
		"create_reactions":         u.CreateReactions,
		"mute_users":               u.MuteUsers,
		"publish_mods":             u.PublishMods,
		"change_authorship_mods":   u.ChangeAuthorshipMods,
		"change_self_mods":         u.ChangeSelfMods,
		"change_mods":              u.ChangeMods,
		"delete_self_mods":         u.DeleteSelfMods,
		"delete_mods":              u.DeleteMods,
		"create_forums":            u.CreateForums,
		"change_authorship_forums": u.ChangeAuthorshipForums,
		"change_self_forums":       u.ChangeSelfForums,
		"change_forums":            u.ChangeForums,
		"delete_self_forums":       u.DeleteSelfForums,
		"delete_forums":            u.DeleteForums,
		"change_username":          u.ChangeUsername,
		"change_about":             u.ChangeAbout,
		"change_avatar":            u.ChangeAvatar,
		"vote_for_reputation":      u.VoteForReputation,
	}
	updates := map[string]interface{}{}
	for column, value := range fields {
		if value != nil {
			updates[column] = *value
		}
	}
	return updates
}

// EditRights changes permission flags. Admin only.
func (s *Service) EditRights(actorID, targetID int64, update RightsUpdate) error {
	actor, err := s.repo.GetByID(actorID)
	if err != nil {
		return response.Unauthenticated("Invalid session key")
	}
	if !actor.Admin {
		return response.Forbidden("Only an administrator may change rights")
	}
	if _, err := s.repo.GetByID(targetID); err != nil {
		return response.NotFound("User not found")
	}

	updates := update.columns()
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateFields(targetID, updates); err != nil {
		return fmt.Errorf("failed to update rights: %v", err)
	}
	return nil
}

// Delete anonymizes the account: PII is nulled, all sessions are broken
// and the external identity ids go on the registration block list for five
// days. Only the account holder may do this.
func (s *Service) Delete(actorID int64) error {
	acc, err := s.repo.GetByID(actorID)
	if err != nil {
		return response.Unauthenticated("Invalid session key")
	}

	if err := s.sessions.BlockRegistration(acc.YandexID, acc.GoogleID); err != nil {
		return fmt.Errorf("failed to block registration: %v", err)
	}
	if err := s.repo.Anonymize(actorID); err != nil {
		return fmt.Errorf("failed to anonymize account: %v", err)
	}
	if err := s.sessions.BreakAllForAccount(actorID, session.BrokenAccountDeleted); err != nil {
		return fmt.Errorf("failed to break sessions: %v", err)
	}
	if acc.AvatarURL != "" {
		if err := s.storage.Delete("avatar", fmt.Sprintf("%d", actorID)); err != nil {
			zaplogger.Warn("failed to delete avatar", zaplogger.Fields{"user_id": actorID, "error": err.Error()})
		}
	}
	return nil
}

// Disconnect unlinks one external identity service. The last linked
// service can never be removed.
func (s *Service) Disconnect(actorID int64, serviceName string) error {
	if serviceName != "google" && serviceName != "yandex" {
		return response.NewStatusError(http.StatusBadRequest, response.ErrInput, "Unknown service name")
	}

	acc, err := s.repo.GetByID(actorID)
	if err != nil {
		return response.NotFound("User not found")
	}
	if acc.YandexID == nil || acc.GoogleID == nil {
		return response.NewStatusError(http.StatusNotAcceptable, response.ErrConflict, "Cannot disconnect the last service from the account")
	}

	return s.repo.UpdateFields(actorID, map[string]interface{}{serviceName + "_id": nil})
}
