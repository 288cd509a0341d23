package account

import (
	"time"

	"github.com/openworkshop/owapi/api/access"
)

const AccountsTableName = "accounts"

// Validation limits for profile fields.
const (
	UsernameMinLen = 2
	UsernameMaxLen = 128
	AboutMaxLen    = 512
	GradeMinLen    = 2
	GradeMaxLen    = 128
	PasswordMinLen = 6
	PasswordMaxLen = 100
	AvatarMaxBytes = 2_097_152
)

// AccountModel is one user identity. Username and the external identity
// ids are pointers because deletion anonymizes the row instead of removing
// it. A nil PasswordHash means password login is disabled.
type AccountModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	YandexID *int64  `gorm:"index" json:"-"`
	GoogleID *string `gorm:"size:512;index" json:"-"`

	Username          *string    `gorm:"size:128;uniqueIndex" json:"username"`
	LastUsernameReset *time.Time `json:"-"`

	About     string `gorm:"size:512" json:"about"`
	AvatarURL string `gorm:"size:512" json:"avatar_url"`
	Grade     string `gorm:"size:128" json:"grade"`

	Comments   int64 `json:"comments"`
	AuthorMods int64 `json:"author_mods"`

	RegistrationDate time.Time `json:"registration_date"`

	PasswordHash      *string    `gorm:"size:512" json:"-"`
	LastPasswordReset *time.Time `json:"-"`

	Reputation int64 `json:"reputation"`

	// Admin supersedes every flag in Rights.
	Admin bool `json:"admin"`

	// MuteUntil gates social actions while in the future.
	MuteUntil *time.Time `json:"mute_until"`

	Rights access.Rights `gorm:"embedded" json:"rights"`
}

func (AccountModel) TableName() string {
	return AccountsTableName
}

// DefaultRights are the capabilities a fresh account starts with.
func DefaultRights() access.Rights {
	return access.Rights{
		WriteComments:     true,
		SetReactions:      true,
		PublishMods:       true,
		ChangeSelfMods:    true,
		DeleteSelfMods:    true,
		CreateForums:      true,
		ChangeSelfForums:  true,
		DeleteSelfForums:  true,
		ChangeUsername:    true,
		ChangeAbout:       true,
		ChangeAvatar:      true,
		VoteForReputation: true,
	}
}

// Identity builds the evaluator snapshot of the account.
func (a *AccountModel) Identity() access.Identity {
	return access.Identity{
		ID:        a.ID,
		Admin:     a.Admin,
		MuteUntil: a.MuteUntil,
		Rights:    a.Rights,
	}
}

// ProfileState carries the cooldown anchors for the profile edit policy.
func (a *AccountModel) ProfileState() access.ProfileState {
	return access.ProfileState{
		LastUsernameReset: a.LastUsernameReset,
		LastPasswordReset: a.LastPasswordReset,
	}
}

// Muted reports whether the account is under an active mute.
func (a *AccountModel) Muted(now time.Time) bool {
	return a.MuteUntil != nil && a.MuteUntil.After(now)
}
