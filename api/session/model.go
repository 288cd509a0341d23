package session

import (
	"time"
)

const SessionsTableName = "sessions"
const RegistrationBlocksTableName = "blocked_account_creation"

// Broken reasons. Set once when a session is invalidated, never unset.
const (
	BrokenLogout          = "logout"
	BrokenTooManySessions = "too many sessions"
	BrokenAccountDeleted  = "account deleted"
)

// Token lifetimes and the live-session cap.
const (
	AccessTokenTTL  = 40 * time.Minute
	RefreshTokenTTL = 60 * 24 * time.Hour
	// MaxLiveSessions is the number of live sessions an account may hold.
	// Issuing one more breaks every session of the account first.
	MaxLiveSessions = 9
	// RegistrationBlockTTL is how long a deleted account's external ids
	// stay on the registration block list.
	RegistrationBlockTTL = 5 * 24 * time.Hour
)

// SessionModel is one issued credential pair. A session is usable only
// while Broken is nil and the relevant expiry is in the future.
type SessionModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	OwnerID int64 `gorm:"index" json:"owner_id"`

	AccessToken  string `gorm:"size:512;index" json:"-"`
	RefreshToken string `gorm:"size:512;index" json:"-"`

	Broken *string `gorm:"size:124" json:"broken"`

	LoginMethod string `gorm:"size:124" json:"login_method"`

	LastRequestDate *time.Time `json:"last_request_date"`
	StartDate       time.Time  `json:"start_date"`
	EndDateAccess   time.Time  `json:"end_date_access"`
	EndDateRefresh  time.Time  `json:"end_date_refresh"`
}

func (SessionModel) TableName() string {
	return SessionsTableName
}

// RegistrationBlockModel blocks re-registration with the external identity
// ids of a recently deleted account. Rows are purged once Forget passes.
type RegistrationBlockModel struct {
	ID       int64   `gorm:"primaryKey" json:"id"`
	YandexID *int64  `gorm:"index" json:"yandex_id"`
	GoogleID *string `gorm:"size:512;index" json:"google_id"`
	Forget   time.Time
}

func (RegistrationBlockModel) TableName() string {
	return RegistrationBlocksTableName
}

// TokenPair is the credential pair returned on issue and refresh.
type TokenPair struct {
	AccessToken   string    `json:"access_token"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshToken  string    `json:"refresh_token"`
	RefreshExpiry time.Time `json:"refresh_expiry"`
}
