package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/openworkshop/owapi/shared/zaplogger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrUnauthenticated is the single failure value of every lookup: not
// found, expired and broken are indistinguishable to callers.
var ErrUnauthenticated = errors.New("invalid session")

// CredentialStore looks up password credentials by username. Implemented
// by the account repository; an interface here keeps the dependency
// pointing from account to session only.
type CredentialStore interface {
	CredentialsByUsername(username string) (accountID int64, passwordHash *string, err error)
}

type Service struct {
	repo        *Repository
	credentials CredentialStore
}

func NewService(db *gorm.DB, credentials CredentialStore) *Service {
	return &Service{
		repo:        NewRepository(db),
		credentials: credentials,
	}
}

// generateToken returns a 256-bit opaque token from the system CSPRNG.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

func newTokenPair(now time.Time) (TokenPair, error) {
	accessToken, err := generateToken()
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := generateToken()
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:   accessToken,
		AccessExpiry:  now.Add(AccessTokenTTL),
		RefreshToken:  refreshToken,
		RefreshExpiry: now.Add(RefreshTokenTTL),
	}, nil
}

// IssueSession creates a new session for the account. If the account
// already holds more than MaxLiveSessions live sessions, every session is
// broken with "too many sessions" first, the burst in progress included.
func (s *Service) IssueSession(ownerID int64, loginMethod string) (TokenPair, error) {
	now := time.Now()

	count, err := s.repo.CountLive(ownerID, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to count sessions: %v", err)
	}
	if count > MaxLiveSessions {
		if err := s.repo.BreakAllLive(ownerID, BrokenTooManySessions, now); err != nil {
			return TokenPair{}, fmt.Errorf("failed to break sessions: %v", err)
		}
	}

	pair, err := newTokenPair(now)
	if err != nil {
		return TokenPair{}, err
	}

	record := SessionModel{
		OwnerID:        ownerID,
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		LoginMethod:    loginMethod,
		StartDate:      now,
		EndDateAccess:  pair.AccessExpiry,
		EndDateRefresh: pair.RefreshExpiry,
	}
	if err := s.repo.Insert(&record); err != nil {
		return TokenPair{}, fmt.Errorf("failed to insert session: %v", err)
	}

	return pair, nil
}

// PasswordLogin verifies username/password and issues a session. Accounts
// with a nil password hash have password login disabled.
func (s *Service) PasswordLogin(username, password string) (int64, TokenPair, error) {
	accountID, hash, err := s.credentials.CredentialsByUsername(username)
	if err != nil || hash == nil || len(*hash) < 2 {
		return 0, TokenPair{}, ErrUnauthenticated
	}
	if bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) != nil {
		return 0, TokenPair{}, ErrUnauthenticated
	}

	pair, err := s.IssueSession(accountID, "password")
	if err != nil {
		return 0, TokenPair{}, err
	}
	return accountID, pair, nil
}

// RefreshSession rotates both tokens of the live session matching the
// refresh token. The old pair becomes permanently unusable; there is no
// grace window.
func (s *Service) RefreshSession(refreshToken string) (int64, TokenPair, error) {
	now := time.Now()

	record, err := s.repo.LiveByRefreshToken(refreshToken, now)
	if err != nil {
		return 0, TokenPair{}, ErrUnauthenticated
	}

	pair, err := newTokenPair(now)
	if err != nil {
		return 0, TokenPair{}, err
	}
	if err := s.repo.Rotate(record.ID, pair, now); err != nil {
		return 0, TokenPair{}, fmt.Errorf("failed to rotate session: %v", err)
	}

	return record.OwnerID, pair, nil
}

// ValidateAccessToken returns the live session matching the access token
// and stamps its last request date. Every failure is ErrUnauthenticated.
func (s *Service) ValidateAccessToken(accessToken string) (*SessionModel, error) {
	now := time.Now()

	record, err := s.repo.LiveByAccessToken(accessToken, now)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if err := s.repo.TouchLastRequest(record.ID, now); err != nil {
		zaplogger.Warn("failed to update session last request date", zaplogger.Fields{"error": err.Error()})
	}
	return record, nil
}

// ResolveIdentity is the single entry point of every protected endpoint:
// the access token is validated first, and an expired one is transparently
// rotated through the refresh token. A non-nil rotated pair must be written
// back to the caller's cookies before the response is sent.
func (s *Service) ResolveIdentity(accessToken, refreshToken string) (ownerID int64, rotated *TokenPair, err error) {
	s.PurgeExpiredRegistrationBlocks()

	if accessToken != "" {
		if record, err := s.ValidateAccessToken(accessToken); err == nil {
			return record.OwnerID, nil, nil
		}
	}
	if refreshToken != "" {
		if ownerID, pair, err := s.RefreshSession(refreshToken); err == nil {
			return ownerID, &pair, nil
		}
	}
	return 0, nil, ErrUnauthenticated
}

// Logout breaks the live session matching the access token. A second call
// on an already broken session is a reported no-op failure.
func (s *Service) Logout(accessToken string) error {
	affected, err := s.repo.BreakLiveByAccessToken(accessToken, BrokenLogout)
	if err != nil {
		return fmt.Errorf("failed to break session: %v", err)
	}
	if affected == 0 {
		return ErrUnauthenticated
	}
	return nil
}

// BreakAllForAccount invalidates every session of the account, used on
// account deletion.
func (s *Service) BreakAllForAccount(ownerID int64, reason string) error {
	return s.repo.BreakAll(ownerID, reason)
}

// BlockRegistration puts the external identity ids of a deleted account on
// the block list for RegistrationBlockTTL.
func (s *Service) BlockRegistration(yandexID *int64, googleID *string) error {
	return s.repo.InsertRegistrationBlock(&RegistrationBlockModel{
		YandexID: yandexID,
		GoogleID: googleID,
		Forget:   time.Now().Add(RegistrationBlockTTL),
	})
}

// SweepDeadSessions deletes sessions untouched for the retention window
// whose refresh expired or that were broken. Returns the removed count.
func (s *Service) SweepDeadSessions(retention time.Duration) int64 {
	removed, err := s.repo.DeleteDeadSessions(time.Now().Add(-retention))
	if err != nil {
		zaplogger.Warn("failed to sweep dead sessions", zaplogger.Fields{"error": err.Error()})
		return 0
	}
	return removed
}

// PurgeExpiredRegistrationBlocks drops block list rows past their
// retention window. Called opportunistically before identity resolution
// and from the cron sweep; failures are logged, never surfaced.
func (s *Service) PurgeExpiredRegistrationBlocks() {
	if err := s.repo.DeleteExpiredRegistrationBlocks(time.Now()); err != nil {
		zaplogger.Warn("failed to purge registration blocks", zaplogger.Fields{"error": err.Error()})
	}
}
