package session

import (
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// live filters a query down to usable sessions by refresh expiry.
func (r *Repository) live(now time.Time) *gorm.DB {
	return r.DB.Model(&SessionModel{}).Where("broken IS NULL AND end_date_refresh > ?", now)
}

func (r *Repository) CountLive(ownerID int64, now time.Time) (int64, error) {
	var count int64
	err := r.live(now).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// BreakAllLive marks every live session of the account broken with reason.
func (r *Repository) BreakAllLive(ownerID int64, reason string, now time.Time) error {
	return r.live(now).Where("owner_id = ?", ownerID).Update("broken", reason).Error
}

// BreakAll marks every session of the account broken, expired ones included.
func (r *Repository) BreakAll(ownerID int64, reason string) error {
	return r.DB.Model(&SessionModel{}).
		Where("owner_id = ? AND broken IS NULL", ownerID).
		Update("broken", reason).Error
}

func (r *Repository) Insert(s *SessionModel) error {
	return r.DB.Create(s).Error
}

func (r *Repository) LiveByRefreshToken(token string, now time.Time) (*SessionModel, error) {
	var s SessionModel
	err := r.DB.Where("refresh_token = ? AND broken IS NULL AND end_date_refresh > ?", token, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) LiveByAccessToken(token string, now time.Time) (*SessionModel, error) {
	var s SessionModel
	err := r.DB.Where("access_token = ? AND broken IS NULL AND end_date_access > ?", token, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Rotate replaces both tokens and expiries of a session and stamps the
// last request date.
func (r *Repository) Rotate(id int64, pair TokenPair, now time.Time) error {
	return r.DB.Model(&SessionModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"access_token":      pair.AccessToken,
		"refresh_token":     pair.RefreshToken,
		"end_date_access":   pair.AccessExpiry,
		"end_date_refresh":  pair.RefreshExpiry,
		"last_request_date": now,
	}).Error
}

func (r *Repository) TouchLastRequest(id int64, now time.Time) error {
	return r.DB.Model(&SessionModel{}).Where("id = ?", id).
		Update("last_request_date", now).Error
}

// BreakLiveByAccessToken breaks the live session matching the token and
// reports how many rows changed (0 means the session was already invalid).
func (r *Repository) BreakLiveByAccessToken(token, reason string) (int64, error) {
	result := r.DB.Model(&SessionModel{}).
		Where("access_token = ? AND broken IS NULL", token).
		Update("broken", reason)
	return result.RowsAffected, result.Error
}

// DeleteDeadSessions removes sessions that can never be used again:
// refresh window closed or broken, last touched before the cutoff.
func (r *Repository) DeleteDeadSessions(before time.Time) (int64, error) {
	result := r.DB.
		Where("(end_date_refresh < ? OR broken IS NOT NULL) AND last_request_date < ?", before, before).
		Delete(&SessionModel{})
	return result.RowsAffected, result.Error
}

func (r *Repository) InsertRegistrationBlock(block *RegistrationBlockModel) error {
	return r.DB.Create(block).Error
}

func (r *Repository) DeleteExpiredRegistrationBlocks(now time.Time) error {
	return r.DB.Where("forget < ?", now).Delete(&RegistrationBlockModel{}).Error
}
