package account

import (
	"gorm.io/gorm"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) GetByID(id int64) (*AccountModel, error) {
	var acc AccountModel
	err := r.DB.Where("id = ?", id).First(&acc).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// CredentialsByUsername implements session.CredentialStore.
func (r *Repository) CredentialsByUsername(username string) (int64, *string, error) {
	var acc AccountModel
	err := r.DB.Select("id", "password_hash").Where("username = ?", username).First(&acc).Error
	if err != nil {
		return 0, nil, err
	}
	return acc.ID, acc.PasswordHash, nil
}

func (r *Repository) Create(acc *AccountModel) error {
	return r.DB.Create(acc).Error
}

func (r *Repository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.DB.Model(&AccountModel{}).Where("id = ?", id).Updates(fields).Error
}

// Anonymize nulls the personal fields of the account; the row itself and
// its statistics stay.
func (r *Repository) Anonymize(id int64) error {
	return r.DB.Model(&AccountModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"yandex_id":     nil,
		"google_id":     nil,
		"username":      nil,
		"about":         "",
		"avatar_url":    "",
		"grade":         "",
		"password_hash": nil,
	}).Error
}
