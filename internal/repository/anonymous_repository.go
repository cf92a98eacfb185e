package repository

import (
	"time"

	"planning_poker/internal/models"
	"planning_poker/internal/storage"
)

type AnonymousIdentityRepository interface {
	Create(identity *models.AnonymousIdentity) error
	FindByToken(token string) (*models.AnonymousIdentity, error)
	TouchLastSeen(id uint, at time.Time) error
	PurgeStale(before time.Time) (int64, error)
}

type anonymousIdentityRepository struct {
	db *storage.PostgresDB
}

func NewAnonymousIdentityRepository(db *storage.PostgresDB) AnonymousIdentityRepository {
	return &anonymousIdentityRepository{db: db}
}

func (r *anonymousIdentityRepository) Create(identity *models.AnonymousIdentity) error {
	return r.db.Create(identity).Error
}

func (r *anonymousIdentityRepository) FindByToken(token string) (*models.AnonymousIdentity, error) {
	var identity models.AnonymousIdentity
	if err := r.db.Where("session_token = ?", token).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

func (r *anonymousIdentityRepository) TouchLastSeen(id uint, at time.Time) error {
	return r.db.Model(&models.AnonymousIdentity{}).Where("id = ?", id).
		Update("last_seen", at).Error
}

// PurgeStale 清除保留期限外未活動的匿名身分，回傳刪除筆數
func (r *anonymousIdentityRepository) PurgeStale(before time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("last_seen < ?", before).
		Delete(&models.AnonymousIdentity{})
	return result.RowsAffected, result.Error
}
