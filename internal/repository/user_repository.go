package repository

import (
	"planning_poker/internal/models"
	"planning_poker/internal/storage"
)

type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
}

type userRepository struct {
	db *storage.PostgresDB
}

func NewUserRepository(db *storage.PostgresDB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

type UserRoleRepository interface {
	GetOrCreate(userID uint) (*models.UserRole, error)
	SetLastRoom(userID, roomID uint) error
}

type userRoleRepository struct {
	db *storage.PostgresDB
}

func NewUserRoleRepository(db *storage.PostgresDB) UserRoleRepository {
	return &userRoleRepository{db: db}
}

// GetOrCreate 取得用戶的角色紀錄，沒有時以一般參與者身分建立
func (r *userRoleRepository) GetOrCreate(userID uint) (*models.UserRole, error) {
	var role models.UserRole
	err := r.db.Where("user_id = ?", userID).
		Attrs(models.UserRole{Role: models.RoleParticipant}).
		FirstOrCreate(&role, models.UserRole{UserID: userID}).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// SetLastRoom 更新管理員最近主持的房間指標
func (r *userRoleRepository) SetLastRoom(userID, roomID uint) error {
	return r.db.Model(&models.UserRole{}).Where("user_id = ?", userID).
		Update("last_room_id", roomID).Error
}
