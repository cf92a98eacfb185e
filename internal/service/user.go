package service

import (
	"planning_poker/internal/models"
	"planning_poker/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.UserRoleRepository
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.UserRoleRepository) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo}
}

// CreateUser 建立用戶並附上預設的參與者角色
func (s *UserService) CreateUser(user *models.User) error {
	if err := s.userRepo.Create(user); err != nil {
		return err
	}
	_, err := s.roleRepo.GetOrCreate(user.ID)
	return err
}

func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	return s.userRepo.FindByUsername(username)
}

// RoleFor 回傳用戶的有效角色
func (s *UserService) RoleFor(user *models.User) (models.Role, error) {
	role, err := s.roleRepo.GetOrCreate(user.ID)
	if err != nil {
		return models.RoleParticipant, err
	}
	return models.EffectiveRole(user, role.Role), nil
}
