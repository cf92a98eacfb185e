package service

import (
	"github.com/sirupsen/logrus"

	"planning_poker/internal/config"
	"planning_poker/internal/repository"
)

type Services struct {
	UserService *UserService
	RoomService *RoomService
	Sessions    *RoomSessionManager
}

func NewServices(repos *repository.Repositories, policy config.SessionConfig, logger *logrus.Logger) *Services {
	roomService := NewRoomService(repos, policy, logger)

	return &Services{
		UserService: NewUserService(repos.User, repos.UserRole),
		RoomService: roomService,
		Sessions:    NewRoomSessionManager(roomService, logger),
	}
}
