package repository

import "planning_poker/internal/storage"

type Repositories struct {
	User        UserRepository
	UserRole    UserRoleRepository
	Room        RoomRepository
	Participant ParticipantRepository
	SessionLog  SessionLogRepository
	Anonymous   AnonymousIdentityRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		UserRole:    NewUserRoleRepository(db),
		Room:        NewRoomRepository(db),
		Participant: NewParticipantRepository(db),
		SessionLog:  NewSessionLogRepository(db),
		Anonymous:   NewAnonymousIdentityRepository(db),
	}
}
