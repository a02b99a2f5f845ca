package services

import "github.com/rafabene/avantpro-avatars/internal/infrastructure/locks"

// UserLocks serializa, dentro do processo, as mutações do registro de avatar
// de um mesmo usuário. Entre processos vale o bloqueio de linha.
type UserLocks = locks.Keyed

// NewUserLocks cria um conjunto vazio de locks
func NewUserLocks() *UserLocks {
	return locks.NewKeyed()
}
