// Package testutil reúne helpers compartilhados pelos testes: banco SQLite
// migrado, imagens de fixture e dublês das portas de busca remota.
package testutil

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rafabene/avantpro-avatars/internal/infrastructure/persistence/postgres"
)

// NewDB abre um banco SQLite num diretório temporário e aplica as migrações
func NewDB(t TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "avatars.db") + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=off"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("falha ao abrir sqlite: %v", err)
	}

	if err := postgres.AutoMigrate(db); err != nil {
		t.Fatalf("falha ao migrar: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// TB é o subconjunto de testing.TB usado pelos helpers; GinkgoT() também o satisfaz
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	TempDir() string
	Cleanup(func())
}
