package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/repository/postgres"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewInboxRepositoryForTest creates an inbox repository with test database and logger
func NewInboxRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.InboxRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewInboxRepository(pgDB)
}
