package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/pkg/errors"
	"go.uber.org/zap"
)

const inboxColumns = `
	id, country, station_id, title, lat, lon, user_id, user_nickname,
	user_email, extension, comment, reject_reason, created_at, done,
	problem_report, active, crc32, notified, notified_at
`

type inboxRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewInboxRepository(db *DB) repository.InboxRepository {
	return &inboxRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *inboxRepository) Insert(ctx context.Context, entry *domain.InboxEntry) (int64, error) {
	query := `
		INSERT INTO inbox (
			country, station_id, title, lat, lon, user_id, user_nickname,
			user_email, extension, comment, problem_report, active, created_at, done, notified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, false)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		entry.Country, entry.StationID, entry.Title, entry.Lat, entry.Lon,
		entry.UserID, entry.UserNickname, entry.UserEmail, entry.Extension,
		entry.Comment, entry.ProblemReport, entry.Active, entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert inbox entry", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}

	return id, nil
}

func (r *inboxRepository) FindByID(ctx context.Context, id int64) (*domain.InboxEntry, error) {
	query := `SELECT ` + inboxColumns + ` FROM inbox WHERE id = $1`

	entry, err := r.scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrInboxEntryNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get inbox entry", zap.Int64("id", id), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return entry, nil
}

func (r *inboxRepository) FindPendingEntries(ctx context.Context) ([]domain.InboxEntry, error) {
	// has_conflict is derived, never stored: another not-done entry for
	// the same station.
	query := `
		SELECT ` + inboxColumns + `,
			EXISTS (
				SELECT 1 FROM inbox o
				WHERE o.country = inbox.country
				  AND o.station_id = inbox.station_id
				  AND o.done = false
				  AND o.id <> inbox.id
			) AS has_conflict
		FROM inbox
		WHERE done = false
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list pending inbox entries", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var entries []domain.InboxEntry
	for rows.Next() {
		entry, err := scanEntryFields(rows, true)
		if err != nil {
			r.logger.Error("Failed to scan inbox entry", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to read pending inbox entries", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return entries, nil
}

func (r *inboxRepository) CountPendingForStation(ctx context.Context, country, stationID string, excludeID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM inbox
		WHERE country = $1 AND station_id = $2 AND done = false AND id <> $3
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, country, stationID, excludeID).Scan(&count); err != nil {
		r.logger.Error("Failed to count pending entries for station",
			zap.String("country", country),
			zap.String("station_id", stationID),
			zap.Error(err))
		return 0, errors.ErrDatabaseError
	}

	return count, nil
}

func (r *inboxRepository) CountPendingNearby(ctx context.Context, coords domain.Coordinates, excludeID int64) (int, error) {
	// Planar approximation, same formula as utils.ApproxDistanceKm. 0.5 km
	// is the duplicate-suppression threshold.
	query := `
		SELECT COUNT(*)
		FROM inbox
		WHERE done = false
		  AND id <> $3
		  AND lat IS NOT NULL
		  AND lon IS NOT NULL
		  AND SQRT(POWER(71.5 * (lon - $2), 2) + POWER(111.3 * (lat - $1), 2)) < 0.5
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, coords.Lat, coords.Lon, excludeID).Scan(&count); err != nil {
		r.logger.Error("Failed to count nearby pending entries", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}

	return count, nil
}

func (r *inboxRepository) FindByCrc32(ctx context.Context, crc32 uint32) ([]domain.InboxEntry, error) {
	query := `SELECT ` + inboxColumns + ` FROM inbox WHERE crc32 = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, int64(crc32))
	if err != nil {
		r.logger.Error("Failed to find inbox entries by checksum", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var entries []domain.InboxEntry
	for rows.Next() {
		entry, err := scanEntryFields(rows, false)
		if err != nil {
			r.logger.Error("Failed to scan inbox entry", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to read inbox entries by checksum", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return entries, nil
}

func (r *inboxRepository) UpdateCrc32(ctx context.Context, id int64, crc32 uint32) error {
	query := `UPDATE inbox SET crc32 = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, int64(crc32))
	if err != nil {
		r.logger.Error("Failed to update inbox checksum", zap.Int64("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.ErrInboxEntryNotFound
	}

	return nil
}

func (r *inboxRepository) MarkAccepted(ctx context.Context, id int64) error {
	return r.finish(ctx, id, nil)
}

func (r *inboxRepository) MarkRejected(ctx context.Context, id int64, reason string) error {
	return r.finish(ctx, id, &reason)
}

// finish flips a pending entry to done inside one transaction. The row
// lock serializes concurrent moderators on the same entry; a transaction
// scoped advisory lock on the target station additionally serializes
// moderators working on different entries for the same station. An entry
// that is already done is a hard conflict so the audit trail (including
// the original reject reason) is never overwritten.
func (r *inboxRepository) finish(ctx context.Context, id int64, rejectReason *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return errors.ErrDatabaseError
	}
	defer tx.Rollback()

	var done bool
	var country, stationID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT done, country, station_id FROM inbox WHERE id = $1 FOR UPDATE`, id,
	).Scan(&done, &country, &stationID)
	if err == sql.ErrNoRows {
		return errors.ErrInboxEntryNotFound
	}
	if err != nil {
		r.logger.Error("Failed to lock inbox entry", zap.Int64("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}
	if done {
		return errors.ErrInboxEntryDone
	}

	// Released at commit/rollback. New-station proposals have no station
	// key and need no cross-entry serialization.
	if country.Valid && stationID.Valid {
		_, err = tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
			country.String, stationID.String)
		if err != nil {
			r.logger.Error("Failed to lock inbox station",
				zap.Int64("id", id),
				zap.String("country", country.String),
				zap.String("station_id", stationID.String),
				zap.Error(err))
			return errors.ErrDatabaseError
		}
	}

	if rejectReason != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE inbox SET done = true, reject_reason = $2 WHERE id = $1`, id, *rejectReason)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE inbox SET done = true WHERE id = $1`, id)
	}
	if err != nil {
		r.logger.Error("Failed to finish inbox entry", zap.Int64("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit inbox transaction", zap.Int64("id", id), zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

func (r *inboxRepository) FindEntriesToNotify(ctx context.Context) ([]domain.InboxEntry, error) {
	query := `SELECT ` + inboxColumns + ` FROM inbox WHERE done = true AND notified = false ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to find entries to notify", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	var entries []domain.InboxEntry
	for rows.Next() {
		entry, err := scanEntryFields(rows, false)
		if err != nil {
			r.logger.Error("Failed to scan inbox entry", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to read entries to notify", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return entries, nil
}

func (r *inboxRepository) MarkNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE inbox SET notified = true, notified_at = NOW() WHERE id = ANY($1)`

	if _, err := r.db.ExecContext(ctx, query, ids); err != nil {
		r.logger.Error("Failed to mark entries notified", zap.Int("count", len(ids)), zap.Error(err))
		return errors.ErrDatabaseError
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *inboxRepository) scanEntry(row rowScanner) (*domain.InboxEntry, error) {
	return scanEntryFields(row, false)
}

func scanEntryFields(row rowScanner, withConflict bool) (*domain.InboxEntry, error) {
	var entry domain.InboxEntry
	var crc sql.NullInt64

	dest := []interface{}{
		&entry.ID, &entry.Country, &entry.StationID, &entry.Title,
		&entry.Lat, &entry.Lon, &entry.UserID, &entry.UserNickname,
		&entry.UserEmail, &entry.Extension, &entry.Comment,
		&entry.RejectReason, &entry.CreatedAt, &entry.Done,
		&entry.ProblemReport, &entry.Active, &crc, &entry.Notified,
		&entry.NotifiedAt,
	}
	if withConflict {
		dest = append(dest, &entry.HasConflict)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if crc.Valid {
		value := uint32(crc.Int64)
		entry.Crc32 = &value
	}

	return &entry, nil
}
