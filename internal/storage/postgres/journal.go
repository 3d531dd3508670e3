package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/storage"
)

// maxRecent — верхняя граница выборки Recent.
const maxRecent = 500

const journalColumns = `
id, request_id, actor, op, level, target_id, parent_id, name, outcome, error, created_at
`

func scanEntry(row pgx.Row) (models.JournalEntry, error) {
	var (
		e     models.JournalEntry
		op    string
		level string
		out   string
	)

	if err := row.Scan(
		&e.ID,
		&e.RequestID,
		&e.Actor,
		&op,
		&level,
		&e.TargetID,
		&e.ParentID,
		&e.Name,
		&out,
		&e.Error,
		&e.CreatedAt,
	); err != nil {
		return models.JournalEntry{}, err
	}

	l, err := models.ParseLevel(level)
	if err != nil {
		return models.JournalEntry{}, err
	}
	e.Level = l
	e.Op = models.Operation(op)
	e.Outcome = models.Outcome(out)

	return e, nil
}

// Record вставляет запись журнала.
// Ошибки: storage.ErrDuplicate при повторе request_id, иные — как есть.
func (s *JournalStorage) Record(ctx context.Context, e models.JournalEntry) (models.JournalEntry, error) {
	const op = "storage/postgres/journal/Record"

	if !e.Level.Valid() || e.RequestID == "" {
		return models.JournalEntry{}, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	q := `
	INSERT INTO location_journal (request_id, actor, op, level, target_id, parent_id, name, outcome, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING
	` + journalColumns

	row := s.db.QueryRow(ctx, q,
		e.RequestID,
		e.Actor,
		string(e.Op),
		e.Level.String(),
		e.TargetID,
		e.ParentID,
		e.Name,
		string(e.Outcome),
		e.Error,
	)

	saved, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return models.JournalEntry{}, fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
		}

		return models.JournalEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

// Recent возвращает последние записи журнала, новые первыми.
// limit приводится к [1, maxRecent].
func (s *JournalStorage) Recent(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	const op = "storage/postgres/journal/Recent"

	if limit <= 0 {
		limit = 50
	}
	if limit > maxRecent {
		limit = maxRecent
	}

	q := `SELECT ` + journalColumns + `
	FROM location_journal
	ORDER BY created_at DESC, id DESC
	LIMIT $1`

	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.JournalEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return out, nil
}
