package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/repository"
)

const recordColumns = `id, title, tags, json_file_url, status, user_id, created_at, updated_at`

// RecordRepository implements record.RecordRepository over the sessions table
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a new session record
func (r *RecordRepository) Create(ctx context.Context, rec *record.Record) error {
	tags, err := encodeTags(rec.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Title,
		tags,
		nullString(rec.ContentReference),
		rec.Status,
		rec.OwnerID,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create session record: %w", err)
	}
	return nil
}

// Get retrieves a record visible to viewerID: any published record, or a
// draft owned by the viewer. An empty viewerID sees published records only.
func (r *RecordRepository) Get(ctx context.Context, viewerID, id string) (*record.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM sessions
		WHERE id = ? AND (status = 'published' OR user_id = ?)
	`, id, viewerID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}
	return rec, nil
}

// Update writes the mutable columns of a record owned by ownerID
func (r *RecordRepository) Update(ctx context.Context, ownerID string, rec *record.Record) error {
	tags, err := encodeTags(rec.Tags)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET title = ?, tags = ?, json_file_url = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		rec.Title,
		tags,
		nullString(rec.ContentReference),
		rec.Status,
		rec.UpdatedAt,
		rec.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session record: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a record owned by ownerID
func (r *RecordRepository) Delete(ctx context.Context, ownerID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return requireAffected(result)
}

// List returns records matching opts, newest first by the requested column
func (r *RecordRepository) List(ctx context.Context, opts record.ListOptions) ([]record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sessions`

	var args []any
	var conditions []string
	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.OwnerID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, opts.OwnerID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}

	switch opts.OrderBy {
	case record.OrderUpdatedAt:
		query += " ORDER BY updated_at DESC, id"
	default:
		query += " ORDER BY created_at DESC, id"
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer rows.Close()

	recs := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session record: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session records: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*record.Record, error) {
	var rec record.Record
	var tags string
	var contentRef sql.NullString
	if err := s.Scan(
		&rec.ID,
		&rec.Title,
		&tags,
		&contentRef,
		&rec.Status,
		&rec.OwnerID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", rec.ID, err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	rec.ContentReference = contentRef.String
	return &rec, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("%w: encoding tags: %v", repository.ErrInvalidInput, err)
	}
	return string(b), nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
