package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, letting
// the same statements run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every storage operation over a dbtx.
type queries struct {
	db dbtx
}

// GetRecord fetches one record by type and identity.
func (q *queries) GetRecord(ctx context.Context, entityType, identity string) (*entities.Record, error) {
	query := `
		SELECT attributes
		FROM records
		WHERE entity_type = ? AND identity = ?
	`
	row := q.db.QueryRowContext(ctx, query, entityType, identity)

	var attrsJSON string
	err := row.Scan(&attrsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	rec := &entities.Record{
		Ref: entities.RecordRef{Type: entityType, Identity: identity},
	}
	if err := json.Unmarshal([]byte(attrsJSON), &rec.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshaling record attributes: %w", err)
	}
	return rec, nil
}

// FindReferencing returns refs of records of entityType whose field
// holds the identity value. The attribute is compared as text so both
// string and whole-number identities match.
func (q *queries) FindReferencing(ctx context.Context, entityType, field, identity string) ([]entities.RecordRef, error) {
	query := `
		SELECT identity
		FROM records
		WHERE entity_type = ?
		  AND CAST(json_extract(attributes, '$.' || ?) AS TEXT) = ?
		ORDER BY identity
	`
	rows, err := q.db.QueryContext(ctx, query, entityType, field, identity)
	if err != nil {
		return nil, fmt.Errorf("querying referencing records: %w", err)
	}
	defer rows.Close()

	refs := make([]entities.RecordRef, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning referencing record: %w", err)
		}
		refs = append(refs, entities.RecordRef{Type: entityType, Identity: id})
	}
	return refs, rows.Err()
}

// InsertRecord inserts a record under the next identity of its type.
func (q *queries) InsertRecord(ctx context.Context, rec *entities.Record) (string, error) {
	identity, err := q.nextIdentity(ctx, rec.Ref.Type)
	if err != nil {
		return "", err
	}

	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return "", fmt.Errorf("marshaling record attributes: %w", err)
	}

	query := `INSERT INTO records (entity_type, identity, attributes) VALUES (?, ?, ?)`
	if _, err := q.db.ExecContext(ctx, query, rec.Ref.Type, identity, string(attrs)); err != nil {
		return "", fmt.Errorf("inserting record: %w", err)
	}
	return identity, nil
}

// InsertRecordWithIdentity inserts a record verbatim under the identity
// carried by its ref, then bumps the type's sequence past it so a later
// auto-assignment cannot reuse it.
func (q *queries) InsertRecordWithIdentity(ctx context.Context, rec *entities.Record) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshaling record attributes: %w", err)
	}

	query := `INSERT INTO records (entity_type, identity, attributes) VALUES (?, ?, ?)`
	if _, err := q.db.ExecContext(ctx, query, rec.Ref.Type, rec.Ref.Identity, string(attrs)); err != nil {
		return fmt.Errorf("inserting record with identity %s: %w", rec.Ref, err)
	}

	if id, numErr := strconv.ParseInt(rec.Ref.Identity, 10, 64); numErr == nil {
		bump := `
			INSERT INTO identity_seq (entity_type, next_id)
			VALUES (?, ?)
			ON CONFLICT(entity_type) DO UPDATE SET
				next_id = MAX(next_id, excluded.next_id)
		`
		if _, err := q.db.ExecContext(ctx, bump, rec.Ref.Type, id+1); err != nil {
			return fmt.Errorf("bumping identity sequence: %w", err)
		}
	}
	return nil
}

// SetRecordField overwrites one attribute value; nil clears the field.
func (q *queries) SetRecordField(ctx context.Context, ref entities.RecordRef, field string, value any) error {
	rec, err := q.GetRecord(ctx, ref.Type, ref.Identity)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s: %w", ref, entities.ErrRecordNotFound)
	}

	if rec.Attributes == nil {
		rec.Attributes = make(map[string]any, 1)
	}
	rec.Attributes[field] = value

	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshaling record attributes: %w", err)
	}

	query := `UPDATE records SET attributes = ? WHERE entity_type = ? AND identity = ?`
	if _, err := q.db.ExecContext(ctx, query, string(attrs), ref.Type, ref.Identity); err != nil {
		return fmt.Errorf("updating record field: %w", err)
	}
	return nil
}

// DeleteRecord hard-deletes a record.
func (q *queries) DeleteRecord(ctx context.Context, entityType, identity string) error {
	query := `DELETE FROM records WHERE entity_type = ? AND identity = ?`
	result, err := q.db.ExecContext(ctx, query, entityType, identity)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%s/%s: %w", entityType, identity, entities.ErrRecordNotFound)
	}
	return nil
}

// nextIdentity reserves the next auto-assigned identity for a type.
func (q *queries) nextIdentity(ctx context.Context, entityType string) (string, error) {
	reserve := `
		INSERT INTO identity_seq (entity_type, next_id)
		VALUES (?, 2)
		ON CONFLICT(entity_type) DO UPDATE SET next_id = next_id + 1
		RETURNING next_id - 1
	`
	var id int64
	if err := q.db.QueryRowContext(ctx, reserve, entityType).Scan(&id); err != nil {
		return "", fmt.Errorf("reserving identity: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
