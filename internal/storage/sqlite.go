package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tinydoc/internal/record"
)

// SQLiteBackend stores one collection in a database shared with other
// collections. Save rewrites the collection's rows inside one transaction.
type SQLiteBackend struct {
	DB     *sql.DB
	Schema record.Schema
}

func NewSQLiteBackend(db *sql.DB, s record.Schema) *SQLiteBackend {
	return &SQLiteBackend{DB: db, Schema: s}
}

func (b *SQLiteBackend) Load(ctx context.Context) (*record.Collection, error) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", b.Schema.Name, err)
	}
	defer tx.Rollback()

	c := record.NewCollection()
	row := tx.QueryRowContext(ctx, `SELECT next_id FROM collections WHERE name = ?`, b.Schema.Name)
	if err := row.Scan(&c.NextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNoState
		}
		return nil, fmt.Errorf("sqlite load %s: %w", b.Schema.Name, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, price, tags_json
		 FROM records
		 WHERE collection = ?
		 ORDER BY position`, b.Schema.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", b.Schema.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r record.Record
		var tagsJSON string
		if err := rows.Scan(&r.ID, &r.Name, &r.Price, &tagsJSON); err != nil {
			return nil, fmt.Errorf("sqlite load %s: %w", b.Schema.Name, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, &record.DecodeError{Collection: b.Schema.Name, Err: err}
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
		c.Records = append(c.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", b.Schema.Name, err)
	}
	return c, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, c *record.Collection) error {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, next_id) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET next_id = excluded.next_id`,
		b.Schema.Name, c.NextID,
	); err != nil {
		return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, b.Schema.Name); err != nil {
		return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, id, position, name, price, tags_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
	}
	defer stmt.Close()

	for i, r := range c.Records {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, b.Schema.Name, r.ID, i, r.Name, r.Price, string(tagsJSON)); err != nil {
			return fmt.Errorf("sqlite save %s record %d: %w", b.Schema.Name, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite save %s: %w", b.Schema.Name, err)
	}
	return nil
}
