package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertItemSQL = `INSERT INTO items (itemtype, entities_id, fields)
VALUES ($1, $2, $3)
RETURNING id`

	updateItemSQL = `UPDATE items
SET entities_id = $3, fields = $4, date_mod = now()
WHERE itemtype = $1 AND id = $2`

	getItemSQL = `SELECT id, itemtype, entities_id, fields, date_creation, date_mod
FROM items
WHERE itemtype = $1 AND id = $2`

	listItemsSQL = `SELECT id, itemtype, entities_id, fields, date_creation, date_mod
FROM items
WHERE itemtype = $1
ORDER BY id
LIMIT $2`

	deleteItemSQL = `DELETE FROM items WHERE itemtype = $1 AND id = $2`
)

// PGStore keeps items in the PostgreSQL "items" table, one JSONB document per item.
type PGStore struct {
	db DBTX
}

// NewPGStore wraps a pool or transaction.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, itemType string, entityID int64, fields Fields) (int64, error) {
	doc, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("encode %s fields: %w", itemType, err)
	}

	var id int64
	if err := s.db.QueryRow(ctx, insertItemSQL, storeKey(itemType), entityID, doc).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", itemType, err)
	}
	return id, nil
}

func (s *PGStore) Update(ctx context.Context, itemType string, id, entityID int64, fields Fields) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", itemType, err)
	}

	tag, err := s.db.Exec(ctx, updateItemSQL, storeKey(itemType), id, entityID, doc)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", itemType, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, itemType string, id int64) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, getItemSQL, storeKey(itemType), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s %d: %w", itemType, id, err)
	}
	return rec, nil
}

func (s *PGStore) List(ctx context.Context, itemType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(ctx, listItemsSQL, storeKey(itemType), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", itemType, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", itemType, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", itemType, err)
	}
	return out, nil
}

func (s *PGStore) Delete(ctx context.Context, itemType string, id int64) error {
	tag, err := s.db.Exec(ctx, deleteItemSQL, storeKey(itemType), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", itemType, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database answers.
func (s *PGStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec Record
		doc []byte
	)
	if err := row.Scan(&rec.ID, &rec.ItemType, &rec.EntityID, &doc, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Fields = Fields{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &rec.Fields); err != nil {
			return Record{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return rec, nil
}
