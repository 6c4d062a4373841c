package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"go-melody/roll"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT    NOT NULL,
	family REAL    NOT NULL,
	steps  INTEGER NOT NULL,
	cols   INTEGER NOT NULL,
	roll   BLOB    NOT NULL
)`

// Store is a sqlite cache of encoded records so training can skip parsing
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the cache at path
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Put appends records in a single transaction
func (s *Store) Put(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO tracks(source, family, steps, cols, roll) VALUES(?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.Source, r.Family, r.Roll.Len(), r.Roll.Cols(), pack(r.Roll))
		if err != nil {
			return fmt.Errorf("insert %s: %w", r.Source, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks").Scan(&n)
	return n, err
}

// All returns every stored record in insertion order
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, family, steps, cols, roll FROM tracks ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r           Record
			steps, cols int
			data        []byte
		)
		if err := rows.Scan(&r.Source, &r.Family, &steps, &cols, &data); err != nil {
			return nil, err
		}
		if r.Roll, err = unpack(data, steps, cols); err != nil {
			return nil, fmt.Errorf("record from %s: %w", r.Source, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// pack stores a binary roll as one bit per cell, row-major
func pack(r roll.Roll) []byte {
	cols := r.Cols()
	buf := make([]byte, (r.Len()*cols+7)/8)
	for i, row := range r {
		for j, v := range row {
			if v != 0 {
				bit := i*cols + j
				buf[bit/8] |= 1 << (bit % 8)
			}
		}
	}
	return buf
}

func unpack(buf []byte, steps, cols int) (roll.Roll, error) {
	if len(buf) != (steps*cols+7)/8 {
		return nil, fmt.Errorf("roll blob is %d bytes, want %d", len(buf), (steps*cols+7)/8)
	}
	r := make(roll.Roll, steps)
	for i := range r {
		row := make([]float64, cols)
		for j := range row {
			bit := i*cols + j
			if buf[bit/8]&(1<<(bit%8)) != 0 {
				row[j] = 1
			}
		}
		r[i] = row
	}
	return r, nil
}
