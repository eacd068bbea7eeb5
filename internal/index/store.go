// Package index persists the catalog and answers nearest-neighbor and
// keyword queries over it. The store supports concurrent readers; writers
// are serialized through sqlite's WAL discipline.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"tagmatch/internal"
)

type Store struct {
	conn *sql.DB
}

// Hit is one vector-query result. Similarity is cosine, reported directly
// (callers treating it as 1 - distance get the same number).
type Hit struct {
	Item       internal.CatalogItem
	Similarity float64
}

// Filter restricts a vector query by metadata before scoring: brand
// equality and a stock floor.
type Filter struct {
	Brand    string
	MinStock int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS items (
  itemId TEXT PRIMARY KEY,
  brand TEXT NOT NULL,
  code TEXT,
  name TEXT,
  serial TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  hasImage INTEGER NOT NULL DEFAULT 0,
  sourceFile TEXT,
  sheetName TEXT,
  rowIndex INTEGER,
  searchText TEXT NOT NULL,
  embedding BLOB,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_brand ON items(brand);
CREATE INDEX IF NOT EXISTS idx_items_stock ON items(stock);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := s.conn.Exec(schema)
	return err
}

// UpsertItems writes one batch of rows with their embeddings. Upserting an
// existing itemId replaces the row and its vector entirely.
func (s *Store) UpsertItems(items []internal.CatalogItem, vectors [][]float32) error {
	if len(items) != len(vectors) {
		return fmt.Errorf("index: %d items with %d vectors", len(items), len(vectors))
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO items (
  itemId, brand, code, name, serial, stock, hasImage,
  sourceFile, sheetName, rowIndex, searchText, embedding, updatedAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(itemId) DO UPDATE SET
  brand=excluded.brand,
  code=excluded.code,
  name=excluded.name,
  serial=excluded.serial,
  stock=excluded.stock,
  hasImage=excluded.hasImage,
  sourceFile=excluded.sourceFile,
  sheetName=excluded.sheetName,
  rowIndex=excluded.rowIndex,
  searchText=excluded.searchText,
  embedding=excluded.embedding,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.Exec(
			item.ItemID, item.Brand, item.Code, item.Name, item.Serial,
			item.Stock, boolToInt(item.HasImage),
			item.SourceFile, item.SheetName, item.RowIndex,
			item.SearchText, EncodeVector(vectors[i]),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns one item and its stored embedding, or (nil, nil, nil) if the
// id is unknown.
func (s *Store) Get(itemID string) (*internal.CatalogItem, []float32, error) {
	row := s.conn.QueryRow(`
SELECT itemId, brand, code, name, serial, stock, hasImage,
       sourceFile, sheetName, rowIndex, searchText, embedding
FROM items WHERE itemId = ?`, itemID)

	item, blob, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, nil, err
	}
	return item, vec, nil
}

// Query scans the (optionally filtered) catalog brute-force, scoring every
// stored embedding against the query vector and returning the top k by
// cosine similarity. Rows without a vector are ignored.
func (s *Store) Query(embedding []float32, k int, filter Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	query := `
SELECT itemId, brand, code, name, serial, stock, hasImage,
       sourceFile, sheetName, rowIndex, searchText, embedding
FROM items WHERE embedding IS NOT NULL`
	args := []any{}
	if filter.Brand != "" {
		query += ` AND brand = ?`
		args = append(args, filter.Brand)
	}
	if filter.MinStock > 0 {
		query += ` AND stock >= ?`
		args = append(args, filter.MinStock)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		item, blob, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Item: *item, Similarity: Cosine(embedding, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ListItems returns every stored row without embeddings; the lexical index
// is rebuilt from this.
func (s *Store) ListItems() ([]internal.CatalogItem, error) {
	rows, err := s.conn.Query(`
SELECT itemId, brand, code, name, serial, stock, hasImage,
       sourceFile, sheetName, rowIndex, searchText, NULL
FROM items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogItem
	for rows.Next() {
		item, _, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

func (s *Store) BrandCounts() (map[string]int, error) {
	rows, err := s.conn.Query(`SELECT brand, COUNT(*) FROM items GROUP BY brand ORDER BY brand`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var brand string
		var count int
		if err := rows.Scan(&brand, &count); err != nil {
			return nil, err
		}
		out[brand] = count
	}
	return out, rows.Err()
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (s *Store) GetMetadata(key string) (*string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*internal.CatalogItem, []byte, error) {
	var item internal.CatalogItem
	var hasImage int
	var blob []byte
	err := row.Scan(
		&item.ItemID, &item.Brand, &item.Code, &item.Name, &item.Serial,
		&item.Stock, &hasImage,
		&item.SourceFile, &item.SheetName, &item.RowIndex,
		&item.SearchText, &blob,
	)
	if err != nil {
		return nil, nil, err
	}
	item.HasImage = hasImage != 0
	return &item, blob, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
