package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// loadModel reads the model's JSONL file and inserts its lines into the
// documents table. Loading is transactional: either every valid line is
// inserted or none is. Lines whose data is not a JSON object, or that repeat
// a primary key, are skipped.
func loadModel(db *sql.DB, dataDir, slug string) (int, error) {
	lines, err := readJSONL(jsonlPath(dataDir, slug))
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO documents (model, pk, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, line := range lines {
		if line.Data == nil {
			continue
		}
		body, err := json.Marshal(line.Data)
		if err != nil {
			continue
		}
		res, err := stmt.Exec(slug, line.PK, string(body), line.CreatedAt, line.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("inserting %s/%s: %w", slug, line.PK, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			loaded++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}
