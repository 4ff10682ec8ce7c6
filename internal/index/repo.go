package index

import (
	"fmt"
	"time"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Name      string
	File      string
	Title     string
	Checksum  string
	IsEntry   bool
	UpdatedAt time.Time
}

// LinkRow is one directed edge.
type LinkRow struct {
	Source string
	Target string
}

// ReplaceGraph swaps the stored graph for the given one in a single transaction.
func (db *DB) ReplaceGraph(notes []NoteRow, links []LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}

	noteStmt, err := tx.Prepare(`
		INSERT INTO notes (name, file, title, checksum, is_entry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer noteStmt.Close()
	for _, n := range notes {
		if _, err := noteStmt.Exec(n.Name, n.File, n.Title, n.Checksum, n.IsEntry, n.UpdatedAt); err != nil {
			return fmt.Errorf("index: insert note %s: %w", n.Name, err)
		}
	}

	linkStmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for _, l := range links {
		if _, err := linkStmt.Exec(l.Source, l.Target); err != nil {
			return fmt.Errorf("index: insert link: %w", err)
		}
	}

	return tx.Commit()
}

// Backlinks returns all note names that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	return db.names(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
}

// Outbound returns all targets the given note links to, including dead ones.
func (db *DB) Outbound(source string) ([]string, error) {
	return db.names(`SELECT target FROM links WHERE source = ? ORDER BY target`, source)
}

// Notes returns every stored note ordered by name.
func (db *DB) Notes() ([]NoteRow, error) {
	rows, err := db.conn.Query(`SELECT name, file, title, checksum, is_entry, updated_at FROM notes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := rows.Scan(&n.Name, &n.File, &n.Title, &n.Checksum, &n.IsEntry, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) names(query, arg string) ([]string, error) {
	rows, err := db.conn.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
