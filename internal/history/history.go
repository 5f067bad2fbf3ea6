// Package history persists the watch history in a SQLite database. Entries
// are keyed by (id, season, episode) and remember the source that played.
package history

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"reel/internal/log"
	"reel/internal/media"
)

const schema = `CREATE TABLE IF NOT EXISTS history (
	id         TEXT    NOT NULL,
	title      TEXT    NOT NULL,
	type       TEXT    NOT NULL,
	year       INTEGER NOT NULL DEFAULT 0,
	season     INTEGER NOT NULL DEFAULT 0,
	episode    INTEGER NOT NULL DEFAULT 0,
	position   REAL    NOT NULL DEFAULT 0,
	duration   REAL    NOT NULL DEFAULT 0,
	source_id  TEXT    NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (id, season, episode)
)`

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all entries, most recently watched first.
func (s *Store) Load() ([]media.HistoryEntry, error) {
	rows, err := s.db.Query(`SELECT id, title, type, year, season, episode, position, duration, source_id
		FROM history ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Find returns the entry for one movie or episode.
func (s *Store) Find(id string, season, episode int) (mo.Option[media.HistoryEntry], error) {
	row := s.db.QueryRow(`SELECT id, title, type, year, season, episode, position, duration, source_id
		FROM history WHERE id = ? AND season = ? AND episode = ?`, id, season, episode)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[media.HistoryEntry](), nil
	}
	if err != nil {
		return mo.None[media.HistoryEntry](), err
	}
	return mo.Some(e), nil
}

// Save inserts or updates an entry and marks it most recent.
func (s *Store) Save(e media.HistoryEntry) error {
	_, err := s.db.Exec(`INSERT INTO history
		(id, title, type, year, season, episode, position, duration, source_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, season, episode) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			year = excluded.year,
			position = excluded.position,
			duration = excluded.duration,
			source_id = excluded.source_id,
			updated_at = excluded.updated_at`,
		e.ID, e.Title, e.Type.String(), e.Year, e.Season, e.Episode,
		e.Position, e.Duration, e.SourceID, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("saving history entry %s: %w", e.ID, err)
	}
	return nil
}

// Remove deletes an entry.
func (s *Store) Remove(id string, season, episode int) error {
	_, err := s.db.Exec(`DELETE FROM history WHERE id = ? AND season = ? AND episode = ?`, id, season, episode)
	if err != nil {
		return fmt.Errorf("removing history entry %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (media.HistoryEntry, error) {
	var e media.HistoryEntry
	var typ string
	err := sc.Scan(&e.ID, &e.Title, &typ, &e.Year, &e.Season, &e.Episode, &e.Position, &e.Duration, &e.SourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning history row: %w", err)
	}
	e.Type, _ = media.ParseMediaType(typ)
	return e, nil
}

// ImportLegacy copies entries from the TSV history written by older
// releases, then renames the file so the import runs once. A missing file
// is not an error. It returns the number of entries imported.
func (s *Store) ImportLegacy(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening legacy history: %w", err)
	}

	var entries []media.HistoryEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, entry)
	}
	f.Close()
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading legacy history: %w", err)
	}

	for _, e := range entries {
		if err := s.Save(e); err != nil {
			return 0, err
		}
	}
	if err := os.Rename(path, path+".imported"); err != nil {
		return len(entries), fmt.Errorf("retiring legacy history: %w", err)
	}

	log.With("history").WithField("entries", len(entries)).Info("imported legacy history")
	return len(entries), nil
}

// FormatForDisplay creates picker labels from history entries.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		display := e.Title
		if e.Type == media.Show {
			display = fmt.Sprintf("%s S%02dE%02d", e.Title, e.Season, e.Episode)
		}
		if e.Position > 0 {
			if e.Duration > 0 {
				display += fmt.Sprintf(" [%.0f%%]", (e.Position/e.Duration)*100)
			} else {
				display += " [" + FormatDuration(e.Position) + "]"
			}
		}
		items = append(items, display)
	}
	return items
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(secs float64) string {
	total := int(secs)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// TSV columns: id, title, type, season, episode, position, duration
const numColumns = 7

// parseLine parses a legacy TSV line into a HistoryEntry.
func parseLine(line string) (media.HistoryEntry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < numColumns {
		return media.HistoryEntry{}, fmt.Errorf("expected %d columns, got %d", numColumns, len(fields))
	}

	mediaType, err := media.ParseMediaType(fields[2])
	if err != nil {
		return media.HistoryEntry{}, err
	}

	season, _ := strconv.Atoi(fields[3])
	episode, _ := strconv.Atoi(fields[4])
	position, _ := strconv.ParseFloat(fields[5], 64)
	duration, _ := strconv.ParseFloat(fields[6], 64)

	return media.HistoryEntry{
		ID:       fields[0],
		Title:    fields[1],
		Type:     mediaType,
		Season:   season,
		Episode:  episode,
		Position: position,
		Duration: duration,
	}, nil
}
