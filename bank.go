package bps

import (
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bodgit/bps/sheet"
	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
	"go.uber.org/multierr"
)

var (
	// ErrNotFound is returned for a sheet name that is not in the bank.
	ErrNotFound = errors.New("bps: sheet not found")
	// ErrNotLoaded is returned when unsetting a sheet that is not loaded.
	ErrNotLoaded = errors.New("bps: sheet not loaded")
)

// Bank stores encoded sheets in an sqlite database. Identical source images
// are only stored once however many names refer to them.
type Bank struct {
	db *sql.DB
}

// NewBank opens, creating if necessary, the database in file.
func NewBank(file string) (*Bank, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	// Writes happen from several import workers
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, data BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS sheet (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, image_id INTEGER NOT NULL, FOREIGN KEY(image_id) REFERENCES image(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &Bank{
		db: db,
	}, nil
}

// Close tidies up the query planner statistics and closes the database.
func (b *Bank) Close() error {
	_, err := b.db.Exec("PRAGMA optimize")
	return multierr.Append(err, b.db.Close())
}

// AddFile decodes the image in file and stores it under name, replacing
// any sheet previously stored with that name.
func (b *Bank) AddFile(name, file string, opts ...sheet.Option) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return b.Add(name, f, opts...)
}

// Add decodes the image read from r and stores it under name, replacing
// any sheet previously stored with that name.
func (b *Bank) Add(name string, r io.Reader, opts ...sheet.Option) error {
	h := sha1.New()
	s, err := sheet.Decode(io.TeeReader(r, h), opts...)
	if err != nil {
		return err
	}
	// Drain anything the decoder did not need so the hash covers the file
	if _, err := io.Copy(h, r); err != nil {
		return err
	}

	// The tile size is part of the stored form
	sum := fmt.Sprintf("%X-%dx%d", h.Sum(nil), s.TileSize().X, s.TileSize().Y)

	id, err := b.addImage(sum, s)
	if err != nil {
		return err
	}

	_, err = b.db.Exec("INSERT INTO sheet (name, image_id) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET image_id = excluded.image_id", name, id)
	return err
}

func (b *Bank) addImage(sum string, s *sheet.Sheet) (int64, error) {
	var id int64
	switch err := b.db.QueryRow("SELECT id FROM image WHERE sha1 = ?", sum).Scan(&id); err {
	case sql.ErrNoRows:
		data, err := s.MarshalBinary()
		if err != nil {
			return 0, err
		}
		result, err := b.db.Exec("INSERT INTO image (sha1, data) VALUES (?, ?)", sum, data)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// Find returns the sheet stored under name.
func (b *Bank) Find(name string) (*sheet.Sheet, error) {
	var data []byte
	switch err := b.db.QueryRow("SELECT i.data FROM sheet AS s JOIN image AS i ON s.image_id = i.id WHERE s.name = ?", name).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	case nil:
		s := new(sheet.Sheet)
		if err := s.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("bps: sheet %q: %w", name, err)
		}
		return s, nil
	default:
		return nil, err
	}
}

// Delete removes the sheet stored under name. Images no longer referenced
// by any name are removed as well.
func (b *Bank) Delete(name string) error {
	result, err := b.db.Exec("DELETE FROM sheet WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	_, err = b.db.Exec("DELETE FROM image WHERE id NOT IN (SELECT image_id FROM sheet)")
	return err
}

// Names returns the names of all stored sheets in order.
func (b *Bank) Names() ([]string, error) {
	rows, err := b.db.Query("SELECT name FROM sheet")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)

	return names, nil
}
