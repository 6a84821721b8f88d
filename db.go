package degrid

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bodgit/degrid/raster"
	"github.com/bodgit/degrid/tile"
	_ "github.com/mattn/go-sqlite3"
)

// PreviewSize is the largest width or height of a stored preview
const PreviewSize = 160

// Record describes one successful restoration.
type Record struct {
	ID             int64
	SHA1           string
	Source         string
	Output         string
	Kind           Kind
	Width          int
	Height         int
	RestoredWidth  int
	RestoredHeight int
	Columns        int
	Frames         int
	Created        time.Time
}

func (r *Record) setGeometry(g tile.Geometry, frames int) {
	r.Width, r.Height = g.Width, g.Height
	r.RestoredWidth, r.RestoredHeight = g.Bounds().Dx(), g.Bounds().Dy()
	r.Columns = g.Columns
	r.Frames = frames
}

// DB is the ledger of restored files.
type DB struct {
	db *sql.DB
}

// NewDB opens, creating if necessary, the ledger stored in file.
func NewDB(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS restoration (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, source TEXT NOT NULL, output TEXT NOT NULL, kind INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, restored_width INTEGER NOT NULL, restored_height INTEGER NOT NULL, columns INTEGER NOT NULL, frames INTEGER NOT NULL, preview BLOB, created INTEGER NOT NULL, UNIQUE(sha1, columns))"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the ledger.
func (db *DB) Close() error {
	return db.db.Close()
}

// Add stores r along with an optional preview of the restored output,
// replacing any existing record for the same input and column count. The ID
// of the stored record is returned.
func (db *DB) Add(r *Record, preview *raster.RGB) (int64, error) {
	var blob []byte
	if preview != nil {
		var err error
		if blob, err = raster.Thumbnail(preview, PreviewSize).MarshalBinary(); err != nil {
			return 0, err
		}
	}

	if r.Created.IsZero() {
		r.Created = time.Now()
	}

	result, err := db.db.Exec("INSERT OR REPLACE INTO restoration (sha1, source, output, kind, width, height, restored_width, restored_height, columns, frames, preview, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", r.SHA1, r.Source, r.Output, int(r.Kind), r.Width, r.Height, r.RestoredWidth, r.RestoredHeight, r.Columns, r.Frames, blob, r.Created.Unix())
	if err != nil {
		return 0, err
	}

	if r.ID, err = result.LastInsertId(); err != nil {
		return 0, err
	}
	return r.ID, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const recordColumns = "id, sha1, source, output, kind, width, height, restored_width, restored_height, columns, frames, created"

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var kind int
	var created int64
	if err := s.Scan(&r.ID, &r.SHA1, &r.Source, &r.Output, &kind, &r.Width, &r.Height, &r.RestoredWidth, &r.RestoredHeight, &r.Columns, &r.Frames, &created); err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	r.Created = time.Unix(created, 0)
	return &r, nil
}

// Find returns the record for the input with the given SHA-1 restored with
// columns grid columns, or nil if there isn't one.
func (db *DB) Find(sha string, columns int) (*Record, error) {
	r, err := scanRecord(db.db.QueryRow("SELECT "+recordColumns+" FROM restoration WHERE sha1 = ? AND columns = ?", sha, columns))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return r, nil
	default:
		return nil, err
	}
}

// List returns every record, oldest first.
func (db *DB) List() ([]Record, error) {
	rows, err := db.db.Query("SELECT " + recordColumns + " FROM restoration ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}

	return records, rows.Err()
}

// Preview returns the stored preview for the record with the given ID, or nil
// if there isn't one.
func (db *DB) Preview(id int64) (*raster.RGB, error) {
	var blob []byte
	switch err := db.db.QueryRow("SELECT preview FROM restoration WHERE id = ?", id).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		if blob == nil {
			return nil, nil
		}

		p := new(raster.RGB)
		if err := p.UnmarshalBinary(blob); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}
