/*
Package degrid restores images, animations and videos whose content has been
scrambled by mirroring a grid of tiles.

A Restorer works through a directory of files, restoring each according to
its Kind and recording every successful restoration in a DB so the same
input is not restored twice.
*/
package degrid

import (
	"errors"
	"log"

	"github.com/bodgit/degrid/sequence"
	"github.com/bodgit/degrid/tile"
	"github.com/bodgit/degrid/video"
	"golang.org/x/sync/semaphore"
)

const defaultWorkers = 4

// Options control how files are restored.
type Options struct {
	// Columns is the number of grid columns, tile.DefaultColumns if zero
	Columns int
	// Workers is the number of files restored concurrently
	Workers int
	// FrameWorkers is the number of frames of each animation or video
	// restored concurrently, one per CPU if zero
	FrameWorkers int
	// SkipBadFrames drops frames that can't be restored rather than
	// failing the whole file
	SkipBadFrames bool
	// Force restores files even if the DB says they have been already
	Force bool
	// FFmpeg and FFprobe locate the binaries, the PATH is searched if
	// empty
	FFmpeg  string
	FFprobe string
}

// Restorer restores files, recording the results in a DB.
type Restorer struct {
	db     *DB
	logger *log.Logger
	opts   Options
	tools  video.Tools
	// Only one video is decoded and encoded at a time, each already keeps
	// two ffmpeg processes and FrameWorkers goroutines busy
	videos *semaphore.Weighted
}

// New returns a Restorer that records into db and logs to logger.
func New(db *DB, logger *log.Logger, opts Options) *Restorer {
	if opts.Columns == 0 {
		opts.Columns = tile.DefaultColumns
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	return &Restorer{
		db:     db,
		logger: logger,
		opts:   opts,
		tools: video.Tools{
			FFmpeg:  opts.FFmpeg,
			FFprobe: opts.FFprobe,
		},
		videos: semaphore.NewWeighted(1),
	}
}

func (r *Restorer) driver() *sequence.Driver {
	return &sequence.Driver{
		Columns:       r.opts.Columns,
		Workers:       r.opts.FrameWorkers,
		SkipBadFrames: r.opts.SkipBadFrames,
	}
}

// ErrUnsupportedKind is returned when asked to restore a file whose Kind is
// KindUnknown.
var ErrUnsupportedKind = errors.New("degrid: unsupported file type")
