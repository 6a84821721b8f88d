package sequence

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"

	"github.com/bodgit/degrid/tile"
)

// Driver restores every frame of a Source. The zero value restores using
// tile.DefaultColumns and one worker per CPU.
type Driver struct {
	// Columns is the number of grid columns
	Columns int
	// Workers is the number of frames restored concurrently
	Workers int
	// SkipBadFrames drops frames that fail to restore, or that differ in
	// size from the first frame, rather than aborting the sequence
	SkipBadFrames bool

	// OnFrame, if set, is called in order with each restored frame before
	// it is delivered
	OnFrame func(index int, f Frame)
	// OnError, if set, is called with each frame dropped because of
	// SkipBadFrames
	OnError func(index int, err error)
}

var errNoImage = errors.New("sequence: frame has no image")

type result struct {
	frame Frame
	err   error
}

// slot tracks one frame through the pipeline. Slots are queued in read order
// so results can be collected in order regardless of which worker finishes
// first.
type slot struct {
	index    int
	frame    Frame
	geometry tile.Geometry
	out      chan result
	err      error
	eof      bool
}

func (d *Driver) columns() int {
	if d.Columns == 0 {
		return tile.DefaultColumns
	}
	return d.Columns
}

func (d *Driver) workers() int {
	if d.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return d.Workers
}

// skippable reports whether a frame that failed before being restored can be
// dropped without ending the sequence
func (d *Driver) skippable(err error) bool {
	return d.SkipBadFrames && errors.Is(err, ErrInconsistentFrameSize)
}

func (d *Driver) dropped(index int, err error) {
	if d.OnError != nil {
		d.OnError(index, err)
	}
}

func (d *Driver) readFrames(ctx context.Context, src Source, workers int) (<-chan *slot, <-chan *slot) {
	jobs := make(chan *slot)
	queue := make(chan *slot, workers)
	go func() {
		defer close(jobs)
		defer close(queue)

		var g tile.Geometry
		for i := 0; ; i++ {
			f, err := src.Next()
			if err == io.EOF {
				select {
				case queue <- &slot{index: i, eof: true}:
				case <-ctx.Done():
				}
				return
			}

			s := &slot{
				index: i,
				frame: f,
				out:   make(chan result, 1),
			}

			switch {
			case err != nil:
				s.err = &FrameError{Index: i, Err: err}
			case f.Image == nil:
				s.err = &FrameError{Index: i, Err: errNoImage}
			case i == 0:
				b := f.Image.Bounds()
				g, s.err = tile.Resolve(b.Dx(), b.Dy(), d.columns())
			case f.Image.Bounds().Size() != g.Size():
				s.err = &InconsistentFrameSizeError{
					Index: i,
					Want:  g.Size(),
					Got:   f.Image.Bounds().Size(),
				}
			}
			s.geometry = g

			select {
			case queue <- s:
			case <-ctx.Done():
				return
			}

			// Errors are terminal, the collector reports them once
			// every earlier frame has been delivered
			if s.err != nil {
				if d.skippable(s.err) {
					continue
				}
				return
			}

			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return jobs, queue
}

func restoreWorker(jobs <-chan *slot, wg *sync.WaitGroup) {
	defer wg.Done()
	for s := range jobs {
		m, err := s.geometry.Restore(s.frame.Image)
		if err != nil {
			s.out <- result{err: err}
			continue
		}
		s.out <- result{
			frame: Frame{
				Image: m,
				Delay: s.frame.Delay,
			},
		}
	}
}

// Restore returns a channel of restored frames in the same order as they
// were read from src, and a channel that receives at most one error. The
// frame channel must be drained, or ctx cancelled, for the pipeline to
// finish. Frames delivered before an error are complete and valid.
func (d *Driver) Restore(ctx context.Context, src Source) (<-chan Frame, <-chan error) {
	out := make(chan Frame)
	errc := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)

	workers := d.workers()
	jobs, queue := d.readFrames(ctx, src, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go restoreWorker(jobs, &wg)
	}

	go func() {
		defer close(errc)
		defer close(out)
		defer wg.Wait()
		defer cancel()

		for s := range queue {
			if s.eof {
				return
			}
			if s.err != nil {
				if d.skippable(s.err) {
					d.dropped(s.index, s.err)
					continue
				}
				errc <- s.err
				return
			}

			var r result
			select {
			case r = <-s.out:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}

			if r.err != nil {
				if !d.SkipBadFrames {
					errc <- &FrameError{Index: s.index, Err: r.err}
					return
				}
				d.dropped(s.index, r.err)
				continue
			}

			if d.OnFrame != nil {
				d.OnFrame(s.index, r.frame)
			}

			select {
			case out <- r.frame:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}

		// The reader only stops without queueing a final slot when
		// cancelled
		errc <- ctx.Err()
	}()

	return out, errc
}

// Run restores every frame of src, passing each to sink in order. It stops at
// the first error from either the sequence or sink.
func (d *Driver) Run(ctx context.Context, src Source, sink func(Frame) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out, errc := d.Restore(ctx, src)
	for f := range out {
		if err := sink(f); err != nil {
			cancel()
			for range out {
			}
			return err
		}
	}
	return <-errc
}

// RestoreAll restores every frame of src and returns them in order.
func (d *Driver) RestoreAll(ctx context.Context, src Source) ([]Frame, error) {
	var frames []Frame
	if err := d.Run(ctx, src, func(f Frame) error {
		frames = append(frames, f)
		return nil
	}); err != nil {
		return frames, err
	}
	return frames, nil
}
