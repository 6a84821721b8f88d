package degrid

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bodgit/degrid/anim"
	"github.com/bodgit/degrid/raster"
	"github.com/bodgit/degrid/sequence"
	"github.com/bodgit/degrid/tile"
	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	jpegQuality    = 95
	progressFrames = 100
)

func encodeImage(w io.Writer, name string, m image.Image) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, m, &jpeg.Options{Quality: jpegQuality})
	case ".bmp":
		return bmp.Encode(w, m)
	case ".tif", ".tiff":
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(w, m)
	}
}

// writeFile creates file and passes it to fn, the file is removed again if
// anything fails
func writeFile(file string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(file)
		}
	}()

	w := bufio.NewWriter(f)
	if err = fn(w); err != nil {
		return err
	}
	return w.Flush()
}

func (r *Restorer) sequenceDriver(name string, frames int) *sequence.Driver {
	d := r.driver()
	d.OnError = func(index int, err error) {
		r.logger.Printf("%s: dropped frame %d: %v\n", name, index, err)
	}
	d.OnFrame = func(index int, _ sequence.Frame) {
		if n := index + 1; n%progressFrames == 0 {
			if frames > 0 {
				r.logger.Printf("%s: %d/%d frames\n", name, n, frames)
			} else {
				r.logger.Printf("%s: %d frames\n", name, n)
			}
		}
	}
	return d
}

func (r *Restorer) restoreImage(in, out string, rec *Record) (*raster.RGB, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, format, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	g, err := tile.Resolve(m.Bounds().Dx(), m.Bounds().Dy(), r.opts.Columns)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("%s: %s image, %s\n", in, format, g)

	p, err := g.Restore(m)
	if err != nil {
		return nil, err
	}

	if err := writeFile(out, func(w io.Writer) error {
		return encodeImage(w, out, p)
	}); err != nil {
		return nil, err
	}

	rec.setGeometry(g, 1)

	return p, nil
}

func (r *Restorer) restoreAnimation(ctx context.Context, in, out string, rec *Record) (*raster.RGB, error) {
	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	d, err := anim.Decode(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	r.logger.Printf("%s: %dx%d animation, %d frames\n", in, d.Bounds().Dx(), d.Bounds().Dy(), d.Len())

	frames, err := r.sequenceDriver(in, d.Len()).RestoreAll(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, errors.New("no frames restored")
	}

	if err := writeFile(out, func(w io.Writer) error {
		return anim.Encode(w, frames, d.LoopCount())
	}); err != nil {
		return nil, err
	}

	size := frames[0].Image.Bounds().Size()
	rec.Width, rec.Height = d.Bounds().Dx(), d.Bounds().Dy()
	rec.RestoredWidth, rec.RestoredHeight = size.X, size.Y
	rec.Frames = len(frames)

	return raster.FromImage(frames[0].Image), nil
}

func (r *Restorer) restoreVideo(ctx context.Context, in, out string, rec *Record) (*raster.RGB, error) {
	if err := r.videos.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.videos.Release(1)

	info, err := r.tools.Probe(ctx, in)
	if err != nil {
		return nil, err
	}

	g, err := tile.Resolve(info.Width, info.Height, r.opts.Columns)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("%s: video, %s, %.2f fps, %d frames, %s\n", in, g, info.FPS(), info.Frames, info.Duration)

	// Encode to a hidden file alongside the output so it can be renamed
	// into place
	tmp := filepath.Join(filepath.Dir(out), "."+uuid.New().String()+filepath.Ext(out))
	defer os.Remove(tmp)

	src, err := r.tools.Open(ctx, in, info)
	if err != nil {
		return nil, err
	}

	w, err := r.tools.Create(ctx, tmp, g.Bounds().Dx(), g.Bounds().Dy(), info.FrameRate)
	if err != nil {
		src.Close()
		return nil, err
	}

	var preview *raster.RGB
	var frames int

	d := r.sequenceDriver(in, info.Frames)
	progress := d.OnFrame
	d.OnFrame = func(index int, f sequence.Frame) {
		if index == 0 {
			preview = raster.FromImage(f.Image)
		}
		frames++
		progress(index, f)
	}

	err = d.Run(ctx, src, func(f sequence.Frame) error { return w.WriteFrame(f.Image) })
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if frames == 0 {
		return nil, errors.New("no frames restored")
	}

	if info.HasAudio {
		err := r.tools.Mux(ctx, tmp, in, out)
		switch {
		case err == nil:
			rec.setGeometry(g, frames)
			return preview, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		r.logger.Printf("%s: unable to copy audio, writing video only: %v\n", in, err)
	}

	if err := os.Rename(tmp, out); err != nil {
		return nil, err
	}
	rec.setGeometry(g, frames)

	return preview, nil
}

// restore restores in, whose SHA-1 is sha, to out without touching the DB
func (r *Restorer) restore(ctx context.Context, in, out, sha string) (*Record, *raster.RGB, error) {
	kind := KindOf(in)
	if kind == KindUnknown {
		return nil, nil, fmt.Errorf("%s: %w", in, ErrUnsupportedKind)
	}

	rec := &Record{
		SHA1:    sha,
		Source:  in,
		Output:  out,
		Kind:    kind,
		Columns: r.opts.Columns,
	}

	start := time.Now()

	var preview *raster.RGB
	var err error
	switch kind {
	case KindStillImage:
		preview, err = r.restoreImage(in, out, rec)
	case KindAnimatedSequence:
		preview, err = r.restoreAnimation(ctx, in, out, rec)
	case KindVideoSequence:
		preview, err = r.restoreVideo(ctx, in, out, rec)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", in, err)
	}

	r.logger.Printf("%s: restored to %s, %dx%d, in %s\n", in, out, rec.RestoredWidth, rec.RestoredHeight, time.Since(start).Round(time.Millisecond))

	return rec, preview, nil
}

// RestoreFile restores the single file in, writing the result to out, and
// records it in the DB.
func (r *Restorer) RestoreFile(ctx context.Context, in, out string) (*Record, error) {
	sha, err := sha1File(in)
	if err != nil {
		return nil, err
	}

	rec, preview, err := r.restore(ctx, in, out, sha)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.Add(rec, preview); err != nil {
		return nil, err
	}

	return rec, nil
}
