package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"github.com/bodgit/degrid/raster"
	"github.com/bodgit/degrid/sequence"
)

// Reader produces the frames of a raw rgb24 stream. It implements
// sequence.Source.
type Reader struct {
	r     io.Reader
	rect  image.Rectangle
	delay time.Duration

	cmd    *exec.Cmd
	rc     io.ReadCloser
	stderr bytes.Buffer
}

// NewReader returns a Reader that reads width by height rgb24 frames from r,
// each displayed for delay.
func NewReader(r io.Reader, width, height int, delay time.Duration) *Reader {
	return &Reader{
		r:     r,
		rect:  image.Rect(0, 0, width, height),
		delay: delay,
	}
}

// decodeArgs returns the ffmpeg arguments to decode the first video stream
// of path. The output is scaled to the probed size so every frame is
// exactly Width*Height rgb24 pixels.
func decodeArgs(path string, info Info) []string {
	return []string{
		"-v", "error",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-an",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
}

// Open starts decoding the video at path, whose stream was previously
// described by info.
func (t Tools) Open(ctx context.Context, path string, info Info) (*Reader, error) {
	cmd := exec.CommandContext(ctx, t.ffmpeg(), decodeArgs(path, info)...)

	rc, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	r := NewReader(rc, info.Width, info.Height, info.FrameDelay())
	r.cmd = cmd
	r.rc = rc
	cmd.Stderr = &r.stderr

	if err := cmd.Start(); err != nil {
		return nil, commandError("ffmpeg", err, &r.stderr)
	}

	return r, nil
}

// Next returns the next frame. It returns io.EOF if the stream ends cleanly
// between frames and io.ErrUnexpectedEOF if it ends part way through one.
func (r *Reader) Next() (sequence.Frame, error) {
	p := raster.NewRGB(r.rect)
	if _, err := io.ReadFull(r.r, p.Pix); err != nil {
		return sequence.Frame{}, err
	}
	return sequence.Frame{
		Image: p,
		Delay: r.delay,
	}, nil
}

// Close stops the decoder, if any, and waits for it to exit.
func (r *Reader) Close() error {
	if r.cmd == nil {
		return nil
	}

	// Unblock ffmpeg if the stream was not read to the end
	r.rc.Close()

	if err := r.cmd.Wait(); err != nil {
		return commandError("ffmpeg", err, &r.stderr)
	}
	return nil
}
