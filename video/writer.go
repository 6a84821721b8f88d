package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bodgit/degrid/raster"
)

var errWrongSize = errors.New("video: frame is wrong size")

// codecArgs returns the ffmpeg codec arguments suitable for the container
// implied by path
func codecArgs(path string) (video, audio []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return []string{"-c:v", "libvpx-vp9", "-pix_fmt", "yuv420p"}, []string{"-c:a", "libopus"}
	default:
		return []string{"-c:v", "libx264", "-pix_fmt", "yuv420p"}, []string{"-c:a", "aac"}
	}
}

// Writer accepts frames and writes them out as a raw rgb24 stream.
type Writer struct {
	w    *bufio.Writer
	rect image.Rectangle

	cmd    *exec.Cmd
	wc     io.WriteCloser
	stderr bytes.Buffer
}

// NewWriter returns a Writer that writes width by height rgb24 frames to w.
// Output is buffered until Close.
func NewWriter(w io.Writer, width, height int) *Writer {
	return &Writer{
		w:    bufio.NewWriter(w),
		rect: image.Rect(0, 0, width, height),
	}
}

// Create starts encoding a width by height video at path, with the given
// frame rate, replacing any existing file. There is no audio.
func (t Tools) Create(ctx context.Context, path string, width, height int, rate string) (*Writer, error) {
	if _, err := parseRate(rate); err != nil {
		rate = defaultRate
	}

	v, _ := codecArgs(path)

	args := []string{
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", rate,
		"-i", "-",
		"-an",
		// Most codecs need even dimensions with yuv420p
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
	}
	args = append(args, v...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, t.ffmpeg(), args...)

	wc, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	w := NewWriter(wc, width, height)
	w.cmd = cmd
	w.wc = wc
	cmd.Stderr = &w.stderr

	if err := cmd.Start(); err != nil {
		return nil, commandError("ffmpeg", err, &w.stderr)
	}

	return w, nil
}

// WriteFrame writes m, which must match the size the Writer was created
// with.
func (w *Writer) WriteFrame(m image.Image) error {
	p := raster.FromImage(m)
	if p.Bounds().Size() != w.rect.Size() {
		return errWrongSize
	}

	// Contiguous pixels go out in one write
	if p.Stride == p.Rect.Dx()*raster.Channels {
		_, err := w.w.Write(p.Pix[:p.Stride*p.Rect.Dy()])
		return err
	}

	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		if _, err := w.w.Write(p.Row(y)); err != nil {
			return err
		}
	}
	return nil
}

// Close finishes the stream and waits for the encoder, if any, to exit.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		if w.cmd != nil {
			w.wc.Close()
			w.cmd.Wait()
		}
		return err
	}

	if w.cmd == nil {
		return nil
	}

	if err := w.wc.Close(); err != nil {
		return err
	}

	if err := w.cmd.Wait(); err != nil {
		return commandError("ffmpeg", err, &w.stderr)
	}
	return nil
}

// Mux writes out, combining the video stream of videoPath with the first
// audio stream of audioSource. The video is copied, not re-encoded.
func (t Tools) Mux(ctx context.Context, videoPath, audioSource, out string) error {
	_, a := codecArgs(out)

	args := []string{
		"-v", "error",
		"-y",
		"-i", videoPath,
		"-i", audioSource,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}
	args = append(args, a...)
	args = append(args, "-shortest", out)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ffmpeg(), args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return commandError("ffmpeg", err, &stderr)
	}
	return nil
}
