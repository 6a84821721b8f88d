/*
Package sequence restores an ordered stream of scrambled frames, such as the
frames of a video or an animated image.

The grid geometry is resolved once from the first frame and reused for every
following frame, so all frames of a sequence must share the same dimensions.
Frames are restored in parallel but always delivered in their original
order.
*/
package sequence

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"
)

var (
	// ErrInconsistentFrameSize is matched by errors returned when a frame
	// differs in size from the first frame of the sequence
	ErrInconsistentFrameSize = errors.New("sequence: inconsistent frame size")
)

// Frame is a single raster of a sequence along with how long it should be
// displayed for.
type Frame struct {
	Image image.Image
	Delay time.Duration
}

// Source is implemented by anything that can produce frames in order. Next
// returns io.EOF once there are no more frames.
type Source interface {
	Next() (Frame, error)
}

type sliceSource struct {
	frames []Frame
}

func (s *sliceSource) Next() (Frame, error) {
	if len(s.frames) == 0 {
		return Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

// Frames returns a Source that produces the given frames in order.
func Frames(frames ...Frame) Source {
	return &sliceSource{frames: frames}
}

// InconsistentFrameSizeError reports the first frame whose size differs from
// the first frame of the sequence.
type InconsistentFrameSizeError struct {
	Index int
	Want  image.Point
	Got   image.Point
}

func (e *InconsistentFrameSizeError) Error() string {
	return fmt.Sprintf("sequence: frame %d is %dx%d, expected %dx%d", e.Index, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

func (e *InconsistentFrameSizeError) Is(target error) bool {
	return target == ErrInconsistentFrameSize
}

// FrameError wraps an error encountered while reading or restoring a single
// frame.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("sequence: frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
