/*
Package video decodes and encodes video files as frame sequences by running
ffmpeg and ffprobe.

Frames are exchanged with ffmpeg over pipes as raw rgb24, which is the same
layout as raster.RGB, so no pixel conversion is needed on either side.
*/
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultRate = "25"

var (
	errNoVideo = errors.New("video: no video stream")
	errBadRate = errors.New("video: invalid frame rate")
)

// Tools locates the ffmpeg and ffprobe binaries. Empty fields are looked up on
// the PATH.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

func (t Tools) ffmpeg() string {
	if t.FFmpeg == "" {
		return "ffmpeg"
	}
	return t.FFmpeg
}

func (t Tools) ffprobe() string {
	if t.FFprobe == "" {
		return "ffprobe"
	}
	return t.FFprobe
}

// Info describes the first video stream of a file.
type Info struct {
	Width, Height int
	// FrameRate is the rate as reported by ffprobe, such as "30000/1001"
	FrameRate string
	// Frames is the number of frames, or 0 if the container doesn't say
	Frames   int
	Duration time.Duration
	HasAudio bool
}

// FPS returns the frame rate as frames per second.
func (i Info) FPS() float64 {
	f, err := parseRate(i.FrameRate)
	if err != nil {
		return 0
	}
	return f
}

// FrameDelay returns how long each frame is displayed for.
func (i Info) FrameDelay() time.Duration {
	fps := i.FPS()
	if fps == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func parseRate(s string) (float64, error) {
	num, den := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, den = s[:i], s[i+1:]
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errBadRate
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 || n <= 0 {
		return 0, errBadRate
	}

	return n / d, nil
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}

func parseProbe(b []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return Info{}, err
	}

	var info Info
	var found bool
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if found {
				continue
			}
			found = true

			info.Width, info.Height = s.Width, s.Height

			// Prefer the average rate, the real base rate can be
			// much higher for variable frame rate sources
			info.FrameRate = s.AvgFrameRate
			if _, err := parseRate(info.FrameRate); err != nil {
				info.FrameRate = s.RFrameRate
			}
			if _, err := parseRate(info.FrameRate); err != nil {
				info.FrameRate = defaultRate
			}

			info.Frames, _ = strconv.Atoi(s.NbFrames)
			info.Duration = parseSeconds(s.Duration)
		case "audio":
			info.HasAudio = true
		}
	}

	if !found {
		return Info{}, errNoVideo
	}

	if info.Duration == 0 {
		info.Duration = parseSeconds(out.Format.Duration)
	}

	return info, nil
}

// Probe returns information about the first video stream in the file at
// path.
func (t Tools) Probe(ctx context.Context, path string) (Info, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, t.ffprobe(), "-v", "error", "-print_format", "json", "-show_streams", "-show_format", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Info{}, commandError("ffprobe", err, &stderr)
	}

	return parseProbe(stdout.Bytes())
}

func commandError(name string, err error, stderr *bytes.Buffer) error {
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("video: %s: %w: %s", name, err, msg)
	}
	return fmt.Errorf("video: %s: %w", name, err)
}
