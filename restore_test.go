package degrid

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bodgit/degrid/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stubWidth  = 8
	stubHeight = 8
	stubFrames = 3
)

// stubFFmpeg decodes by writing blank rgb24 frames, encodes by copying stdin
// to the output file and runs the given shell when muxing two inputs
const stubFFmpeg = `#!/bin/sh
inputs=0
stdin=0
first=
prev=
last=
for a in "$@"; do
	if [ "$prev" = "-i" ]; then
		inputs=$((inputs + 1))
		if [ "$a" = "-" ]; then
			stdin=1
		elif [ -z "$first" ]; then
			first="$a"
		fi
	fi
	prev="$a"
	last="$a"
done
if [ "$stdin" = 1 ]; then
	cat > "$last"
	exit 0
fi
if [ "$inputs" = 2 ]; then
%s
fi
head -c %d /dev/zero
`

const (
	muxFails    = `echo "no audio encoder" >&2; exit 1`
	muxSucceeds = `cat "$first" > "$last"; printf muxed >> "$last"; exit 0`
)

const stubFFprobe = `#!/bin/sh
cat <<'JSON'
{
    "streams": [
        {"codec_type": "video", "width": %d, "height": %d, "avg_frame_rate": "10/1", "nb_frames": "%d", "duration": "0.3"}%s
    ],
    "format": {"duration": "0.3"}
}
JSON
`

const audioStream = `,
        {"codec_type": "audio", "avg_frame_rate": "0/0"}`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte(body), 0o755))
	return file
}

func newVideoRestorer(t *testing.T, mux string, audio bool) *Restorer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	bin := t.TempDir()

	var stream string
	if audio {
		stream = audioStream
	}

	return newTestRestorer(t, Options{
		FFmpeg:  writeScript(t, bin, "ffmpeg", fmt.Sprintf(stubFFmpeg, mux, stubWidth*stubHeight*raster.Channels*stubFrames)),
		FFprobe: writeScript(t, bin, "ffprobe", fmt.Sprintf(stubFFprobe, stubWidth, stubHeight, stubFrames, stream)),
	})
}

func TestRestorer_ScanVideo(t *testing.T) {
	// Restored frames are 8x4 with two grid columns
	silent := make([]byte, stubWidth*stubHeight/2*raster.Channels*stubFrames)

	tables := []struct {
		name  string
		mux   string
		audio bool
		want  []byte
	}{
		{"mux fails", muxFails, true, silent},
		{"mux succeeds", muxSucceeds, true, append(append([]byte{}, silent...), "muxed"...)},
		{"no audio", muxSucceeds, false, silent},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			r := newVideoRestorer(t, table.mux, table.audio)

			input, output := t.TempDir(), t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(input, "x.mp4"), []byte("scrambled"), 0o644))

			s, err := r.Scan(context.Background(), input, output)
			require.NoError(t, err)
			assert.Equal(t, Summary{Videos: 1}, s)

			b, err := os.ReadFile(filepath.Join(output, "x_restored.mp4"))
			require.NoError(t, err)
			assert.Equal(t, table.want, b)

			// The temporary encode is gone
			entries, err := os.ReadDir(output)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "x_restored.mp4", entries[0].Name())

			records, err := r.db.List()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, KindVideoSequence, records[0].Kind)
			assert.Equal(t, stubFrames, records[0].Frames)
			assert.Equal(t, stubWidth, records[0].Width)
			assert.Equal(t, stubHeight, records[0].Height)
			assert.Equal(t, stubWidth, records[0].RestoredWidth)
			assert.Equal(t, stubHeight/2, records[0].RestoredHeight)

			p, err := r.db.Preview(records[0].ID)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, image.Rect(0, 0, stubWidth, stubHeight/2), p.Bounds())
		})
	}
}

func TestRestorer_ScanVideoEncodeFails(t *testing.T) {
	r := newVideoRestorer(t, muxFails, true)
	// Neither decoder nor encoder can be started
	r.tools.FFmpeg = filepath.Join(t.TempDir(), "missing")

	input, output := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(input, "x.mp4"), []byte("scrambled"), 0o644))

	s, err := r.Scan(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1}, s)

	entries, err := os.ReadDir(output)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
