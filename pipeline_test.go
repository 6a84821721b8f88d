package degrid

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/degrid/raster"
	"github.com/bodgit/degrid/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func makeTestImage(w, h int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 29),
				G: uint8(y * 31),
				B: uint8((x + y) * 13),
				A: 0xff,
			})
		}
	}
	return m
}

func writeTestFile(t *testing.T, file string, fn func(io.Writer) error) {
	t.Helper()
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, fn(f))
}

func writeTestGIF(t *testing.T, file string) {
	t.Helper()
	p := color.Palette{color.Black, color.White}
	g := &gif.GIF{
		Delay: []int{10, 20},
	}
	for i := 0; i < 2; i++ {
		m := image.NewPaletted(image.Rect(0, 0, 8, 8), p)
		for j := range m.Pix {
			m.Pix[j] = uint8((j + i) % 2)
		}
		g.Image = append(g.Image, m)
	}
	writeTestFile(t, file, func(w io.Writer) error {
		return gif.EncodeAll(w, g)
	})
}

func newTestRestorer(t *testing.T, opts Options) *Restorer {
	t.Helper()
	if opts.Columns == 0 {
		opts.Columns = 2
	}
	return New(newTestDB(t), log.New(io.Discard, "", 0), opts)
}

func setupInput(t *testing.T) (string, *image.RGBA) {
	t.Helper()
	dir := t.TempDir()
	m := makeTestImage(8, 8)

	writeTestFile(t, filepath.Join(dir, "a.png"), func(w io.Writer) error {
		return png.Encode(w, m)
	})
	writeTestFile(t, filepath.Join(dir, "b.jpg"), func(w io.Writer) error {
		return jpeg.Encode(w, m, nil)
	})
	writeTestGIF(t, filepath.Join(dir, "c.gif"))

	// Fails to decode
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not a png"), 0o644))
	// Too small for the grid
	writeTestFile(t, filepath.Join(dir, "tiny.png"), func(w io.Writer) error {
		return png.Encode(w, makeTestImage(1, 1))
	})

	// Ignored
	writeTestFile(t, filepath.Join(dir, ".hidden.png"), func(w io.Writer) error {
		return png.Encode(w, m)
	})
	writeTestFile(t, filepath.Join(dir, "old_restored.png"), func(w io.Writer) error {
		return png.Encode(w, m)
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	return dir, m
}

func TestRestorer_Scan(t *testing.T) {
	input, m := setupInput(t)
	output := filepath.Join(t.TempDir(), "out")

	r := newTestRestorer(t, Options{Workers: 2})

	s, err := r.Scan(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Images: 2, Animations: 1, Failed: 2}, s)
	assert.Equal(t, 3, s.Total())

	f, err := os.Open(filepath.Join(output, "a_restored.png"))
	require.NoError(t, err)
	defer f.Close()

	got, err := png.Decode(f)
	require.NoError(t, err)

	want, err := tile.Restore(m, 2)
	require.NoError(t, err)
	assert.Equal(t, want.Bounds(), got.Bounds())
	assert.Equal(t, want.Pix, raster.FromImage(got).Pix)

	f, err = os.Open(filepath.Join(output, "c_restored.gif"))
	require.NoError(t, err)
	defer f.Close()

	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 2)
	assert.Equal(t, []int{10, 20}, g.Delay)
	assert.Equal(t, image.Rect(0, 0, 8, 4), g.Image[0].Bounds())

	_, err = os.Stat(filepath.Join(output, "bad_restored.png"))
	assert.True(t, os.IsNotExist(err))

	records, err := r.db.List()
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, 8, rec.Width)
		assert.Equal(t, 8, rec.Height)
		assert.Equal(t, 8, rec.RestoredWidth)
		assert.Equal(t, 4, rec.RestoredHeight)
		assert.Equal(t, 2, rec.Columns)

		p, err := r.db.Preview(rec.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, image.Rect(0, 0, 8, 4), p.Bounds())
	}
}

func TestRestorer_ScanSkip(t *testing.T) {
	input, _ := setupInput(t)
	output := t.TempDir()

	r := newTestRestorer(t, Options{Workers: 3})

	_, err := r.Scan(context.Background(), input, output)
	require.NoError(t, err)

	// Outputs already exist
	s, err := r.Scan(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 3, Failed: 2}, s)

	// Outputs removed but the inputs are in the ledger
	require.NoError(t, os.RemoveAll(output))
	s, err = r.Scan(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 3, Failed: 2}, s)

	// Forced
	r.opts.Force = true
	s, err = r.Scan(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Images: 2, Animations: 1, Failed: 2}, s)

	records, err := r.db.List()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRestorer_ScanFile(t *testing.T) {
	input, _ := setupInput(t)
	output := t.TempDir()

	r := newTestRestorer(t, Options{})

	s, err := r.Scan(context.Background(), filepath.Join(input, "c.gif"), output)
	require.NoError(t, err)
	assert.Equal(t, Summary{Animations: 1}, s)
}

func TestRestorer_ScanMissing(t *testing.T) {
	r := newTestRestorer(t, Options{})

	_, err := r.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.True(t, os.IsNotExist(err))
}

func TestRestorer_ScanCancelled(t *testing.T) {
	input, _ := setupInput(t)

	r := newTestRestorer(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Scan(ctx, input, t.TempDir())
	assert.Equal(t, context.Canceled, err)
}

func TestRestorer_RestoreFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.bmp")
	out := filepath.Join(dir, OutputName(in))

	writeTestFile(t, in, func(w io.Writer) error {
		return bmp.Encode(w, makeTestImage(12, 8))
	})

	r := newTestRestorer(t, Options{})

	rec, err := r.RestoreFile(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, KindStillImage, rec.Kind)
	assert.Equal(t, 12, rec.Width)
	assert.Equal(t, 8, rec.Height)
	assert.Equal(t, 12, rec.RestoredWidth)
	assert.Equal(t, 4, rec.RestoredHeight)
	assert.Equal(t, 1, rec.Frames)
	assert.Len(t, rec.SHA1, 40)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	m, err := bmp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 4), m.Bounds())

	found, err := r.db.Find(rec.SHA1, 2)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rec.ID, found.ID)
}

func TestRestorer_RestoreFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o644))

	r := newTestRestorer(t, Options{})

	_, err := r.RestoreFile(context.Background(), in, filepath.Join(dir, "out.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}
