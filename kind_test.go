package degrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tables := []struct {
		file string
		kind Kind
	}{
		{"a.png", KindStillImage},
		{"a.JPG", KindStillImage},
		{"a.jpeg", KindStillImage},
		{"a.bmp", KindStillImage},
		{"a.tif", KindStillImage},
		{"a.tiff", KindStillImage},
		{"a.webp", KindStillImage},
		{"a.gif", KindAnimatedSequence},
		{"a.mp4", KindVideoSequence},
		{"a.MOV", KindVideoSequence},
		{"a.avi", KindVideoSequence},
		{"a.webm", KindVideoSequence},
		{"a.mkv", KindVideoSequence},
		{"a.txt", KindUnknown},
		{"png", KindUnknown},
	}

	for _, table := range tables {
		t.Run(table.file, func(t *testing.T) {
			assert.Equal(t, table.kind, KindOf(table.file))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "image", KindStillImage.String())
	assert.Equal(t, "animation", KindAnimatedSequence.String())
	assert.Equal(t, "video", KindVideoSequence.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestOutputName(t *testing.T) {
	tables := []struct {
		file, out string
	}{
		{"/in/cat.png", "cat_restored.png"},
		{"dog.jpeg", "dog_restored.jpeg"},
		{"clip.final.mp4", "clip.final_restored.mp4"},
		{"photo.WEBP", "photo_restored.WEBP.png"},
		{"anim.gif", "anim_restored.gif"},
	}

	for _, table := range tables {
		t.Run(table.file, func(t *testing.T) {
			assert.Equal(t, table.out, OutputName(table.file))
		})
	}
}

func TestOutputName_Unique(t *testing.T) {
	seen := make(map[string]string)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".gif", ".mp4", ".mov", ".avi", ".webm", ".mkv"} {
		in := "a" + ext
		out := OutputName(in)
		if other, ok := seen[out]; ok {
			t.Errorf("%s and %s are both restored to %s", other, in, out)
		}
		seen[out] = in

		assert.Equal(t, KindOf(in), KindOf(out), in)
		assert.True(t, isRestored(out))
	}
}

func TestIsRestored(t *testing.T) {
	assert.True(t, isRestored("/in/cat_restored.png"))
	assert.True(t, isRestored("Restored.gif"))
	assert.False(t, isRestored("/restored/cat.png"))
}
