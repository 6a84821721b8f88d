package degrid

import (
	"path/filepath"
	"strings"
)

// Kind identifies how a file is decoded and restored.
type Kind int

// The kinds of file that can be restored
const (
	KindUnknown Kind = iota
	KindStillImage
	KindAnimatedSequence
	KindVideoSequence
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindStillImage:       "image",
	KindAnimatedSequence: "animation",
	KindVideoSequence:    "video",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// KindOf returns the Kind of filename based on its extension.
func KindOf(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return KindStillImage
	case ".gif":
		return KindAnimatedSequence
	case ".mp4", ".mov", ".avi", ".webm", ".mkv":
		return KindVideoSequence
	default:
		return KindUnknown
	}
}

const restoredSuffix = "_restored"

// OutputName returns the filename a restored copy of filename is written
// as. WebP images are written as PNG, keeping the original extension in the
// name so they can't collide with a PNG of the same name.
func OutputName(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if strings.ToLower(ext) == ".webp" {
		return name + restoredSuffix + ext + ".png"
	}

	return name + restoredSuffix + ext
}

// isRestored reports whether filename looks like the output of a previous
// restoration
func isRestored(filename string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(filename)), "restored")
}
