package degrid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA1File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	sha, err := sha1File(file)
	require.NoError(t, err)
	assert.Equal(t, "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D", sha)

	_, err = sha1File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
