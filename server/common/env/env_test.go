package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbacksWhenUnset(t *testing.T) {
	assert.Equal(t, "dflt", String("GALLERY_TEST_UNSET_STRING", "dflt"))
	assert.Equal(t, 7, Int("GALLERY_TEST_UNSET_INT", 7))
	assert.True(t, Bool("GALLERY_TEST_UNSET_BOOL", true))
	assert.Equal(t, 3*time.Second, Duration("GALLERY_TEST_UNSET_DURATION", 3*time.Second))
	assert.Equal(t, []string{"a"}, CSV("GALLERY_TEST_UNSET_CSV", []string{"a"}))
}

func TestEnvironmentValues(t *testing.T) {
	t.Setenv("GALLERY_TEST_INT", "12")
	t.Setenv("GALLERY_TEST_BAD_INT", "-3")
	t.Setenv("GALLERY_TEST_BOOL", "false")
	t.Setenv("GALLERY_TEST_DURATION", "1500ms")
	t.Setenv("GALLERY_TEST_CSV", " a, b ,a,, c")

	assert.Equal(t, 12, Int("GALLERY_TEST_INT", 1))
	assert.Equal(t, 1, Int("GALLERY_TEST_BAD_INT", 1))
	assert.False(t, Bool("GALLERY_TEST_BOOL", true))
	assert.Equal(t, 1500*time.Millisecond, Duration("GALLERY_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, CSV("GALLERY_TEST_CSV", nil))
}

func TestLoadConfigFileEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("GALLERY_TEST_FILE_ONLY: from-file\nGALLERY_TEST_BOTH: from-file\n"), 0o644))
	t.Setenv("GALLERY_TEST_BOTH", "from-env")

	require.NoError(t, Load(path))
	t.Cleanup(func() {
		mu.Lock()
		v = newViper()
		mu.Unlock()
	})

	assert.Equal(t, "from-file", String("GALLERY_TEST_FILE_ONLY", ""))
	assert.Equal(t, "from-env", String("GALLERY_TEST_BOTH", ""))
}
