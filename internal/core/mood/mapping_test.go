package mood

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMapping_AllMoodsCovered(t *testing.T) {
	mapping := DefaultMapping()
	for _, m := range Moods {
		ids := mapping.GenresFor(m)
		assert.NotEmpty(t, ids, "mood %s has no genres", m)
		for _, id := range ids {
			assert.NotEqual(t, UnknownGenre, mapping.GenreName(id))
		}
	}
}

func TestLoadMapping_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moods.yaml")
	content := `moods:
  Happy: [35]
  bored: [99, 37]
genres:
  35: Comedies
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mapping, err := LoadMapping(path)
	require.NoError(t, err)

	assert.Equal(t, []int{35}, mapping.GenresFor(Happy))
	assert.Equal(t, []int{99, 37}, mapping.GenresFor(Mood("bored")))
	assert.Equal(t, []int{18, 10749, 10402}, mapping.GenresFor(Sad))
	assert.Equal(t, "Comedies", mapping.GenreName(35))
	assert.Equal(t, "Western", mapping.GenreName(37))
}

func TestLoadMapping_MissingFile(t *testing.T) {
	mapping, err := LoadMapping(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMapping(), mapping)
}

func TestLoadMapping_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moods: [unclosed"), 0o644))

	_, err := LoadMapping(path)
	assert.Error(t, err)
}

func TestMapping_GenreNameUnknown(t *testing.T) {
	assert.Equal(t, UnknownGenre, DefaultMapping().GenreName(1))
}
