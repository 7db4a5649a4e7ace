package partition

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"surveyrag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chart.jpg"), payload, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	images, err := LoadImages(dir, ".jpg")
	require.NoError(t, err)
	require.Len(t, images, 1)

	assert.Equal(t, types.KindImage, images[0].Kind)
	assert.Equal(t, "chart.jpg", images[0].Source)

	decoded, err := base64.StdEncoding.DecodeString(images[0].Content)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestLoadImagesExtensionWithoutDot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte{1}, 0644))

	images, err := LoadImages(dir, "jpg")
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestLoadImagesEmptyDir(t *testing.T) {
	images, err := LoadImages(t.TempDir(), ".jpg")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestLoadImagesMissingDir(t *testing.T) {
	_, err := LoadImages(filepath.Join(t.TempDir(), "nope"), ".jpg")
	assert.Error(t, err)
}
