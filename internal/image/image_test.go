package image_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunjay/wolf-asm/internal/image"
)

func TestBytesConcatenatesStaticThenCode(t *testing.T) {
	img := image.Image{Static: []byte{1, 2, 3}, Code: []byte{4, 5}}
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, img.Bytes())
}

func TestCodeStartIsStaticLength(t *testing.T) {
	img := image.Image{Static: []byte{1, 2, 3}, Code: []byte{4, 5}}
	assert.Equal(t, uint64(3), img.CodeStart())
}

func TestWriteFileLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.img")
	img := image.Image{Static: []byte{9, 9}, Code: []byte{1, 2, 3, 4}}

	require.NoError(t, image.WriteFile(path, img))
	got, err := image.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Static, got.Static)
	assert.Equal(t, img.Code, got.Code)
}

func TestWriteFileWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.img")
	img := image.Image{Static: []byte{1, 2}, Code: []byte{3, 4, 5, 6}}
	require.NoError(t, image.WriteFile(path, img))

	assert.FileExists(t, path+".meta.json")
}

func TestLoadFileMissingSidecarErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lonely.img")
	require.NoError(t, image.WriteFile(path, image.Image{Code: []byte{1}}))
	// remove the sidecar to simulate a stray raw image file with no metadata
	require.NoError(t, os.Remove(path+".meta.json"))

	_, err := image.LoadFile(path)
	assert.Error(t, err)
}
