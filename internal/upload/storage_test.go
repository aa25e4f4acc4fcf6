package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewStorage(dir, 1<<20)

	publicPath, err := s.Save(fileHeader(t, "lamp.PNG", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(publicPath, "/uploads/product-"))
	assert.True(t, strings.HasSuffix(publicPath, ".png"))

	onDisk := filepath.Join(dir, strings.TrimPrefix(publicPath, "/uploads/"))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Remove(publicPath))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, s.Remove(publicPath))
}

func TestSaveRejects(t *testing.T) {
	s := NewStorage(t.TempDir(), 4)

	_, err := s.Save(fileHeader(t, "script.sh", []byte("x")))
	assert.Error(t, err)

	_, err = s.Save(fileHeader(t, "big.jpg", []byte("too large")))
	assert.Error(t, err)
}

func TestRemoveRefusesOutsidePaths(t *testing.T) {
	s := NewStorage(t.TempDir(), 0)

	assert.Error(t, s.Remove("/etc/passwd"))
	assert.Error(t, s.Remove("/uploads/../../etc/passwd"))
	assert.NoError(t, s.Remove(""))
}
