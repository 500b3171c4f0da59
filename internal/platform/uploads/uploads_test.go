package uploads

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFile(t *testing.T, field, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	file, header, err := req.FormFile(field)
	require.NoError(t, err)
	return file, header
}

func TestDiskSaveAndOpen(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 1024)
	require.NoError(t, err)

	file, header := multipartFile(t, "medical_certificate", "clinic slip.txt", []byte("certified"))
	stored, err := disk.Save(file, header)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stored.Name, "-clinic_slip.txt"))
	assert.Equal(t, int64(9), stored.Size)

	f, err := disk.Open(stored.Name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "certified", string(data))

	require.NoError(t, disk.Remove(stored.Name))
	_, err = disk.Open(stored.Name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskRejectsOversizedAndEmpty(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 4)
	require.NoError(t, err)

	file, header := multipartFile(t, "f", "big.txt", []byte("too large"))
	_, err = disk.Save(file, header)
	assert.ErrorIs(t, err, ErrTooLarge)

	file, header = multipartFile(t, "f", "empty.txt", nil)
	_, err = disk.Save(file, header)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDiskOpenRejectsTraversal(t *testing.T) {
	disk, err := NewDisk(t.TempDir(), 4)
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", ".env", "a/b"} {
		_, err := disk.Open(name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "scan.pdf", SanitizeFileName(`C:\Users\me\scan.pdf`))
	assert.Equal(t, "document.bin", SanitizeFileName("  "))
}
