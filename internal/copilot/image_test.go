package copilot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetectImageType(t *testing.T) {
	cases := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"extension", "car.PNG", pngHeader, "image/png"},
		{"jpeg extension", "car.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"sniffed", "car", pngHeader, "image/png"},
		{"sniffed gif", "upload.bin.unknownext", []byte("GIF89a......"), "image/gif"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectImageType(tc.file, tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectImageType_Rejects(t *testing.T) {
	_, err := DetectImageType("notes.txt", []byte("hello"))
	assert.Error(t, err)

	_, err = DetectImageType("doc", []byte("%PDF-1.7"))
	assert.Error(t, err)

	_, err = DetectImageType("car.png", nil)
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "miata.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngHeader, img.Data)

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = LoadImage(dir)
	assert.Error(t, err)
}
