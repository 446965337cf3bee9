package copilot

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"evai/internal/gemini"
)

// MaxImageBytes is the inline request limit for image attachments.
const MaxImageBytes = 20 << 20

// LoadImage reads an image file and detects its MIME type.
func LoadImage(path string) (gemini.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return gemini.Image{}, fmt.Errorf("image %s: %w", path, err)
	}
	if info.IsDir() {
		return gemini.Image{}, fmt.Errorf("image %s: is a directory", path)
	}
	if info.Size() > MaxImageBytes {
		return gemini.Image{}, fmt.Errorf("image %s: %d bytes exceeds the %d byte limit", path, info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gemini.Image{}, fmt.Errorf("image %s: %w", path, err)
	}
	mimeType, err := DetectImageType(path, data)
	if err != nil {
		return gemini.Image{}, err
	}
	return gemini.Image{Data: data, MIMEType: mimeType}, nil
}

// DetectImageType picks the MIME type from the file extension, falling back
// to content sniffing. Anything that is not image/* is rejected.
func DetectImageType(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image %s: file is empty", name)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("image %s: unsupported type %q", name, mimeType)
	}
	return mimeType, nil
}
