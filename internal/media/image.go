package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ImagePayload carries the raw bytes of an image file plus its MIME type,
// ready to be inlined into a multimodal request. Decoding and resizing are
// out of scope; the bytes are opaque to this program.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// ContentError marks a permanent, non-retryable input problem such as a
// missing or unsupported image file. Transport retry logic must never retry
// these.
type ContentError struct {
	Path string
	Err  error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Path, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// IsContentError reports whether err originates from unusable input rather
// than a transient failure.
func IsContentError(err error) bool {
	var contentErr *ContentError
	return errors.As(err, &contentErr)
}

var mimeByExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".gif":  "image/gif",
}

// SupportedImage reports whether the file name carries a recognized image
// extension. Directory listings use it to skip sidecar files.
func SupportedImage(name string) bool {
	_, ok := mimeByExtension[strings.ToLower(filepath.Ext(name))]
	return ok
}

// LoadImage reads an image file into a payload. All failures are content
// errors: a path that cannot be read now will not read better on retry.
func LoadImage(path string) (ImagePayload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := mimeByExtension[ext]
	if !ok {
		return ImagePayload{}, &ContentError{Path: path, Err: fmt.Errorf("unsupported image extension %q", ext)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ImagePayload{}, &ContentError{Path: path, Err: errors.New("file not found")}
		}
		return ImagePayload{}, &ContentError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return ImagePayload{}, &ContentError{Path: path, Err: errors.New("empty file")}
	}

	return ImagePayload{MIMEType: mimeType, Data: data}, nil
}
