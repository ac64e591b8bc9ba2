package thumbnail

import (
	"bytes"
	"fmt"
	"mime"

	"github.com/disintegration/imaging"
)

// supportedTypes lists the image encodings the underlying decoder is
// guaranteed to handle. Anything else is rejected up front rather than
// failing opaquely inside the decode step.
var supportedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/bmp":  {},
	"image/tiff": {},
}

// UnsupportedTypeError is returned when the declared content type is not
// on the supported decoder list.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported image type for thumbnail generation: %s", e.ContentType)
}

// Supported reports whether a thumbnail can be generated for the given
// declared MIME type.
func Supported(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := supportedTypes[mediaType]
	return ok
}

// Generate produces a square size x size PNG-encoded thumbnail from raw
// image bytes. It is a pure transformation and performs no I/O.
func Generate(data []byte, contentType string, size int) ([]byte, error) {

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("unable to parse content type %q: %w", contentType, err)
	}

	if _, ok := supportedTypes[mediaType]; !ok {
		return nil, &UnsupportedTypeError{ContentType: mediaType}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s image: %w", mediaType, err)
	}

	thumb := imaging.Thumbnail(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode thumbnail: %w", err)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("no thumbnail was produced for %s", mediaType)
	}

	return buf.Bytes(), nil
}
