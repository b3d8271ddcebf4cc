// internal/imaging/codec.go
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	// Samples saved from other widgets are frequently webp or bmp.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered image format into an RGBA Image.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	return FromStd(src), nil
}

// DecodeBase64 decodes a bare base64 payload or a data URL
// (data:image/png;base64,....).
func DecodeBase64(s string) (*Image, error) {
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, fmt.Errorf("imaging: malformed data URL")
		}
		s = s[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("imaging: base64: %w", err)
	}
	return Decode(bytes.NewReader(raw))
}

// EncodePNG writes im as PNG.
func EncodePNG(w io.Writer, im *Image) error {
	return png.Encode(w, im.ToStd())
}

// EncodeBase64PNG returns the PNG encoding of im as standard base64.
func EncodeBase64PNG(im *Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, im); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Load decodes the image stored at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	im, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return im, nil
}

// SavePNG writes im to path as PNG.
func SavePNG(path string, im *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, im); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
