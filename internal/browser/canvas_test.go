package browser_test

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

func dataURL(t *testing.T, im *imaging.Image) string {
	t.Helper()
	b64, err := imaging.EncodeBase64PNG(im)
	require.NoError(t, err)
	return "data:image/png;base64," + b64
}

func TestDecodeCanvases(t *testing.T) {
	overlay := imaging.NewImage(20, 10, 4)
	overlay.FillRect(image.Rect(0, 0, 20, 10), 10, 10, 10, 255)
	piece := imaging.NewImage(20, 10, 4)
	original := imaging.NewImage(20, 10, 4)
	original.FillRect(image.Rect(0, 0, 20, 10), 200, 200, 200, 255)

	urls := []string{dataURL(t, overlay), dataURL(t, piece), dataURL(t, original)}

	imgs, err := browser.DecodeCanvases(urls, browser.DefaultCanvasLayout())
	require.NoError(t, err)
	assert.Equal(t, byte(10), imgs.Overlay.At(0, 0, 0))
	assert.Equal(t, byte(200), imgs.Original.At(0, 0, 0))
	assert.Equal(t, byte(0), imgs.Piece.At(0, 0, 3))

	t.Run("index out of range", func(t *testing.T) {
		_, err := browser.DecodeCanvases(urls[:2], browser.DefaultCanvasLayout())
		assert.ErrorContains(t, err, "original canvas index 2 out of range")
	})

	t.Run("layer sizes differ", func(t *testing.T) {
		bad := []string{urls[0], dataURL(t, imaging.NewImage(5, 5, 4)), urls[2]}
		_, err := browser.DecodeCanvases(bad, browser.DefaultCanvasLayout())
		var pe *imaging.PreconditionError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestTimeoutError(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := error(&browser.TimeoutError{Selector: ".geetest_canvas_img canvas", Timeout: 30 * time.Second, Err: cause})

	var te *browser.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `browser: ".geetest_canvas_img canvas" not ready after 30s: context deadline exceeded`, err.Error())
}
