package imaging

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppedEdge returns a 10x6 image that is black left of column 5 and white
// from column 5 on. When soft is set, column 5 is mid gray the way a
// rasterizer smooths an edge.
func steppedEdge(soft bool) *Image {
	im := NewImage(10, 6, 4)
	im.FillRect(image.Rect(0, 0, 5, 6), 0, 0, 0, 255)
	im.FillRect(image.Rect(5, 0, 10, 6), 255, 255, 255, 255)
	if soft {
		im.FillRect(image.Rect(5, 0, 6, 6), 128, 128, 128, 255)
	}
	return im
}

func TestDiffEngine_IdenticalImages(t *testing.T) {
	bg := gradientBackground(64, 32)
	out, count, err := NewDiffEngine(DefaultDiffOptions()).Diff(bg, bg.Clone())
	require.NoError(t, err)
	assert.Zero(t, count)

	gray, err := NativeOps{}.Grayscale(out)
	require.NoError(t, err)
	assert.Zero(t, gray.CountNonZero(), "unchanged pixels must be dark")
}

func TestDiffEngine_MarksChangedPixels(t *testing.T) {
	bg := gradientBackground(120, 80)
	hole := image.Rect(30, 20, 50, 40)
	overlay := darken(bg, hole, 0.3)

	out, count, err := NewDiffEngine(DefaultDiffOptions()).Diff(bg, overlay)
	require.NoError(t, err)
	assert.Equal(t, hole.Dx()*hole.Dy(), count)

	assert.Equal(t, []byte{255, 255, 255, 255}, out.Pix[(25*120+35)*4:(25*120+35)*4+4])
	assert.Equal(t, []byte{0, 0, 0, 255}, out.Pix[(5*120+5)*4:(5*120+5)*4+4])
}

func TestDiffEngine_Threshold(t *testing.T) {
	bg := gradientBackground(40, 40)
	faint := darken(bg, image.Rect(10, 10, 20, 20), 0.97)

	_, count, err := NewDiffEngine(DefaultDiffOptions()).Diff(bg, faint)
	require.NoError(t, err)
	assert.Zero(t, count, "small shifts stay under the default threshold")

	strict := DefaultDiffOptions()
	strict.Threshold = 0
	_, count, err = NewDiffEngine(strict).Diff(bg, faint)
	require.NoError(t, err)
	assert.Equal(t, 100, count)
}

func TestDiffEngine_AntiAliasing(t *testing.T) {
	ref, cand := steppedEdge(false), steppedEdge(true)

	t.Run("included by default", func(t *testing.T) {
		_, count, err := NewDiffEngine(DefaultDiffOptions()).Diff(ref, cand)
		require.NoError(t, err)
		assert.Equal(t, 6, count)
	})

	t.Run("excluded and painted with the aa color", func(t *testing.T) {
		opts := DefaultDiffOptions()
		opts.IncludeAntiAliasing = false
		opts.AAColor = [3]byte{0, 0, 200}
		out, count, err := NewDiffEngine(opts).Diff(ref, cand)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, byte(200), out.At(5, 3, 2))
	})
}

func TestDiffEngine_SizeMismatch(t *testing.T) {
	_, _, err := NewDiffEngine(DefaultDiffOptions()).Diff(gradientBackground(10, 10), gradientBackground(10, 11))
	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, image.Pt(10, 10), pe.Want)
	assert.Equal(t, image.Pt(10, 11), pe.Got)
}

func TestNewDiffEngine_ClampsThreshold(t *testing.T) {
	opts := DefaultDiffOptions()
	opts.Threshold = 3
	assert.Equal(t, 1.0, NewDiffEngine(opts).Options().Threshold)
	opts.Threshold = -1
	assert.Equal(t, 0.0, NewDiffEngine(opts).Options().Threshold)
}

func TestDiffEngine_LightBackgroundStaysBlack(t *testing.T) {
	ref := NewImage(20, 20, 4)
	ref.FillRect(image.Rect(0, 0, 20, 20), 255, 255, 255, 255)
	cand := ref.Clone()
	cand.FillRect(image.Rect(5, 5, 10, 10), 40, 40, 40, 255)

	opts := DefaultDiffOptions()
	opts.DiffColor = [3]byte{255, 0, 0}
	out, count, err := NewDiffEngine(opts).Diff(ref, cand)
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	assert.Equal(t, []byte{0, 0, 0, 255}, out.Pix[(15*20+15)*4:(15*20+15)*4+4], "white input must not leak into the mask")
	assert.Equal(t, []byte{255, 0, 0, 255}, out.Pix[(7*20+7)*4:(7*20+7)*4+4])
}

func TestDiffEngine_AcceptsSingleChannelInput(t *testing.T) {
	ref := NewImage(8, 8, 1)
	cand := ref.Clone()
	cand.Pix[3*8+3] = 255

	out, count, err := NewDiffEngine(DefaultDiffOptions()).Diff(ref, cand)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 4, out.Channels)
	assert.Equal(t, byte(255), out.At(3, 3, 0))
}
