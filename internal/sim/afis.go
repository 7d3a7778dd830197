package sim

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"runtime"
	"sync"

	"github.com/jtejido/sourceafis"
	afisconfig "github.com/jtejido/sourceafis/config"
)

// AfisMatcher scores frames as fingerprint images using the SourceAFIS
// matching engine. Frames must decode as JPEG or PNG.
type AfisMatcher struct{}

type discardTransparency struct{}

func (discardTransparency) Accepts(key string) bool                    { return false }
func (discardTransparency) Accept(key, mime string, data []byte) error { return nil }

var afisInit sync.Once

// NewAfisMatcher builds a matcher with the default engine configuration.
func NewAfisMatcher() *AfisMatcher {
	afisInit.Do(func() {
		afisconfig.LoadDefaultConfig()
		afisconfig.Config.Workers = runtime.NumCPU()
	})
	return &AfisMatcher{}
}

// Score implements Matcher. SourceAFIS similarity scores are unbounded
// above; around 40 is a practical same-finger threshold.
func (m *AfisMatcher) Score(ctx context.Context, probe, candidate []byte) (float64, error) {
	l := sourceafis.NewTransparencyLogger(discardTransparency{})
	tc := sourceafis.NewTemplateCreator(l)

	probeImg, err := imageFromBytes(probe)
	if err != nil {
		return 0, fmt.Errorf("decode probe frame: %w", err)
	}
	probeTpl, err := tc.Template(probeImg)
	if err != nil {
		return 0, fmt.Errorf("probe template: %w", err)
	}
	candidateImg, err := imageFromBytes(candidate)
	if err != nil {
		return 0, fmt.Errorf("decode candidate frame: %w", err)
	}
	candidateTpl, err := tc.Template(candidateImg)
	if err != nil {
		return 0, fmt.Errorf("candidate template: %w", err)
	}
	matcher, err := sourceafis.NewMatcher(l, probeTpl)
	if err != nil {
		return 0, fmt.Errorf("create matcher: %w", err)
	}
	return matcher.Match(ctx, candidateTpl), nil
}

func imageFromBytes(data []byte) (*sourceafis.Image, error) {
	reader := bytes.NewReader(data)
	if img, err := jpeg.Decode(reader); err == nil {
		return grayImage(img)
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if img, err := png.Decode(reader); err == nil {
		return grayImage(img)
	}
	return nil, fmt.Errorf("frame is neither JPEG nor PNG")
}

func grayImage(img image.Image) (*sourceafis.Image, error) {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return sourceafis.NewFromGray(gray)
}

// ExactMatcher scores byte-identical frames as a certain match and anything
// else as zero. It keeps bench (`--sim`) runs and tests deterministic
// without decoding real scans.
type ExactMatcher struct{}

// Score implements Matcher.
func (ExactMatcher) Score(ctx context.Context, probe, candidate []byte) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if bytes.Equal(probe, candidate) {
		return 100, nil
	}
	return 0, nil
}
