package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// LocalMattingEngine removes flat studio style backgrounds without a model:
// the background colour is estimated from the image border, the connected
// region of similar colour is flood filled from the edges and its alpha is
// feathered by colour distance, then the mask is blurred to soften edges.
type LocalMattingEngine struct {
	// Colour distance (0-441) at or below which a pixel is fully transparent.
	LowerThreshold float64
	// Colour distance at or above which a pixel stays opaque.
	UpperThreshold float64
	// Gaussian sigma applied to the alpha mask; 0 disables refinement.
	EdgeSigma float64
	// Fraction of pixels that must be removed for the result to count.
	MinRemovedRatio float64
	MaxRemovedRatio float64
}

func NewLocalMattingEngine() *LocalMattingEngine {
	return &LocalMattingEngine{
		LowerThreshold:  30,
		UpperThreshold:  70,
		EdgeSigma:       1.2,
		MinRemovedRatio: 0.01,
		MaxRemovedRatio: 0.98,
	}
}

func (l *LocalMattingEngine) Name() string { return "local" }

// DecodeImage decodes jpeg, png, gif and webp input, honouring EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func colorDistance(r, g, b uint8, bg [3]float64) float64 {
	dr := float64(r) - bg[0]
	dg := float64(g) - bg[1]
	db := float64(b) - bg[2]
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// borderColor averages the outermost band of pixels.
func borderColor(img *image.NRGBA) [3]float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	band := int(math.Max(1, math.Round(float64(min(w, h))*0.02)))
	var sum [3]float64
	var n float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= band && x < w-band && y >= band && y < h-band {
				continue
			}
			i := y*img.Stride + x*4
			sum[0] += float64(img.Pix[i])
			sum[1] += float64(img.Pix[i+1])
			sum[2] += float64(img.Pix[i+2])
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
}

func (l *LocalMattingEngine) Matte(ctx context.Context, data []byte) ([]byte, error) {
	if l.LowerThreshold >= l.UpperThreshold {
		return nil, fmt.Errorf("lowerThreshold must be less than upperThreshold")
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	img := imaging.Clone(decoded)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 3 || h < 3 {
		return nil, fmt.Errorf("image too small for matting: %dx%d", w, h)
	}
	bg := borderColor(img)

	dist := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			dist[y*w+x] = colorDistance(img.Pix[i], img.Pix[i+1], img.Pix[i+2], bg)
		}
	}

	// Flood fill background-like pixels reachable from the border.
	background := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	push := func(p int) {
		if !background[p] && dist[p] < l.UpperThreshold {
			background[p] = true
			queue = append(queue, p)
		}
	}
	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}
	for head := 0; head < len(queue); head++ {
		if head%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p := queue[head]
		x, y := p%w, p/w
		if x > 0 {
			push(p - 1)
		}
		if x < w-1 {
			push(p + 1)
		}
		if y > 0 {
			push(p - w)
		}
		if y < h-1 {
			push(p + w)
		}
	}

	removedRatio := float64(len(queue)) / float64(w*h)
	if removedRatio < l.MinRemovedRatio || removedRatio > l.MaxRemovedRatio {
		return nil, fmt.Errorf("no separable background (%.2f of pixels matched)", removedRatio)
	}

	transitionRange := l.UpperThreshold - l.LowerThreshold
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for p := range dist {
		alpha := uint8(255)
		if background[p] {
			if dist[p] <= l.LowerThreshold {
				alpha = 0
			} else {
				blendFactor := (dist[p] - l.LowerThreshold) / transitionRange
				alpha = uint8(math.Round(255 * blendFactor))
			}
		}
		mask.Pix[p] = alpha
	}

	var refined image.Image = mask
	if l.EdgeSigma > 0 {
		refined = imaging.Blur(mask, l.EdgeSigma)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			o := y*out.Stride + x*4
			a := color.GrayModel.Convert(refined.At(x, y)).(color.Gray).Y
			if img.Pix[i+3] < a {
				a = img.Pix[i+3]
			}
			out.Pix[o] = img.Pix[i]
			out.Pix[o+1] = img.Pix[i+1]
			out.Pix[o+2] = img.Pix[i+2]
			out.Pix[o+3] = a
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizePhotoJPEG re-encodes any supported photo as an RGB JPEG.
func NormalizePhotoJPEG(data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	// Flatten transparency onto white so JPEG does not turn it black.
	canvas := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	canvas = imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
