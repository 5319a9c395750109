package classifier

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// InputSize is the square edge expected by MobileNetV2.
const InputSize = 224

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess decodes a JPEG frame, resizes it to size×size and returns the
// ImageNet-normalized pixels in NCHW order.
func Preprocess(frame []byte, size int) ([]float32, error) {
	src, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return tensorFromImage(src, size), nil
}

func tensorFromImage(src image.Image, size int) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := dst.PixOffset(x, y)
			px := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(dst.Pix[i+c]) / 255
				out[c*plane+px] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return out
}
