package captcha

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"math"
	"math/big"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Image geometry.
const (
	imageWidth  = 160
	imageHeight = 60
	fontSize    = 30
	noiseDots   = 400
	noiseLines  = 3
)

// alphabet excludes characters that are easily confused (0/O, 1/I/l).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

var (
	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return parsedFont, fontErr
}

// randomText returns n characters drawn uniformly from alphabet.
func randomText(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := randInt(len(alphabet))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx]
	}
	return string(out), nil
}

// renderPNG draws text with per-glyph colour, rotation and vertical jitter
// over a noisy background and returns the PNG bytes.
func renderPNG(text string) ([]byte, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetRGB(0.97, 0.97, 0.97)
	dc.Clear()

	for i := 0; i < noiseDots; i++ {
		x, _ := randInt(imageWidth)  //nolint:errcheck
		y, _ := randInt(imageHeight) //nolint:errcheck
		shade, _ := randInt(100)     //nolint:errcheck
		dc.SetRGBA(float64(shade)/100, 0.4, 1-float64(shade)/100, 0.35)
		dc.DrawPoint(float64(x), float64(y), 1)
		dc.Fill()
	}

	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: fontSize}))

	n := len(text)
	step := float64(imageWidth) / float64(n+1)
	for i, ch := range text {
		jitter, err := randInt(21)
		if err != nil {
			return nil, err
		}
		tilt, err := randInt(41)
		if err != nil {
			return nil, err
		}

		dc.SetRGB(
			0.1+0.6*float64(i)/float64(n),
			0.1+0.5*float64(n-i)/float64(n),
			0.2+0.5*math.Abs(math.Sin(float64(i))),
		)

		angle := float64(tilt-20) / 100
		x := step * float64(i+1)
		y := float64(imageHeight)/2 + float64(jitter-10)/2

		dc.RotateAbout(angle, x, y)
		dc.DrawStringAnchored(string(ch), x, y, 0.5, 0.35)
		dc.RotateAbout(-angle, x, y)
	}

	dc.SetLineWidth(1.5)
	for i := 0; i < noiseLines; i++ {
		y1, err := randInt(imageHeight)
		if err != nil {
			return nil, err
		}
		y2, err := randInt(imageHeight)
		if err != nil {
			return nil, err
		}
		dc.SetRGBA(0.3, 0.3, 0.3, 0.6)
		dc.DrawLine(0, float64(y1), imageWidth, float64(y2))
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func randInt(max int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
