package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"runtime/debug"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"dnamatcher/logging"
)

// ErrUndecodable is returned when no decoder could produce pixels from the
// input bytes. Callers treat this as a total extraction failure.
var ErrUndecodable = errors.New("image bytes could not be decoded")

// Decoded is the working representation every fingerprint extractor reads
// from: one square RGB buffer plus its grayscale conversion, and the
// dimensions of the original image for aspect-ratio purposes.
type Decoded struct {
	RGB        *RGB
	Gray       *Gray
	OrigWidth  int
	OrigHeight int
}

// Decoder turns raw image bytes into a WorkSize x WorkSize RGB buffer and
// reports the original image dimensions.
type Decoder interface {
	Name() string
	Decode(data []byte) (*RGB, int, int, error)
}

// DecoderRegistry holds decoders tried in order until one succeeds. The
// OpenCV decoder covers the common upload formats; the pure-Go decoder picks
// up formats OpenCV builds sometimes lack (WebP, some TIFF variants) and
// serves as the fallback when OpenCV rejects the bytes.
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry returns a registry with the default decoder chain.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{
		decoders: []Decoder{
			&opencvDecoder{},
			&stdDecoder{},
		},
	}
}

// Decode runs the decoder chain and returns the working buffers.
func (r *DecoderRegistry) Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUndecodable)
	}

	var lastErr error
	for _, d := range r.decoders {
		rgb, w, h, err := d.Decode(data)
		if err != nil {
			logging.Debug("decoder failed", "decoder", d.Name(), "error", err)
			lastErr = err
			continue
		}
		return &Decoded{
			RGB:        rgb,
			Gray:       rgb.Gray(),
			OrigWidth:  w,
			OrigHeight: h,
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, lastErr)
	}
	return nil, ErrUndecodable
}

// Decode decodes image bytes with the default decoder chain.
func Decode(data []byte) (*Decoded, error) {
	return NewDecoderRegistry().Decode(data)
}

// opencvDecoder decodes via gocv.IMDecode. OpenCV can panic on malformed
// input, so the call is wrapped in a recover the same way image loading
// panics are contained elsewhere in the pipeline.
type opencvDecoder struct{}

func (d *opencvDecoder) Name() string { return "opencv" }

func (d *opencvDecoder) Decode(data []byte) (rgb *RGB, width, height int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during OpenCV decode: %v\n%s", r, debug.Stack())
			rgb = nil
		}
	}()

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opencv decode: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, 0, 0, fmt.Errorf("opencv decode produced empty mat")
	}

	width = mat.Cols()
	height = mat.Rows()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Point{X: WorkSize, Y: WorkSize}, 0, 0, gocv.InterpolationLinear)

	converted := gocv.NewMat()
	defer converted.Close()
	gocv.CvtColor(resized, &converted, gocv.ColorBGRToRGB)

	raw := converted.ToBytes()
	if len(raw) != WorkSize*WorkSize*3 {
		return nil, 0, 0, fmt.Errorf("unexpected buffer size %d after resize", len(raw))
	}

	rgb = NewRGB(WorkSize, WorkSize)
	copy(rgb.Pix, raw)
	return rgb, width, height, nil
}

// stdDecoder decodes with Go's image packages plus the x/image format
// registrations, scaling with nfnt/resize.
type stdDecoder struct{}

func (d *stdDecoder) Name() string { return "stdlib" }

func (d *stdDecoder) Decode(data []byte) (*RGB, int, int, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("image decode: %w", err)
	}
	logging.Debug("decoded with Go image packages", "format", format)

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	scaled := resize.Resize(WorkSize, WorkSize, img, resize.Bicubic)
	rgb, err := FromImage(scaled)
	if err != nil {
		return nil, 0, 0, err
	}
	return rgb, width, height, nil
}
