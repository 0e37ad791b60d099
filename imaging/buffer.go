package imaging

import (
	"fmt"
	"image"
)

// WorkSize is the side length of the square working buffers every decoder
// produces. Algorithm code downsamples from this buffer, so all fingerprints
// are computed from the same decoded representation.
const WorkSize = 256

// Gray is a plain grayscale pixel buffer, row-major, one byte per pixel.
type Gray struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGray allocates a zeroed grayscale buffer of the given dimensions.
func NewGray(width, height int) *Gray {
	return &Gray{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the pixel at (x, y). No bounds checking beyond slice access.
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Set writes the pixel at (x, y).
func (g *Gray) Set(x, y int, v uint8) {
	g.Pix[y*g.Width+x] = v
}

// Scaled returns a new buffer downsampled to width x height by box
// averaging. Upsampling is supported via nearest sampling of source boxes.
func (g *Gray) Scaled(width, height int) *Gray {
	out := NewGray(width, height)
	for y := 0; y < height; y++ {
		y0 := y * g.Height / height
		y1 := (y + 1) * g.Height / height
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < width; x++ {
			x0 := x * g.Width / width
			x1 := (x + 1) * g.Width / width
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum, count int
			for sy := y0; sy < y1 && sy < g.Height; sy++ {
				for sx := x0; sx < x1 && sx < g.Width; sx++ {
					sum += int(g.Pix[sy*g.Width+sx])
					count++
				}
			}
			if count > 0 {
				out.Pix[y*width+x] = uint8(sum / count)
			}
		}
	}
	return out
}

// RGB is a plain color pixel buffer, row-major, three bytes (R, G, B) per
// pixel.
type RGB struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGB allocates a zeroed RGB buffer of the given dimensions.
func NewRGB(width, height int) *RGB {
	return &RGB{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// At returns the (r, g, b) triple at (x, y).
func (c *RGB) At(x, y int) (r, g, b uint8) {
	i := (y*c.Width + x) * 3
	return c.Pix[i], c.Pix[i+1], c.Pix[i+2]
}

// Set writes the (r, g, b) triple at (x, y).
func (c *RGB) Set(x, y int, r, g, b uint8) {
	i := (y*c.Width + x) * 3
	c.Pix[i], c.Pix[i+1], c.Pix[i+2] = r, g, b
}

// Gray converts the buffer to grayscale using the Rec. 601 luma weights.
func (c *RGB) Gray() *Gray {
	out := NewGray(c.Width, c.Height)
	for i := 0; i < c.Width*c.Height; i++ {
		r := float64(c.Pix[i*3])
		g := float64(c.Pix[i*3+1])
		b := float64(c.Pix[i*3+2])
		out.Pix[i] = uint8(0.299*r + 0.587*g + 0.114*b)
	}
	return out
}

// Scaled returns a new RGB buffer downsampled to width x height by box
// averaging per channel.
func (c *RGB) Scaled(width, height int) *RGB {
	out := NewRGB(width, height)
	for y := 0; y < height; y++ {
		y0 := y * c.Height / height
		y1 := (y + 1) * c.Height / height
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < width; x++ {
			x0 := x * c.Width / width
			x1 := (x + 1) * c.Width / width
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sumR, sumG, sumB, count int
			for sy := y0; sy < y1 && sy < c.Height; sy++ {
				for sx := x0; sx < x1 && sx < c.Width; sx++ {
					i := (sy*c.Width + sx) * 3
					sumR += int(c.Pix[i])
					sumG += int(c.Pix[i+1])
					sumB += int(c.Pix[i+2])
					count++
				}
			}
			if count > 0 {
				i := (y*width + x) * 3
				out.Pix[i] = uint8(sumR / count)
				out.Pix[i+1] = uint8(sumG / count)
				out.Pix[i+2] = uint8(sumB / count)
			}
		}
	}
	return out
}

// FromImage converts a decoded Go image into an RGB buffer.
func FromImage(img image.Image) (*RGB, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has empty bounds %v", bounds)
	}

	out := NewRGB(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return out, nil
}
