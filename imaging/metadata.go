package imaging

import (
	"fmt"

	"github.com/barasher/go-exiftool"

	"dnamatcher/logging"
)

// Metadata holds the original-image fields read from EXIF. The decoded
// buffer dimensions are a fallback; EXIF describes the image as shot,
// including orientation, which matters for the aspect ratio of rotated
// phone photos.
type Metadata struct {
	Width       int
	Height      int
	Orientation int
	CameraModel string
}

// ProbeFile reads image metadata with exiftool. Failure is expected when
// the exiftool binary is not installed; callers fall back to decoded bounds.
func ProbeFile(path string) (*Metadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("initialize exiftool: %w", err)
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return nil, fmt.Errorf("no metadata extracted from %s", path)
	}
	info := fileInfos[0]
	if info.Err != nil {
		return nil, fmt.Errorf("extract metadata from %s: %w", path, info.Err)
	}

	meta := &Metadata{}
	if w, err := info.GetInt("ImageWidth"); err == nil {
		meta.Width = int(w)
	}
	if h, err := info.GetInt("ImageHeight"); err == nil {
		meta.Height = int(h)
	}
	if o, err := info.GetInt("Orientation"); err == nil {
		meta.Orientation = int(o)
	}
	if m, err := info.GetString("Model"); err == nil {
		meta.CameraModel = m
	}

	// EXIF orientations 5-8 rotate the image by 90 degrees, so the stored
	// dimensions are swapped relative to how the photo is viewed.
	if meta.Orientation >= 5 && meta.Orientation <= 8 {
		meta.Width, meta.Height = meta.Height, meta.Width
	}

	logging.Debug("probed image metadata",
		"path", path, "width", meta.Width, "height", meta.Height, "model", meta.CameraModel)
	return meta, nil
}
