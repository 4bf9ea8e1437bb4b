package utils

import (
	"FaceGate/internal/entity"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
	_ "golang.org/x/image/webp"
)

const (
	SnapshotFormatJPEG = "jpeg"
	SnapshotFormatPNG  = "png"
	SnapshotFormatWebP = "webp"
)

var (
	ErrEmptyFrame                = errors.New("frame has no image data")
	ErrUnsupportedRotation       = errors.New("frame rotation must be a multiple of 90 degrees")
	ErrUnsupportedSnapshotFormat = errors.New("unsupported snapshot format")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	DecodeFrame(frame entity.Frame) (image.Image, error)
	EncodeSnapshot(img image.Image) (string, error)
}

type SnapshotConfig struct {
	Format       string
	Quality      int
	MaxDimension int
}

func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Format:  SnapshotFormatJPEG,
		Quality: 100,
	}
}

type utils struct {
	snapshot SnapshotConfig
}

func New() IUtils {
	return &utils{
		snapshot: DefaultSnapshotConfig(),
	}
}

func NewWithSnapshotConfig(cfg SnapshotConfig) IUtils {
	if cfg.Format == "" {
		cfg.Format = SnapshotFormatJPEG
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 100
	}

	return &utils{
		snapshot: cfg,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// DecodeFrame decodes a JPEG, PNG or WebP buffer and turns it upright.
func (u *utils) DecodeFrame(frame entity.Frame) (image.Image, error) {
	if frame.IsEmpty() {
		return nil, ErrEmptyFrame
	}

	img, err := imaging.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	return Rotate(img, frame.Rotation)
}

// Rotate turns img clockwise by the given degrees.
func Rotate(img image.Image, degrees int) (image.Image, error) {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, ErrUnsupportedRotation
	}
}

// EncodeSnapshot re-encodes the frame into the configured still format and returns it base64 encoded.
func (u *utils) EncodeSnapshot(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrEmptyFrame
	}

	if maxDim := u.snapshot.MaxDimension; maxDim > 0 {
		bounds := img.Bounds()
		if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
			img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	var err error
	switch strings.ToLower(u.snapshot.Format) {
	case SnapshotFormatJPEG, "jpg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(u.snapshot.Quality))
	case SnapshotFormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case SnapshotFormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true, Quality: float32(u.snapshot.Quality)})
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSnapshotFormat, u.snapshot.Format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
