package detectionService

import (
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"FaceGate/pkg/geometry"
	"image"
)

type snapshotEncoder interface {
	EncodeSnapshot(img image.Image) (string, error)
}

// evaluate turns a completed detection into the published verdict. The first failing
// check wins.
func evaluate(c detector.Completion, img image.Image, encoder snapshotEncoder, threshold float64) *entity.DetectionResult {
	if c.Err != nil {
		return entity.NewErrorResult(entity.ErrCodeSystem)
	}

	switch len(c.Faces) {
	case 0:
		return entity.NewErrorResult(entity.ErrCodeFaceNotFound)
	case 1:
	default:
		return entity.NewErrorResult(entity.ErrCodeTooManyFaces)
	}

	face := c.Faces[0]

	var width, height int
	if img != nil {
		bounds := img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}
	if !geometry.IsFullyInFrame(face.Rect, width, height) {
		return entity.NewErrorResult(entity.ErrCodeFaceOutOfFrame)
	}

	frameData, err := encoder.EncodeSnapshot(img)
	if err != nil {
		return entity.NewErrorResult(entity.ErrCodeCannotGetImage)
	}

	direction := geometry.ClassifyDirection(face.HeadEulerAngleY, threshold)
	return entity.NewSuccessResult(face, frameData, direction)
}
