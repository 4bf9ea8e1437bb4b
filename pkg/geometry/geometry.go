package geometry

import (
	"FaceGate/internal/entity"
)

const DefaultDirectionThreshold = 15.0

// IsFullyInFrame reports whether the face box lies inside a frame of the given size.
// Edges touching the frame border are still inside; anything past it is cropped.
func IsFullyInFrame(box entity.FaceRect, frameWidth, frameHeight int) bool {
	if frameWidth <= 0 || frameHeight <= 0 {
		return false
	}

	return box.Left >= 0 &&
		box.Top >= 0 &&
		box.Right <= float64(frameWidth) &&
		box.Bottom <= float64(frameHeight)
}

// ClassifyDirection maps the head yaw (headEulerAngleY, degrees) to a direction.
// A positive yaw means the head is turned towards the right edge of the frame.
func ClassifyDirection(yaw float64, threshold float64) entity.FaceDirection {
	if threshold <= 0 {
		threshold = DefaultDirectionThreshold
	}

	switch {
	case yaw > threshold:
		return entity.FaceDirectionRightSkewed
	case yaw < -threshold:
		return entity.FaceDirectionLeftSkewed
	default:
		return entity.FaceDirectionFrontal
	}
}

// IoU returns the intersection over union of two boxes, 0 when either is degenerate.
func IoU(a, b entity.FaceRect) float64 {
	ix1 := max(a.Left, b.Left)
	iy1 := max(a.Top, b.Top)
	ix2 := min(a.Right, b.Right)
	iy2 := min(a.Bottom, b.Bottom)

	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}

	intersection := (ix2 - ix1) * (iy2 - iy1)
	areaA := a.Width() * a.Height()
	areaB := b.Width() * b.Height()
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
