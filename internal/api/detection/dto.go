package detection

import (
	"FaceGate/internal/entity"
	"encoding/base64"
)

type DetectFaceRequest struct {
	ID       string `json:"id" validate:"required,max=128"`
	Command  string `json:"command" validate:"omitempty,max=64"`
	Frame    string `json:"frame" validate:"omitempty,base64"`
	Rotation int    `json:"rotation" validate:"oneof=0 90 180 270"`
}

// ToFrame decodes the base64 frame into an owned buffer. An absent frame yields an
// empty Frame, which start answers with an ingest error.
func (r DetectFaceRequest) ToFrame() (entity.Frame, error) {
	if r.Frame == "" {
		return entity.Frame{Rotation: r.Rotation}, nil
	}

	data, err := base64.StdEncoding.DecodeString(r.Frame)
	if err != nil {
		return entity.Frame{}, ErrInvalidFrame
	}

	return entity.Frame{Data: data, Rotation: r.Rotation}, nil
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type SessionsResponse struct {
	Sessions []entity.SessionState `json:"sessions"`
}

type SessionResultResponse struct {
	ID     string                  `json:"id"`
	Result *entity.DetectionResult `json:"result"`
}
