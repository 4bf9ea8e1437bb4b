package entity

type DetectionStatus string

const (
	DetectionStatusSuccess DetectionStatus = "success"
	DetectionStatusError   DetectionStatus = "error"
	DetectionStatusStandby DetectionStatus = "standby"
)

type DetectionCommand string

const (
	CommandStart DetectionCommand = "start"
	CommandClose DetectionCommand = "close"
)

// ParseDetectionCommand also accepts the long names sent by the mobile plugin.
// Unknown values come back unchanged and are treated as a read by the coordinator.
func ParseDetectionCommand(raw string) DetectionCommand {
	switch raw {
	case "start", "startFaceDetector":
		return CommandStart
	case "close", "closeFaceDetector":
		return CommandClose
	default:
		return DetectionCommand(raw)
	}
}

type FaceDirection string

const (
	FaceDirectionLeftSkewed    FaceDirection = "left-skewed"
	FaceDirectionRightSkewed   FaceDirection = "right-skewed"
	FaceDirectionFrontal       FaceDirection = "frontal"
	FaceDirectionTransitioning FaceDirection = "transitioning"
	FaceDirectionUnknown       FaceDirection = "unknown"
)

type ErrorCode int

const (
	ErrCodeSystem            ErrorCode = 101
	ErrCodeCannotGetImage    ErrorCode = 102
	ErrCodeImageUnavailable  ErrorCode = 103
	ErrCodeFaceNotFound      ErrorCode = 104
	ErrCodeTooManyFaces      ErrorCode = 105
	ErrCodeFaceOutOfFrame    ErrorCode = 106
	ErrCodeFaceTransitioning ErrorCode = 107
)

var ErrorCodeMessageMap = map[ErrorCode]string{
	ErrCodeSystem:            "System error",
	ErrCodeCannotGetImage:    "Cannot get image from frame",
	ErrCodeImageUnavailable:  "Image unavailable at ingest",
	ErrCodeFaceNotFound:      "Face not found",
	ErrCodeTooManyFaces:      "Too many faces in frame",
	ErrCodeFaceOutOfFrame:    "Face is out of frame",
	ErrCodeFaceTransitioning: "Face is transitioning",
}

func (c ErrorCode) Message() string {
	if msg, ok := ErrorCodeMessageMap[c]; ok {
		return msg
	}
	return ErrorCodeMessageMap[ErrCodeSystem]
}

func (c ErrorCode) Value() int {
	return int(c)
}

type FaceRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r FaceRect) Width() float64 {
	return r.Right - r.Left
}

func (r FaceRect) Height() float64 {
	return r.Bottom - r.Top
}

type Face struct {
	Rect                    FaceRect `json:"rect"`
	HeadEulerAngleX         float64  `json:"headEulerAngleX"`
	HeadEulerAngleY         float64  `json:"headEulerAngleY"`
	HeadEulerAngleZ         float64  `json:"headEulerAngleZ"`
	SmilingProbability      float64  `json:"smilingProbability"`
	LeftEyeOpenProbability  float64  `json:"leftEyeOpenProbability"`
	RightEyeOpenProbability float64  `json:"rightEyeOpenProbability"`
	TrackingID              *int64   `json:"trackingId,omitempty"`
}

type DetectionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DetectionResult is shared between readers once published and must be treated as immutable.
type DetectionResult struct {
	Status        DetectionStatus `json:"status"`
	Faces         []Face          `json:"faces,omitempty"`
	FrameData     string          `json:"frameData,omitempty"`
	FaceDirection FaceDirection   `json:"faceDirection,omitempty"`
	Error         *DetectionError `json:"error,omitempty"`
}

func NewStandbyResult() *DetectionResult {
	return &DetectionResult{Status: DetectionStatusStandby}
}

func NewErrorResult(code ErrorCode) *DetectionResult {
	return &DetectionResult{
		Status:        DetectionStatusError,
		FaceDirection: FaceDirectionUnknown,
		Error: &DetectionError{
			Code:    code,
			Message: code.Message(),
		},
	}
}

func NewSuccessResult(face Face, frameData string, direction FaceDirection) *DetectionResult {
	return &DetectionResult{
		Status:        DetectionStatusSuccess,
		Faces:         []Face{face},
		FrameData:     frameData,
		FaceDirection: direction,
	}
}

func (r *DetectionResult) ErrorCode() (ErrorCode, bool) {
	if r == nil || r.Error == nil {
		return 0, false
	}
	return r.Error.Code, true
}

// Frame is an encoded camera image. Rotation is clockwise degrees (0, 90, 180, 270)
// the image has to be turned before detection.
type Frame struct {
	Data     []byte
	Rotation int
}

func (f Frame) IsEmpty() bool {
	return len(f.Data) == 0
}

// Clone gives the coordinator its own copy of the buffer so the capture side may reuse it.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Data: data, Rotation: f.Rotation}
}
