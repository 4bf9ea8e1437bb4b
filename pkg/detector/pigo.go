package detector

import (
	"FaceGate/internal/entity"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	pigo "github.com/esimov/pigo/core"
)

type PigoConfig struct {
	CascadePath  string  `yaml:"cascade_path"`
	PuplocPath   string  `yaml:"puploc_path"`
	MinSize      int     `yaml:"min_size"`
	MaxSize      int     `yaml:"max_size"`
	ShiftFactor  float64 `yaml:"shift_factor"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	IoUThreshold float64 `yaml:"iou_threshold"`
	MinQuality   float32 `yaml:"min_quality"`
	TrackingIoU  float64 `yaml:"tracking_iou"`
}

func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		CascadePath:  "./models/facefinder",
		MinSize:      60,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
		TrackingIoU:  DefaultTrackingIoU,
	}
}

// LoadPigoClassifier unpacks a pigo facefinder cascade from disk.
func LoadPigoClassifier(path string) (*pigo.Pigo, error) {
	cascadeFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file (download cascade/facefinder from github.com/esimov/pigo): %w", err)
	}

	// Unpack returns the number of cascade trees, the tree depth, the threshold
	// and the prediction from the tree's leaf nodes.
	classifier, err := pigo.NewPigo().Unpack(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}

	return classifier, nil
}

// LoadPuplocCascade unpacks the pupil localization cascade used to estimate head yaw.
func LoadPuplocCascade(path string) (*pigo.PuplocCascade, error) {
	cascadeFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the puploc cascade file: %w", err)
	}

	puploc, err := pigo.NewPuplocCascade().UnpackCascade(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the puploc cascade file: %w", err)
	}

	return puploc, nil
}

// NewPigoFactory loads the cascades once; every session engine shares the read-only
// classifiers and keeps its own tracker. Without a puploc cascade faces carry no yaw.
func NewPigoFactory(cfg PigoConfig) (Factory, error) {
	classifier, err := LoadPigoClassifier(cfg.CascadePath)
	if err != nil {
		return nil, err
	}

	var puploc *pigo.PuplocCascade
	if cfg.PuplocPath != "" {
		if puploc, err = LoadPuplocCascade(cfg.PuplocPath); err != nil {
			return nil, err
		}
	}

	return func() (Engine, error) {
		return NewPigoEngine(classifier, puploc, cfg), nil
	}, nil
}

type pigoEngine struct {
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
	cfg        PigoConfig
	tracker    *Tracker
	closed     atomic.Bool
}

func NewPigoEngine(classifier *pigo.Pigo, puploc *pigo.PuplocCascade, cfg PigoConfig) Engine {
	return &pigoEngine{
		classifier: classifier,
		puploc:     puploc,
		cfg:        cfg,
		tracker:    NewTracker(cfg.TrackingIoU),
	}
}

func (e *pigoEngine) Process(ctx context.Context, in Input) ([]entity.Face, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if in.Image == nil {
		return nil, errors.New("no image to process")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := pigo.ImgToNRGBA(in.Image)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	maxSize := e.cfg.MaxSize
	if longest := max(cols, rows); maxSize <= 0 || maxSize > longest {
		maxSize = longest
	}

	cParams := pigo.CascadeParams{
		MinSize:     e.cfg.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: e.cfg.ShiftFactor,
		ScaleFactor: e.cfg.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// 0.0 is the cascade rotation angle; frames are turned upright before they get here.
	dets := e.classifier.RunCascade(cParams, 0.0)
	dets = e.classifier.ClusterDetections(dets, e.cfg.IoUThreshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faces := make([]entity.Face, 0, len(dets))
	for _, det := range dets {
		if det.Q < e.cfg.MinQuality {
			continue
		}
		half := float64(det.Scale) / 2
		faces = append(faces, entity.Face{
			Rect: entity.FaceRect{
				Left:   float64(det.Col) - half,
				Top:    float64(det.Row) - half,
				Right:  float64(det.Col) + half,
				Bottom: float64(det.Row) + half,
			},
			HeadEulerAngleY: e.yaw(det, cParams.ImageParams),
		})
	}

	e.tracker.Assign(faces)
	return faces, nil
}

// yaw locates both pupils inside the face box and returns 0 when either is missing.
func (e *pigoEngine) yaw(det pigo.Detection, img pigo.ImageParams) float64 {
	if e.puploc == nil {
		return 0
	}

	scale := float32(det.Scale)
	eye := func(colOffset int) *pigo.Puploc {
		return e.puploc.RunDetector(pigo.Puploc{
			Row:      det.Row - int(0.075*scale),
			Col:      det.Col + colOffset,
			Scale:    scale * 0.25,
			Perturbs: 50,
		}, img, 0.0, false)
	}

	left := eye(-int(0.175 * scale))
	right := eye(int(0.175 * scale))
	if left == nil || right == nil || left.Row <= 0 || left.Col <= 0 || right.Row <= 0 || right.Col <= 0 {
		return 0
	}

	return EstimateYaw(float64(det.Col), float64(det.Scale), float64(left.Col), float64(right.Col))
}

// eyeRadiusRatio is the distance of the pupil midpoint from the head's vertical
// axis, relative to the face box size.
const eyeRadiusRatio = 0.35

// EstimateYaw turns the horizontal offset of the pupil midpoint from the face box
// center into a yaw angle in degrees. Positive means turned towards the right edge
// of the frame.
func EstimateYaw(faceCol, faceSize, leftEyeCol, rightEyeCol float64) float64 {
	if faceSize <= 0 {
		return 0
	}

	offset := (leftEyeCol+rightEyeCol)/2 - faceCol
	ratio := offset / (faceSize * eyeRadiusRatio)
	ratio = math.Max(-1, math.Min(1, ratio))

	return math.Asin(ratio) * 180 / math.Pi
}

func (e *pigoEngine) Close() error {
	e.closed.Store(true)
	e.tracker.Reset()
	return nil
}
