package detector

import (
	"FaceGate/internal/entity"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Second

var (
	ErrEngineClosed    = errors.New("face detection engine is closed")
	ErrDetectorTimeout = errors.New("face detection timed out")
)

// Input is one frame handed to an engine. Image is already upright; Encoded is the
// caller's original buffer for engines that ship bytes elsewhere.
type Input struct {
	Image    image.Image
	Encoded  []byte
	Rotation int
}

func (in Input) Size() (int, int) {
	if in.Image == nil {
		return 0, 0
	}
	b := in.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Engine is the face detection backend. Process should return once ctx is done;
// a call abandoned on timeout may still be running when the next Process starts.
type Engine interface {
	Process(ctx context.Context, in Input) ([]entity.Face, error)
	Close() error
}

// Factory builds a new engine for a session.
type Factory func() (Engine, error)

type Completion struct {
	Faces []entity.Face
	Err   error
}

type Adapter struct {
	engine  Engine
	timeout time.Duration
	log     *logrus.Logger
}

func NewAdapter(engine Engine, timeout time.Duration, log *logrus.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Adapter{
		engine:  engine,
		timeout: timeout,
		log:     log,
	}
}

// Submit runs the engine in the background. The returned channel yields exactly one
// Completion and is then closed.
func (a *Adapter) Submit(ctx context.Context, in Input) <-chan Completion {
	done := make(chan Completion, 1)

	go func() {
		defer close(done)
		done <- a.process(ctx, in)
	}()

	return done
}

// process waits for the engine at most until ctx or the adapter timeout is done.
// An engine that ignores ctx keeps running in the background and its late answer
// is dropped.
func (a *Adapter) process(ctx context.Context, in Input) Completion {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	result := make(chan Completion, 1)
	go func() {
		result <- a.run(ctx, in)
	}()

	select {
	case c := <-result:
		if c.Err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.Err = fmt.Errorf("%w after %s: %v", ErrDetectorTimeout, a.timeout, c.Err)
			}
			return c
		}

		a.log.WithFields(logrus.Fields{
			"faces":      len(c.Faces),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Debug("Face detection completed")
		return c
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			a.log.WithField("timeout", a.timeout.String()).Warn("Face detection engine did not answer in time")
			return Completion{Err: fmt.Errorf("%w after %s", ErrDetectorTimeout, a.timeout)}
		}
		return Completion{Err: fmt.Errorf("face detection cancelled: %w", ctx.Err())}
	}
}

func (a *Adapter) run(ctx context.Context, in Input) (c Completion) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("Face detection engine panicked")
			c = Completion{Err: fmt.Errorf("engine panic: %v", r)}
		}
	}()

	faces, err := a.engine.Process(ctx, in)
	if err != nil {
		return Completion{Err: err}
	}
	return Completion{Faces: faces}
}

func (a *Adapter) Close() error {
	return a.engine.Close()
}
