package detectionRepository

import (
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type closingEngine struct {
	closed atomic.Bool
}

func (e *closingEngine) Process(ctx context.Context, in detector.Input) ([]entity.Face, error) {
	return nil, nil
}

func (e *closingEngine) Close() error {
	e.closed.Store(true)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	registry := New(quietLogger())

	first, created := registry.GetOrCreate("s1")
	if !created {
		t.Fatal("expected first call to create the session")
	}
	second, created := registry.GetOrCreate("s1")
	if created {
		t.Error("expected second call to reuse the session")
	}
	if first != second {
		t.Error("GetOrCreate replaced an existing session")
	}
	if registry.Len() != 1 {
		t.Errorf("expected 1 session, got %d", registry.Len())
	}
}

func TestNewSessionDefaults(t *testing.T) {
	registry := New(quietLogger())
	s, _ := registry.GetOrCreate("s1")

	if s.LastDetectionMs() != 0 {
		t.Errorf("expected lastDetectionMs 0, got %d", s.LastDetectionMs())
	}
	if s.LastFaceDirection() != entity.FaceDirectionUnknown {
		t.Errorf("expected unknown direction, got %q", s.LastFaceDirection())
	}
	if s.Result().Status != entity.DetectionStatusStandby {
		t.Errorf("expected standby result, got %q", s.Result().Status)
	}
	if s.HasDetector() {
		t.Error("detector must be created lazily")
	}
}

func TestConcurrentGetOrCreateSingleInstance(t *testing.T) {
	registry := New(quietLogger())

	const workers = 64
	results := make([]*Session, workers)
	var createdCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, created := registry.GetOrCreate("same-id")
			if created {
				createdCount.Add(1)
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	if createdCount.Load() != 1 {
		t.Errorf("expected exactly one creation, got %d", createdCount.Load())
	}
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers received different sessions")
		}
	}
}

func TestDetectorCreatedOnce(t *testing.T) {
	registry := New(quietLogger())
	s, _ := registry.GetOrCreate("s1")

	var builds atomic.Int32
	create := func() (*detector.Adapter, error) {
		builds.Add(1)
		return detector.NewAdapter(&closingEngine{}, time.Second, quietLogger()), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Detector(create); err != nil {
				t.Errorf("Detector() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("expected one detector build, got %d", builds.Load())
	}
}

func TestDetectorCreationErrorIsRetried(t *testing.T) {
	registry := New(quietLogger())
	s, _ := registry.GetOrCreate("s1")

	if _, err := s.Detector(func() (*detector.Adapter, error) {
		return nil, errors.New("dial failed")
	}); err == nil {
		t.Fatal("expected creation error")
	}

	d, err := s.Detector(func() (*detector.Adapter, error) {
		return detector.NewAdapter(&closingEngine{}, time.Second, quietLogger()), nil
	})
	if err != nil || d == nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	registry := New(quietLogger())

	if _, ok := registry.Remove("missing"); ok {
		t.Error("Remove of an absent id must be a no-op")
	}

	s, _ := registry.GetOrCreate("s1")
	engine := &closingEngine{}
	if _, err := s.Detector(func() (*detector.Adapter, error) {
		return detector.NewAdapter(engine, time.Second, quietLogger()), nil
	}); err != nil {
		t.Fatalf("Detector() error = %v", err)
	}

	removed, ok := registry.Remove("s1")
	if !ok || removed != s {
		t.Fatal("expected Remove to return the live session")
	}
	if !s.IsClosed() {
		t.Error("expected session context to be cancelled")
	}
	if _, ok := registry.Lookup("s1"); ok {
		t.Error("session still registered after Remove")
	}
	if _, err := s.Detector(func() (*detector.Adapter, error) {
		return detector.NewAdapter(&closingEngine{}, time.Second, quietLogger()), nil
	}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !engine.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("detector engine was not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh, created := registry.GetOrCreate("s1")
	if !created || fresh == s {
		t.Error("expected a fresh session after close")
	}
	if fresh.Generation <= s.Generation {
		t.Errorf("expected newer generation, got %d after %d", fresh.Generation, s.Generation)
	}
}

func TestTryBeginDetection(t *testing.T) {
	registry := New(quietLogger())
	s, _ := registry.GetOrCreate("s1")

	if !s.TryBeginDetection(0, 1500) {
		t.Fatal("first detection must pass the gate")
	}
	if s.TryBeginDetection(2000, 1500) {
		t.Error("a second detection must wait for the outstanding one")
	}
	s.EndDetection()

	if s.TryBeginDetection(500, 1500) {
		t.Error("detection within the interval must be gated")
	}
	if s.InFlight() {
		t.Error("a gated attempt must not hold the slot")
	}
	if s.LastDetectionMs() != 0 {
		t.Errorf("gated attempt changed lastDetectionMs to %d", s.LastDetectionMs())
	}
	if !s.TryBeginDetection(1500, 1500) {
		t.Error("detection after the interval must pass")
	}
	if s.LastDetectionMs() != 1500 {
		t.Errorf("expected lastDetectionMs 1500, got %d", s.LastDetectionMs())
	}
}

func TestSessionsOrderedByCreation(t *testing.T) {
	registry := New(quietLogger())
	registry.GetOrCreate("b")
	registry.GetOrCreate("a")
	registry.GetOrCreate("c")

	sessions := registry.Sessions()
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	want := []string{"b", "a", "c"}
	for i, s := range sessions {
		if s.ID != want[i] {
			t.Errorf("sessions[%d] = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestPublishAfterRemoveIsDiscarded(t *testing.T) {
	registry := New(quietLogger())
	s, _ := registry.GetOrCreate("s1")

	failed := entity.NewErrorResult(entity.ErrCodeFaceNotFound)
	if !s.Publish(failed) {
		t.Fatal("expected publish on a live session to succeed")
	}
	if s.Result() != failed {
		t.Error("published result not visible")
	}

	registry.Remove("s1")

	if s.Publish(entity.NewStandbyResult()) {
		t.Error("publish on a closed session must be rejected")
	}
	if s.Result() != failed {
		t.Error("closed session result changed")
	}
}
