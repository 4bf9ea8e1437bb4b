package detectionRepository

import (
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var ErrSessionClosed = errors.New("face detection session is closed")

// Session holds the detector handle and cadence state of one capture session.
// The hot path only touches atomics; mu guards the detector and the closed flag.
type Session struct {
	ID         string
	Generation uint64

	ctx    context.Context
	cancel context.CancelFunc

	lastDetectionMs   atomic.Int64
	detected          atomic.Bool
	lastFaceDirection atomic.Value
	result            atomic.Pointer[entity.DetectionResult]
	inFlight          atomic.Bool

	createMu sync.Mutex
	mu       sync.Mutex
	detector *detector.Adapter
	closed   bool
}

func newSession(id string, generation uint64) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		Generation: generation,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.lastFaceDirection.Store(entity.FaceDirectionUnknown)
	s.result.Store(entity.NewStandbyResult())
	return s
}

// Context is cancelled when the session is removed from the registry.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) IsClosed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) Result() *entity.DetectionResult {
	return s.result.Load()
}

// Publish stores result as the session's cached result unless the session has
// been closed. Readers never take the lock.
func (s *Session) Publish(result *entity.DetectionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.result.Store(result)
	s.lastFaceDirection.Store(result.FaceDirection)
	return true
}

func (s *Session) LastDetectionMs() int64 {
	return s.lastDetectionMs.Load()
}

func (s *Session) LastFaceDirection() entity.FaceDirection {
	return s.lastFaceDirection.Load().(entity.FaceDirection)
}

// TryBeginDetection claims the detection slot when no detection is outstanding and at
// least interval ms have passed since the last one. It never blocks.
func (s *Session) TryBeginDetection(nowMs, intervalMs int64) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}

	if s.detected.Load() && nowMs-s.lastDetectionMs.Load() < intervalMs {
		s.inFlight.Store(false)
		return false
	}

	s.lastDetectionMs.Store(nowMs)
	s.detected.Store(true)
	return true
}

func (s *Session) EndDetection() {
	s.inFlight.Store(false)
}

func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Detector returns the session's detector, building it with create on first use.
// Builders are serialized so at most one detector ever exists; closing the session
// does not wait for a build in progress.
func (s *Session) Detector(create func() (*detector.Adapter, error)) (*detector.Adapter, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.detector != nil {
		d := s.detector
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	d, err := create()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		go d.Close()
		return nil, ErrSessionClosed
	}
	s.detector = d
	return d, nil
}

// HasDetector reports whether a detector instance has been created.
func (s *Session) HasDetector() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector != nil
}

// release marks the session closed and hands back its detector for closing.
func (s *Session) release() *detector.Adapter {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	d := s.detector
	s.detector = nil
	return d
}

type sessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	generation uint64
	log        *logrus.Logger
}

// GetOrCreate never replaces an existing session; created reports whether this call made it.
func (r *sessionRegistry) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, false
	}

	r.generation++
	s := newSession(id, r.generation)
	r.sessions[id] = s
	return s, true
}

func (r *sessionRegistry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Remove is a no-op for unknown ids. The detector of a removed session is closed in
// the background so the caller never waits on the engine.
func (r *sessionRegistry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	if d := s.release(); d != nil {
		go func() {
			if err := d.Close(); err != nil && r.log != nil {
				r.log.WithFields(logrus.Fields{
					"session_id": id,
					"error":      err.Error(),
				}).Warn("Failed to close face detector")
			}
		}()
	}

	return s, true
}

func (r *sessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *sessionRegistry) Sessions() []*Session {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Generation < sessions[j].Generation
	})
	return sessions
}
