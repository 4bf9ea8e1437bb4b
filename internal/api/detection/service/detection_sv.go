package detectionService

import (
	detectionRepository "FaceGate/internal/api/detection/repository"
	"FaceGate/internal/entity"
	"FaceGate/pkg/detector"
	"FaceGate/pkg/log"
	"context"
	"errors"
	"time"
)

const storeTimeout = 2 * time.Second

// DetectFace never blocks on the engine. A start that passes the debounce gate
// launches one detection in the background and, like every other call, answers with
// the result cached before this call.
func (s *detectionService) DetectFace(ctx context.Context, input DetectFaceInput) *entity.DetectionResult {
	switch entity.ParseDetectionCommand(input.Command) {
	case entity.CommandStart:
		return s.start(input)
	case entity.CommandClose:
		return s.Close(ctx, input.ID)
	default:
		result, _ := s.Result(input.ID)
		return result
	}
}

func (s *detectionService) start(input DetectFaceInput) *entity.DetectionResult {
	sess, created := s.registry.GetOrCreate(input.ID)
	if created {
		s.log.WithFields(log.Fields{
			"session_id": sess.ID,
			"generation": sess.Generation,
		}).Debug("Face detection session started")
	}

	cached := sess.Result()
	if !sess.TryBeginDetection(s.nowMs(), s.cfg.DebounceInterval.Milliseconds()) {
		return cached
	}

	frame := input.Frame.Clone()

	s.pending.Add(1)
	go s.detect(sess, frame)

	return cached
}

func (s *detectionService) detect(sess *detectionRepository.Session, frame entity.Frame) {
	defer s.pending.Done()
	defer sess.EndDetection()

	ctx := sess.Context()
	fields := log.Fields{
		"session_id": sess.ID,
		"generation": sess.Generation,
	}

	img, err := s.utils.DecodeFrame(frame)
	if err != nil {
		s.log.WithFields(fields).WithField("error", err.Error()).Debug("Frame unavailable at ingest")
		s.apply(sess, entity.NewErrorResult(entity.ErrCodeImageUnavailable))
		return
	}

	adapter, err := sess.Detector(s.newAdapter)
	if err != nil {
		if errors.Is(err, detectionRepository.ErrSessionClosed) {
			return
		}
		s.log.WithFields(fields).WithField("error", err.Error()).Error("Failed to create face detector")
		s.apply(sess, entity.NewErrorResult(entity.ErrCodeSystem))
		return
	}

	var completion detector.Completion
	select {
	case completion = <-adapter.Submit(ctx, detector.Input{
		Image:    img,
		Encoded:  frame.Data,
		Rotation: frame.Rotation,
	}):
	case <-ctx.Done():
		s.log.WithFields(fields).Debug("Discarding detection for closed session")
		return
	}

	if completion.Err != nil {
		s.log.WithFields(fields).WithField("error", completion.Err.Error()).Warn("Face detection failed")
	}

	s.apply(sess, evaluate(completion, img, s.utils, s.cfg.DirectionThreshold))
}

func (s *detectionService) newAdapter() (*detector.Adapter, error) {
	engine, err := s.factory()
	if err != nil {
		return nil, err
	}
	return detector.NewAdapter(engine, s.cfg.DetectionTimeout, s.log), nil
}

// apply publishes result only while sess is still the live entry for its id.
func (s *detectionService) apply(sess *detectionRepository.Session, result *entity.DetectionResult) {
	live, ok := s.registry.Lookup(sess.ID)
	if !ok || live != sess || !sess.Publish(result) {
		s.log.WithFields(log.Fields{
			"session_id": sess.ID,
			"generation": sess.Generation,
		}).Debug("Discarding stale detection completion")
		return
	}

	s.mirror(sess)
}

func (s *detectionService) mirror(sess *detectionRepository.Session) {
	if s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(sess.Context(), storeTimeout)
	defer cancel()

	if err := s.store.SaveSession(ctx, snapshot(sess)); err != nil {
		s.log.WithFields(log.Fields{
			"session_id": sess.ID,
			"error":      err.Error(),
		}).Warn("Failed to mirror session state")
	}
}

func (s *detectionService) Result(id string) (*entity.DetectionResult, bool) {
	sess, ok := s.registry.Lookup(id)
	if !ok {
		return entity.NewStandbyResult(), false
	}
	return sess.Result(), true
}

// Close is a no-op for unknown ids and answers with the session's last cached result.
func (s *detectionService) Close(ctx context.Context, id string) *entity.DetectionResult {
	sess, ok := s.registry.Remove(id)
	if !ok {
		return entity.NewStandbyResult()
	}

	s.log.WithFields(log.Fields{
		"session_id": sess.ID,
		"generation": sess.Generation,
	}).Debug("Face detection session closed")

	if s.store != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()

			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
			defer cancel()

			if err := s.store.DeleteSession(ctx, id); err != nil {
				s.log.WithFields(log.Fields{
					"session_id": id,
					"error":      err.Error(),
				}).Warn("Failed to delete mirrored session state")
			}
		}()
	}

	return sess.Result()
}

func (s *detectionService) Sessions() []entity.SessionState {
	sessions := s.registry.Sessions()
	states := make([]entity.SessionState, 0, len(sessions))
	for _, sess := range sessions {
		states = append(states, snapshot(sess))
	}
	return states
}

// CloseAll removes every session and waits for background work until ctx is done.
func (s *detectionService) CloseAll(ctx context.Context) {
	for _, sess := range s.registry.Sessions() {
		s.Close(ctx, sess.ID)
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for face detections to finish")
	}
}

func snapshot(sess *detectionRepository.Session) entity.SessionState {
	return entity.SessionState{
		ID:                sess.ID,
		Generation:        sess.Generation,
		LastDetectionMs:   sess.LastDetectionMs(),
		LastFaceDirection: sess.LastFaceDirection(),
		Status:            sess.Result().Status,
		InFlight:          sess.InFlight(),
	}
}
