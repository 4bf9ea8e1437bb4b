package entity

// SessionState is the cadence state of a face detection session as exposed to
// listings and mirrored to Redis.
type SessionState struct {
	ID                string          `json:"id" redis:"id"`
	Generation        uint64          `json:"generation" redis:"generation"`
	LastDetectionMs   int64           `json:"lastDetectionMs" redis:"last_detection_ms"`
	LastFaceDirection FaceDirection   `json:"lastFaceDirection" redis:"last_face_direction"`
	Status            DetectionStatus `json:"status" redis:"status"`
	InFlight          bool            `json:"inFlight" redis:"-"`
}

type SessionEngine uint8

const (
	SessionEngineUnknown SessionEngine = 0
	SessionEnginePigo    SessionEngine = 1
	SessionEngineRemote  SessionEngine = 2
)

var SessionEngineMap = map[SessionEngine]string{
	SessionEnginePigo:   "pigo",
	SessionEngineRemote: "remote",
}

func ParseSessionEngine(raw string) SessionEngine {
	for engine, name := range SessionEngineMap {
		if name == raw {
			return engine
		}
	}
	return SessionEngineUnknown
}

func (e SessionEngine) String() string {
	return SessionEngineMap[e]
}

func (e SessionEngine) Value() uint8 {
	return uint8(e)
}
