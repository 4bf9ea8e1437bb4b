package detectionRepository

import (
	"github.com/sirupsen/logrus"
)

// SessionRegistry owns every live face detection session. Its key set is exactly the
// set of ids that received a start and no close yet.
type SessionRegistry interface {
	GetOrCreate(id string) (*Session, bool)
	Lookup(id string) (*Session, bool)
	Remove(id string) (*Session, bool)
	Len() int
	Sessions() []*Session
}

func New(log *logrus.Logger) SessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*Session),
		log:      log,
	}
}
