package memory

import (
	"sync"

	"arenacore/internal/app/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu        sync.RWMutex
	decisions map[uuid.UUID][]ports.DecisionRecord
	// perAgent caps retained records per agent; zero keeps everything.
	perAgent int
}

func NewStore(perAgent int) *Store {
	return &Store{
		decisions: make(map[uuid.UUID][]ports.DecisionRecord),
		perAgent:  perAgent,
	}
}
