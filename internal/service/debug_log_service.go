package service

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"
)

// DefaultDebugLogLimit is the number of entries returned when no limit is given.
const DefaultDebugLogLimit = 100

// DebugLogService exposes the in-memory log ring.
type DebugLogService interface {
	Entries(level string, limit int) ([]logger.Entry, error)
	Clear() int
}

type debugLogService struct {
	ring *logger.Ring
}

func NewDebugLogService(ring *logger.Ring) DebugLogService {
	return &debugLogService{ring: ring}
}

// Entries returns the newest entries at or above level, oldest first.
func (s *debugLogService) Entries(level string, limit int) ([]logger.Entry, error) {
	min, err := logger.ParseLevel(level)
	if err != nil {
		return nil, domain.NewValidationError("level", err.Error())
	}
	if limit <= 0 {
		limit = DefaultDebugLogLimit
	}
	return s.ring.Entries(min, limit), nil
}

// Clear empties the ring and returns how many entries were dropped.
func (s *debugLogService) Clear() int {
	n := s.ring.Len()
	s.ring.Clear()
	return n
}
