// Package schedsync keeps one screen's copy of a schedule in step with the
// backend: fetch or generate, swap then re-fetch, and drop results that a
// newer request has superseded.
//
// There are no retries here. Retrying is the caller's decision.
package schedsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

// ErrStale is returned when a result arrived after a newer request or an
// Invalidate; the result was not applied.
var ErrStale = errors.New("schedule result superseded")

const DefaultWeeks = 4

// Backend is the part of the REST API the sync needs.
type Backend interface {
	GetSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error)
	GenerateSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error)
	SwapMeals(ctx context.Context, userID models.ID, p swap.Payload) error
}

type Sync struct {
	backend Backend
	weeks   int
	log     *slog.Logger

	mu      sync.Mutex
	gen     uint64
	current *models.Schedule
}

func New(backend Backend, weeks int, logger *slog.Logger) *Sync {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sync{backend: backend, weeks: weeks, log: logger}
}

// Weeks is the horizon requested on fetch and generate.
func (s *Sync) Weeks() int { return s.weeks }

// GetOrGenerate fetches the schedule and, only if the backend says it does not
// exist, generates one. Other errors are returned as they came.
func (s *Sync) GetOrGenerate(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error) {
	sched, err := s.backend.GetSchedule(ctx, userID, weeks)
	if err == nil {
		return sched, nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return nil, err
	}
	s.log.Info("no schedule yet, generating", "user", userID, "weeks", weeks)
	return s.backend.GenerateSchedule(ctx, userID, weeks)
}

func (s *Sync) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *Sync) commit(gen uint64, sched *models.Schedule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.current = sched
	return true
}

// Invalidate discards the result of every request still in flight.
func (s *Sync) Invalidate() {
	s.begin()
}

// Current is the last committed schedule, or nil.
func (s *Sync) Current() *models.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load fetches (or generates) the schedule and makes it current. A load
// superseded while in flight returns ErrStale and changes nothing.
func (s *Sync) Load(ctx context.Context, userID models.ID) (*models.Schedule, error) {
	gen := s.begin()
	sched, err := s.GetOrGenerate(ctx, userID, s.weeks)
	if err != nil {
		return nil, err
	}
	if !s.commit(gen, sched) {
		s.log.Info("discarding stale schedule", "user", userID)
		return nil, ErrStale
	}
	return sched, nil
}

// ApplySwap sends the swap and, once the backend accepts it, re-fetches the
// schedule and makes that current. A rejected swap leaves the current
// schedule untouched and returns the backend's error unchanged.
func (s *Sync) ApplySwap(ctx context.Context, userID models.ID, p swap.Payload) (*models.Schedule, error) {
	gen := s.begin()
	if err := s.backend.SwapMeals(ctx, userID, p); err != nil {
		s.log.Info("swap rejected", "user", userID, "source", p.SourceMeal.String(), "target", p.TargetMeal.String(), "err", err)
		return nil, err
	}
	s.log.Info("swap applied", "user", userID, "source", p.SourceMeal.String(), "target", p.TargetMeal.String())
	sched, err := s.GetOrGenerate(ctx, userID, s.weeks)
	if err != nil {
		return nil, err
	}
	if !s.commit(gen, sched) {
		s.log.Info("discarding stale schedule after swap", "user", userID)
		return nil, ErrStale
	}
	return sched, nil
}
