package schedsync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/session"
)

// UserSource looks up a subscriber.
type UserSource interface {
	GetUser(ctx context.Context, id models.ID) (*models.User, error)
}

// LoadSubscriber fetches the user and loads the schedule concurrently, then
// builds the session. The first error cancels the other request.
func (s *Sync) LoadSubscriber(ctx context.Context, users UserSource, id models.ID) (session.Session, *models.Schedule, error) {
	var (
		user  *models.User
		sched *models.Schedule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := users.GetUser(gctx, id)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		sc, err := s.Load(gctx, id)
		if err != nil {
			return err
		}
		sched = sc
		return nil
	})
	if err := g.Wait(); err != nil {
		return session.Session{}, nil, err
	}
	sess, err := session.FromUser(*user)
	if err != nil {
		return session.Session{}, nil, err
	}
	return sess, sched, nil
}
