package schedsync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsub/mealsub-cli/internal/allergy"
	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedule"
	"github.com/mealsub/mealsub-cli/internal/session"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

// fakeBackend stores one schedule and swaps slots the way the server does.
type fakeBackend struct {
	mu        sync.Mutex
	sched     *models.Schedule
	getErr    error
	swapErr   error
	gets      int
	generated []int
	block     chan struct{}
	entered   chan struct{}
}

func copySchedule(s *models.Schedule) *models.Schedule {
	out := &models.Schedule{UserID: s.UserID}
	for _, w := range s.Weeks {
		nw := models.Week{WeekNumber: w.WeekNumber, StartDate: w.StartDate, Days: map[string]models.Day{}}
		for name, day := range w.Days {
			nd := models.Day{}
			for key, m := range day {
				if m == nil {
					nd[key] = nil
					continue
				}
				c := m.Clone()
				nd[key] = &c
			}
			nw.Days[name] = nd
		}
		out.Weeks = append(out.Weeks, nw)
	}
	return out
}

func (f *fakeBackend) GetSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.sched == nil {
		return nil, &api.Error{Op: "get schedule", Status: 404, Message: "Schedule not found"}
	}
	return copySchedule(f.sched), nil
}

func (f *fakeBackend) GenerateSchedule(ctx context.Context, userID models.ID, weeks int) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, weeks)
	f.sched = &models.Schedule{UserID: userID, Weeks: make([]models.Week, weeks)}
	return copySchedule(f.sched), nil
}

func (f *fakeBackend) SwapMeals(ctx context.Context, userID models.ID, p swap.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swapErr != nil {
		return f.swapErr
	}
	src := f.sched.Weeks[p.SourceMeal.WeekIndex].Days[p.SourceMeal.DayKey]
	dst := f.sched.Weeks[p.TargetMeal.WeekIndex].Days[p.TargetMeal.DayKey]
	src[p.SourceMeal.MealKey], dst[p.TargetMeal.MealKey] = dst[p.TargetMeal.MealKey], src[p.SourceMeal.MealKey]
	return nil
}

func sampleSchedule() *models.Schedule {
	return &models.Schedule{UserID: "9", Weeks: []models.Week{{Days: map[string]models.Day{
		"monday": {
			"lunch":  {ID: "1", Name: "Meal A", Category: models.Lunch, DietaryTags: []string{"almond"}},
			"dinner": {ID: "2", Name: "Meal B", Category: models.Dinner},
		},
		"wednesday": {
			"dinner": {ID: "3", Name: "Meal C", Category: models.Dinner},
		},
		"friday": {},
	}}}}
}

func TestGetOrGenerateFetches(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 0, nil)

	got, err := s.GetOrGenerate(context.Background(), "9", 4)
	require.NoError(t, err)
	assert.Len(t, got.Weeks, 1)
	assert.Empty(t, b.generated)
}

func TestGetOrGenerateGeneratesOnNotFound(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, 0, nil)

	got, err := s.GetOrGenerate(context.Background(), "9", 3)
	require.NoError(t, err)
	assert.Len(t, got.Weeks, 3)
	assert.Equal(t, []int{3}, b.generated)
}

func TestGetOrGeneratePassesOtherErrors(t *testing.T) {
	boom := &api.Error{Op: "get schedule", Status: 500, Message: "database down"}
	b := &fakeBackend{getErr: boom}
	s := New(b, 0, nil)

	_, err := s.GetOrGenerate(context.Background(), "9", 4)
	assert.Same(t, boom, err)
	assert.Empty(t, b.generated)
}

func TestLoadUsesConfiguredWeeks(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, 12, nil)
	assert.Equal(t, 12, s.Weeks())

	got, err := s.Load(context.Background(), "9")
	require.NoError(t, err)
	assert.Same(t, got, s.Current())
	assert.Equal(t, []int{12}, b.generated)
}

func TestSwapThenRefetch(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)
	ctx := context.Background()

	cur, err := s.Load(ctx, "9")
	require.NoError(t, err)

	r := swap.NewResolver(schedule.NewIndex(cur), swap.Options{RequireSameCategory: true})
	p, err := r.Prepare(
		swap.Coordinate{WeekIndex: 0, DayKey: "MON", MealKey: "dinner"},
		swap.Coordinate{WeekIndex: 0, DayKey: "WED", MealKey: "dinner"},
	)
	require.NoError(t, err)
	assert.Equal(t, models.ID("2"), p.SourceMeal.MealID)
	assert.Equal(t, models.ID("3"), p.TargetMeal.MealID)

	after, err := s.ApplySwap(ctx, "9", p)
	require.NoError(t, err)
	assert.Equal(t, models.ID("3"), after.Weeks[0].Days["monday"]["dinner"].ID)
	assert.Equal(t, models.ID("2"), after.Weeks[0].Days["wednesday"]["dinner"].ID)
	assert.Same(t, after, s.Current())
	assert.Equal(t, 2, b.gets)
}

func TestRejectedSwapKeepsCurrent(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)
	ctx := context.Background()

	before, err := s.Load(ctx, "9")
	require.NoError(t, err)

	b.swapErr = &api.Error{Op: "swap meals", Message: "meal locked"}
	_, err = s.ApplySwap(ctx, "9", swap.Payload{})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "meal locked", apiErr.Message)
	assert.Same(t, before, s.Current())
	assert.Equal(t, 1, b.gets)
}

func TestInvalidateDiscardsInFlightLoad(t *testing.T) {
	b := &fakeBackend{
		sched:   sampleSchedule(),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := New(b, 1, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "9")
		done <- err
	}()

	<-b.entered
	s.Invalidate()
	close(b.block)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Nil(t, s.Current())
}

func TestNewerLoadWins(t *testing.T) {
	b := &fakeBackend{
		sched:   sampleSchedule(),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := New(b, 1, nil)

	first := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "9")
		first <- err
	}()
	<-b.entered

	second := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "9")
		second <- err
	}()
	<-b.entered

	close(b.block)
	assert.ErrorIs(t, <-first, ErrStale)
	assert.NoError(t, <-second)
	assert.NotNil(t, s.Current())
}

func TestSubscriberDayScenario(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)

	sched, err := s.Load(context.Background(), "9")
	require.NoError(t, err)

	sess, err := session.FromUser(models.User{
		ID:           "9",
		SelectedDays: []string{"MON", "WED", "FRI"},
		MealTypes:    []string{"lunch", "dinner"},
		Allergies:    []string{"nuts"},
	})
	require.NoError(t, err)

	ix := schedule.NewIndex(sched)
	lunch := ix.MealsForCategory(0, "monday", models.Lunch)
	require.Len(t, lunch, 1)
	assert.Equal(t, "Meal A", lunch[0].Name)

	dinner := ix.MealsForCategory(0, "monday", models.Dinner)
	require.Len(t, dinner, 1)

	safe := allergy.FilterMeals([]models.Meal{lunch[0], dinner[0]}, sess.Allergies)
	require.Len(t, safe, 1)
	assert.Equal(t, "Meal B", safe[0].Name)
}

type fakeUsers struct {
	user *models.User
	err  error
}

func (f fakeUsers) GetUser(ctx context.Context, id models.ID) (*models.User, error) {
	return f.user, f.err
}

func TestLoadSubscriber(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)
	users := fakeUsers{user: &models.User{
		ID:           "9",
		SelectedDays: []string{"FRI", "MON"},
		MealTypes:    []string{"dinner"},
	}}

	sess, sched, err := s.LoadSubscriber(context.Background(), users, "9")
	require.NoError(t, err)
	assert.Equal(t, []string{"monday", "friday"}, sess.SelectedDays)
	assert.Same(t, sched, s.Current())
}

func TestLoadSubscriberUserError(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)
	missing := &api.Error{Op: "get user", Status: 404, Message: "User not found"}

	_, _, err := s.LoadSubscriber(context.Background(), fakeUsers{err: missing}, "9")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestLoadSubscriberBadDays(t *testing.T) {
	b := &fakeBackend{sched: sampleSchedule()}
	s := New(b, 1, nil)
	users := fakeUsers{user: &models.User{ID: "9", SelectedDays: []string{"MOX"}, MealTypes: []string{"lunch"}}}

	_, _, err := s.LoadSubscriber(context.Background(), users, "9")
	assert.Error(t, err)
}
