package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "tok", Timeout: 5 * time.Second})
}

func TestGetScheduleNormalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schedule/42", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("week"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		io.WriteString(w, `{"success":true,"data":{"weeks":[{"days":{
			"MON":{"lunch":{"id":1,"name":"A","calories":"450","protein":30,"fats":12.5,"category":"Lunch","dietary_tags":"almond, vegan"},
			       "dinner":null},
			"tuesday":{"snacks":{"id":"x9","name":"B","fat":3,"fats":99,"calories":null,"category":"snack","rating":5}},
			"funday":{"lunch":{"id":3}}
		}}]}}`)
	})

	s, err := c.GetSchedule(context.Background(), "42", 4)
	require.NoError(t, err)
	require.Len(t, s.Weeks, 1)
	assert.Len(t, s.Weeks[0].Days, 7)

	lunch := s.Weeks[0].Days["monday"]["lunch"]
	require.NotNil(t, lunch)
	assert.Equal(t, models.ID("1"), lunch.ID)
	assert.Equal(t, 450.0, lunch.Calories)
	assert.Equal(t, 12.5, lunch.Fat)
	assert.Equal(t, models.Lunch, lunch.Category)
	assert.Equal(t, []string{"almond", "vegan"}, lunch.DietaryTags)

	dinner, present := s.Weeks[0].Days["monday"]["dinner"]
	assert.True(t, present)
	assert.Nil(t, dinner)

	snack := s.Weeks[0].Days["tuesday"]["snacks"]
	require.NotNil(t, snack)
	assert.Equal(t, 3.0, snack.Fat)
	assert.Equal(t, 0.0, snack.Calories)
	assert.Equal(t, models.Snacks, snack.Category)
	assert.True(t, snack.Premium())
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"message":"Schedule not found"}`)
	})
	_, err := c.GetSchedule(context.Background(), "1", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Schedule not found", apiErr.Message)
}

func TestNotFoundInEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"No schedule found for user"}`)
	})
	_, err := c.GetSchedule(context.Background(), "1", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingUserIsNotAMissingSchedule(t *testing.T) {
	for _, tc := range []struct {
		status int
		body   string
	}{
		{http.StatusNotFound, `{"success":false,"message":"User not found"}`},
		{http.StatusOK, `{"success":false,"message":"user not found"}`},
		{http.StatusOK, `{"success":false,"message":"No user found with that id"}`},
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, tc.body)
		})
		_, err := c.GetSchedule(context.Background(), "1", 4)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound, tc.body)

		_, err = c.GetUser(context.Background(), "1")
		assert.ErrorIs(t, err, ErrNotFound, tc.body)
	}
}

func TestFailureEnvelopeIsRecoverableError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"meal locked"}`)
	})
	err := c.SwapMeals(context.Background(), "1", swap.Payload{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "meal locked")
}

func TestServerErrorWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	})
	_, err := c.GetUser(context.Background(), "1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestGenerateAndSwapBodies(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		switch r.URL.Path {
		case "/schedule/generate":
			io.WriteString(w, `{"success":true,"data":{"weeks":[{"days":{}},{"days":{}}]}}`)
		case "/schedule/swap-meals":
			io.WriteString(w, `{"success":true,"message":"swapped"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	s, err := c.GenerateSchedule(context.Background(), "7", 2)
	require.NoError(t, err)
	assert.Len(t, s.Weeks, 2)

	err = c.SwapMeals(context.Background(), "7", swap.Payload{
		SourceMeal: swap.Coordinate{WeekIndex: 0, DayKey: "monday", MealKey: "lunch", MealID: "5"},
		TargetMeal: swap.Coordinate{WeekIndex: 1, DayKey: "tuesday", MealKey: "lunch", MealID: "9"},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"userId": 7.0, "weeks": 2.0}, bodies[0])
	assert.Equal(t, map[string]any{
		"userId":     7.0,
		"sourceMeal": map[string]any{"weekIndex": 0.0, "dayKey": "monday", "mealKey": "lunch", "mealId": 5.0},
		"targetMeal": map[string]any{"weekIndex": 1.0, "dayKey": "tuesday", "mealKey": "lunch", "mealId": 9.0},
	}, bodies[1])
}

func TestListMealsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meals", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dinner", q.Get("category"))
		assert.Equal(t, "keto,vegan", q.Get("dietary_tags"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))
		io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Steak","fats":"20"}]}`)
	})
	meals, err := c.ListMeals(context.Background(), models.MealQuery{
		Category: "dinner", DietaryTags: []string{"keto", "vegan"}, Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, 20.0, meals[0].Fat)
}

func TestUserEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/phone/+15550100":
			io.WriteString(w, `{"success":true,"data":{"id":3,"selectedDays":["MON","WED"],"mealTypes":["lunch"],"allergies":["none"]}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/users/3":
			var upd models.UserUpdate
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&upd))
			assert.Equal(t, []string{"nuts"}, upd.Allergies)
			assert.Nil(t, upd.Plan)
			io.WriteString(w, `{"success":true,"data":{"id":3,"allergies":["nuts"]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	u, err := c.GetUserByPhone(context.Background(), "+15550100")
	require.NoError(t, err)
	assert.Equal(t, models.ID("3"), u.ID)
	assert.Equal(t, []string{"MON", "WED"}, u.SelectedDays)

	u, err = c.UpdateUser(context.Background(), "3", models.UserUpdate{Allergies: []string{"nuts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"nuts"}, u.Allergies)
}

func TestContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetUser(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitedClientStillServes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"id":1}}`)
	}))
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, RateLimit: 50, Burst: 2})
	for i := 0; i < 4; i++ {
		_, err := c.GetUser(context.Background(), "1")
		require.NoError(t, err)
	}
}
