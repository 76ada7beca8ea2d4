package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a testify mock of the Repository interface.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveEvent(ctx context.Context, event *Event) (*Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockRepository) GetEventById(ctx context.Context, id string) (*Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockRepository) UpdateEvent(ctx context.Context, id string, event *Event) (*Event, error) {
	args := m.Called(ctx, id, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockRepository) DeleteEvent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListEventsInRange(ctx context.Context, ownerType OwnerType, ownerId string, from, to time.Time) ([]Event, error) {
	args := m.Called(ctx, ownerType, ownerId, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockRepository) GetParticipantIds(ctx context.Context, eventId string) ([]string, error) {
	args := m.Called(ctx, eventId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) CountParticipants(ctx context.Context, eventId string) (int, error) {
	args := m.Called(ctx, eventId)
	return args.Int(0), args.Error(1)
}

func testContext(t *testing.T, method, target string, body any, actor *Actor) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reader = bytes.NewBufferString("")
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	}

	c.Request = httptest.NewRequest(method, target, reader)
	if actor != nil {
		c.Set(actorContextKey, *actor)
	}

	return c, w
}

func newTestHandlers(repo Repository, notifier *Notifier) Handlers {
	return NewHandlers(repo, notifier, nil, DefaultViewConfig(), time.UTC)
}

func TestHandlers_PostEvents(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	director := Actor{UserId: "u-director", Role: RoleDirector}

	valid := Event{
		Title:       "Atelier theatre",
		StartTime:   now,
		EndTime:     now.Add(time.Hour),
		TargetRoles: []Role{RoleAnimator},
	}

	tests := []struct {
		name           string
		body           any
		actor          *Actor
		mockReturn     *Event
		mockErr        error
		expectedStatus int
	}{
		{
			name:           "success",
			body:           valid,
			actor:          &director,
			mockReturn:     &Event{Id: "uuid-1", Title: valid.Title, StartTime: now, EndTime: now.Add(time.Hour)},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "no actor",
			body:           valid,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid json",
			body:           "not-json",
			actor:          &director,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation failure",
			body:           Event{Title: "", TargetRoles: []Role{RoleAnimator}},
			actor:          &director,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "repository failure",
			body:           valid,
			actor:          &director,
			mockErr:        errors.New("db error"),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockRepo := new(MockRepository)
			if tt.name == "success" || tt.name == "repository failure" {
				mockRepo.On("SaveEvent", mock.Anything, mock.Anything).Return(tt.mockReturn, tt.mockErr)
			}

			h := newTestHandlers(mockRepo, nil)
			c, w := testContext(t, http.MethodPost, "/events", tt.body, tt.actor)

			h.PostEvents(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockRepo.AssertExpectations(t)

			if tt.name == "success" {
				// The saved event carries the actor as its creator and the
				// pending/personal defaults.
				saved := mockRepo.Calls[0].Arguments.Get(1).(*Event)
				assert.Equal(t, "u-director", saved.CreatedBy)
				assert.Equal(t, StatusPending, saved.Status)
				assert.Equal(t, OwnerPersonal, saved.OwnerType)
				assert.Equal(t, "u-director", saved.OwnerId)
			}
		})
	}
}

func TestHandlers_GetEvents(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	from := now.Format(time.RFC3339)
	to := now.Add(24 * time.Hour).Format(time.RFC3339)

	animator := Actor{UserId: "u-anim", Role: RoleAnimator}

	stored := []Event{
		{Id: "e1", Title: "For animators", TargetRoles: []Role{RoleAnimator}},
		{Id: "e2", Title: "Directors only", TargetRoles: []Role{RoleDirector}},
	}

	t.Run("filters events the actor may not see", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerPersonal, "u-anim", mock.Anything, mock.Anything).
			Return(stored, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet, "/events?from="+from+"&to="+to, nil, &animator)

		h.GetEvents(c)

		require.Equal(t, http.StatusOK, w.Code)

		var got []Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "e1", got[0].Id)
		mockRepo.AssertExpectations(t)
	})

	t.Run("clas owner scope", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerClas, "clas-7", mock.Anything, mock.Anything).
			Return([]Event{}, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet,
			"/events?from="+from+"&to="+to+"&owner_type=clas&owner_id=clas-7", nil, &animator)

		h.GetEvents(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid range parameter", func(t *testing.T) {
		t.Parallel()

		h := newTestHandlers(new(MockRepository), nil)
		c, w := testContext(t, http.MethodGet, "/events?from=yesterday&to="+to, nil, &animator)

		h.GetEvents(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlers_GetEventById(t *testing.T) {
	t.Parallel()

	director := Actor{UserId: "u-dir", Role: RoleDirector}
	animator := Actor{UserId: "u-anim", Role: RoleAnimator}

	tests := []struct {
		name           string
		idParam        string
		actor          *Actor
		mockReturn     *Event
		mockErr        error
		expectedStatus int
	}{
		{
			name:           "success",
			idParam:        "e1",
			actor:          &director,
			mockReturn:     &Event{Id: "e1", Title: "Event", TargetRoles: []Role{RoleDirector}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found",
			idParam:        "e404",
			actor:          &director,
			mockErr:        ErrEventNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing id",
			idParam:        "",
			actor:          &director,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "repository error",
			idParam:        "e1",
			actor:          &director,
			mockErr:        errors.New("db error"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "hidden events read as not found",
			idParam:        "e1",
			actor:          &animator,
			mockReturn:     &Event{Id: "e1", CreatedBy: "someone-else", TargetRoles: []Role{RoleDirector}},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockRepo := new(MockRepository)
			if tt.idParam != "" {
				mockRepo.On("GetEventById", mock.Anything, tt.idParam).Return(tt.mockReturn, tt.mockErr)
			}

			h := newTestHandlers(mockRepo, nil)
			c, w := testContext(t, http.MethodGet, "/events/"+tt.idParam, nil, tt.actor)
			c.Params = []gin.Param{{Key: "id", Value: tt.idParam}}

			h.GetEventById(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestHandlers_PutEvents(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)

	current := &Event{
		Id:          "e1",
		Title:       "Atelier theatre",
		StartTime:   now,
		EndTime:     now.Add(time.Hour),
		TargetRoles: []Role{RoleAnimator},
		Status:      StatusConfirmed,
		OwnerType:   OwnerClas,
		OwnerId:     "clas-1",
		CreatedBy:   "u-dir",
	}

	update := Event{
		Title:       "Atelier theatre (salle B)",
		StartTime:   now,
		EndTime:     now.Add(time.Hour),
		TargetRoles: []Role{RoleAnimator},
	}

	t.Run("participants are snapshotted before the update and notified after", func(t *testing.T) {
		t.Parallel()

		updated := *current
		updated.Title = update.Title

		mockRepo := new(MockRepository)
		mockRepo.On("GetEventById", mock.Anything, "e1").Return(current, nil)
		mockRepo.On("GetParticipantIds", mock.Anything, "e1").Return([]string{"u-1", "u-2"}, nil)
		mockRepo.On("UpdateEvent", mock.Anything, "e1", mock.Anything).Return(&updated, nil)

		mailer := &recordingMailer{}
		h := newTestHandlers(mockRepo, NewNotifier(mailer, time.Millisecond))

		c, w := testContext(t, http.MethodPut, "/events/e1", update, nil)
		c.Params = []gin.Param{{Key: "id", Value: "e1"}}

		h.PutEvents(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Eventually(t, func() bool {
			sent := mailer.sentTo()
			return len(sent) == 2 && sent[0] == "u-1" && sent[1] == "u-2"
		}, time.Second, 5*time.Millisecond)

		// Owner and creator survive the update untouched.
		put := mockRepo.Calls[2].Arguments.Get(2).(*Event)
		assert.Equal(t, OwnerClas, put.OwnerType)
		assert.Equal(t, "clas-1", put.OwnerId)
		assert.Equal(t, "u-dir", put.CreatedBy)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown event", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("GetEventById", mock.Anything, "e404").Return(nil, ErrEventNotFound)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodPut, "/events/e404", update, nil)
		c.Params = []gin.Param{{Key: "id", Value: "e404"}}

		h.PutEvents(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Parallel()

		bad := update
		bad.Title = ""

		mockRepo := new(MockRepository)
		mockRepo.On("GetEventById", mock.Anything, "e1").Return(current, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodPut, "/events/e1", bad, nil)
		c.Params = []gin.Param{{Key: "id", Value: "e1"}}

		h.PutEvents(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestHandlers_DeleteEvents(t *testing.T) {
	t.Parallel()

	event := &Event{Id: "e1", Title: "Sortie velo", TargetRoles: []Role{RoleAnimator}}

	t.Run("success notifies the snapshot with a cancellation", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("GetEventById", mock.Anything, "e1").Return(event, nil)
		mockRepo.On("GetParticipantIds", mock.Anything, "e1").Return([]string{"u-9"}, nil)
		mockRepo.On("DeleteEvent", mock.Anything, "e1").Return(nil)

		mailer := &recordingMailer{}
		h := newTestHandlers(mockRepo, NewNotifier(mailer, time.Millisecond))

		c, w := testContext(t, http.MethodDelete, "/events/e1", nil, nil)
		c.Params = []gin.Param{{Key: "id", Value: "e1"}}

		h.DeleteEvents(c)
		c.Writer.WriteHeaderNow()

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Eventually(t, func() bool {
			return len(mailer.sentTo()) == 1
		}, time.Second, 5*time.Millisecond)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown event", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("GetEventById", mock.Anything, "e404").Return(nil, ErrEventNotFound)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodDelete, "/events/e404", nil, nil)
		c.Params = []gin.Param{{Key: "id", Value: "e404"}}

		h.DeleteEvents(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestHandlers_GetEventPermissions(t *testing.T) {
	t.Parallel()

	animator := Actor{UserId: "u-anim", Role: RoleAnimator}

	event := &Event{
		Id:          "e1",
		CreatedBy:   "u-anim",
		TargetRoles: []Role{RoleAnimator},
	}

	mockRepo := new(MockRepository)
	mockRepo.On("GetEventById", mock.Anything, "e1").Return(event, nil)
	mockRepo.On("CountParticipants", mock.Anything, "e1").Return(3, nil)

	h := newTestHandlers(mockRepo, nil)
	c, w := testContext(t, http.MethodGet, "/events/e1/permissions", nil, &animator)
	c.Params = []gin.Param{{Key: "id", Value: "e1"}}

	h.GetEventPermissions(c)

	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		CanView          bool     `json:"can_view"`
		CanEdit          Decision `json:"can_edit"`
		CanDelete        Decision `json:"can_delete"`
		ParticipantCount int      `json:"participant_count"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.CanView)
	assert.True(t, got.CanEdit.Allowed)
	assert.Equal(t, got.CanEdit, got.CanDelete)
	assert.Equal(t, 3, got.ParticipantCount)
	mockRepo.AssertExpectations(t)
}

func TestHandlers_Views(t *testing.T) {
	t.Parallel()

	director := Actor{UserId: "u-dir", Role: RoleDirector}

	t.Run("day view", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerPersonal, "u-dir", mock.Anything, mock.Anything).
			Return([]Event{}, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet, "/views/day?date=2025-03-10", nil, &director)

		h.GetDayView(c)

		require.Equal(t, http.StatusOK, w.Code)

		var view DayView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.True(t, view.Date.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))
		assert.Empty(t, view.Segments)
		mockRepo.AssertExpectations(t)
	})

	t.Run("week view fetches the whole week", func(t *testing.T) {
		t.Parallel()

		// 2025-03-12 is a Wednesday; the snapshot range is Mon..next Mon.
		weekStart := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerPersonal, "u-dir",
			weekStart, weekStart.AddDate(0, 0, 7)).
			Return([]Event{}, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet, "/views/week?date=2025-03-12&viewport_width=500", nil, &director)

		h.GetWeekView(c)

		require.Equal(t, http.StatusOK, w.Code)

		var view WeekView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.True(t, view.Narrow)
		assert.Len(t, view.Days, 3)
		mockRepo.AssertExpectations(t)
	})

	t.Run("month view", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerPersonal, "u-dir", mock.Anything, mock.Anything).
			Return([]Event{}, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet, "/views/month?date=2025-03-10", nil, &director)

		h.GetMonthView(c)

		require.Equal(t, http.StatusOK, w.Code)

		var view MonthView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Len(t, view.Weeks, 6)
		mockRepo.AssertExpectations(t)
	})

	t.Run("agenda view", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockRepository)
		mockRepo.On("ListEventsInRange", mock.Anything, OwnerPersonal, "u-dir", mock.Anything, mock.Anything).
			Return([]Event{}, nil)

		h := newTestHandlers(mockRepo, nil)
		c, w := testContext(t, http.MethodGet, "/views/agenda?lookahead=7d", nil, &director)

		h.GetAgendaView(c)

		require.Equal(t, http.StatusOK, w.Code)

		var view AgendaView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, Lookahead7Days, view.Lookahead)
		assert.Empty(t, view.Groups)
		mockRepo.AssertExpectations(t)
	})

	t.Run("bad date", func(t *testing.T) {
		t.Parallel()

		h := newTestHandlers(new(MockRepository), nil)
		c, w := testContext(t, http.MethodGet, "/views/day?date=next-tuesday", nil, &director)

		h.GetDayView(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
