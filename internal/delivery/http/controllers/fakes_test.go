package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

const (
	testEventID = "0b0c7f8e-5a0f-4c43-9f1e-1d1a6f0c2b11"
	testUserID  = "5d2b3c4a-1e2f-4a5b-8c9d-0e1f2a3b4c5d"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newRequest builds a request with an optional JSON body, authenticated user and path values.
func newRequest(t *testing.T, method, target string, body any, user *domain.User, pathValues map[string]string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, r)
	if user != nil {
		req = req.WithContext(middleware.SetUser(req.Context(), user))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// decodeEnvelope decodes the response into the envelope, unmarshalling data into out when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) *helpers.APIError {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Error
}

type fakeAttendeeService struct {
	register            func(eventID, userID string) (*domain.EventRegistration, error)
	cancel              func(eventID, userID, reason string) error
	forceRegister       func(eventID, userID string) (*domain.EventRegistration, bool, error)
	removeParticipant   func(eventID, userID, reason string) error
	markAttendance      func(actor *domain.User, eventID, userID string, status domain.RegistrationStatus) (*domain.EventRegistration, error)
	listMyRegistrations func(userID string) ([]*domain.EventRegistrationWithEvent, error)
	listParticipants    func(actor *domain.User, eventID string) ([]*domain.Participant, error)
}

func (f *fakeAttendeeService) Register(_ context.Context, eventID, userID string, _ time.Time) (*domain.EventRegistration, error) {
	return f.register(eventID, userID)
}

func (f *fakeAttendeeService) Cancel(_ context.Context, eventID, userID, reason string, _ time.Time) error {
	return f.cancel(eventID, userID, reason)
}

func (f *fakeAttendeeService) ForceRegister(_ context.Context, eventID, userID string, _ time.Time) (*domain.EventRegistration, bool, error) {
	return f.forceRegister(eventID, userID)
}

func (f *fakeAttendeeService) RemoveParticipant(_ context.Context, eventID, userID, reason string, _ time.Time) error {
	return f.removeParticipant(eventID, userID, reason)
}

func (f *fakeAttendeeService) MarkAttendance(_ context.Context, actor *domain.User, eventID, userID string, status domain.RegistrationStatus, _ time.Time) (*domain.EventRegistration, error) {
	return f.markAttendance(actor, eventID, userID, status)
}

func (f *fakeAttendeeService) ListMyRegistrations(_ context.Context, userID string, _ time.Time) ([]*domain.EventRegistrationWithEvent, error) {
	return f.listMyRegistrations(userID)
}

func (f *fakeAttendeeService) ListParticipants(_ context.Context, actor *domain.User, eventID string) ([]*domain.Participant, error) {
	return f.listParticipants(actor, eventID)
}

type fakeEventService struct {
	create func(actor *domain.User, input domain.EventInput) (*domain.Event, error)
	get    func(actor *domain.User, eventID string) (*domain.Event, error)
	list   func(actor *domain.User) ([]*domain.Event, error)
	update func(actor *domain.User, eventID string, update domain.EventUpdate) (*domain.Event, error)
	delete func(actor *domain.User, eventID string) error
}

func (f *fakeEventService) CreateEvent(_ context.Context, actor *domain.User, input domain.EventInput, _ time.Time) (*domain.Event, error) {
	return f.create(actor, input)
}

func (f *fakeEventService) GetEvent(_ context.Context, actor *domain.User, eventID string, _ time.Time) (*domain.Event, error) {
	return f.get(actor, eventID)
}

func (f *fakeEventService) ListEvents(_ context.Context, actor *domain.User, _ time.Time) ([]*domain.Event, error) {
	return f.list(actor)
}

func (f *fakeEventService) UpdateEvent(_ context.Context, actor *domain.User, eventID string, update domain.EventUpdate, _ time.Time) (*domain.Event, error) {
	return f.update(actor, eventID, update)
}

func (f *fakeEventService) DeleteEvent(_ context.Context, actor *domain.User, eventID string, _ time.Time) error {
	return f.delete(actor, eventID)
}

func (f *fakeEventService) ResolveAndPersist(_ context.Context, event *domain.Event, _ time.Time) (domain.EventStatus, error) {
	return event.Status, nil
}
