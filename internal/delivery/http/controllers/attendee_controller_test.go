package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
	"eventhub/internal/registration"
)

func TestAttendeeController_Register(t *testing.T) {
	user := &domain.User{ID: testUserID, Role: domain.RoleUser, IsActive: true}

	tests := []struct {
		name       string
		eventID    string
		user       *domain.User
		svcErr     error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "created", eventID: testEventID, user: user, wantStatus: http.StatusCreated},
		{name: "unauthenticated", eventID: testEventID, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "invalid event id", eventID: "nope", user: user, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "event full", eventID: testEventID, user: user, svcErr: registration.Deny(registration.EventFull), wantStatus: http.StatusUnprocessableEntity, wantCode: "event_full", wantMsg: registration.EventFull.Message()},
		{name: "schedule conflict", eventID: testEventID, user: user, svcErr: registration.Deny(registration.ScheduleConflict), wantStatus: http.StatusUnprocessableEntity, wantCode: "schedule_conflict"},
		{name: "already registered", eventID: testEventID, user: user, svcErr: registration.Deny(registration.AlreadyRegistered), wantStatus: http.StatusUnprocessableEntity, wantCode: "already_registered"},
		{name: "inactive user", eventID: testEventID, user: user, svcErr: registration.Deny(registration.UserInactive), wantStatus: http.StatusUnprocessableEntity, wantCode: "user_inactive"},
		{name: "not open", eventID: testEventID, user: user, svcErr: registration.Deny(registration.EventNotOpen), wantStatus: http.StatusUnprocessableEntity, wantCode: "event_not_open"},
		{name: "missing event", eventID: testEventID, user: user, svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "lock timeout", eventID: testEventID, user: user, svcErr: &registration.Fault{Stage: "lock", Err: domain.ErrLockTimeout}, wantStatus: http.StatusServiceUnavailable, wantCode: "retry_later"},
		{name: "fault", eventID: testEventID, user: user, svcErr: &registration.Fault{Stage: "transaction", Err: errors.New("disk full")}, wantStatus: http.StatusInternalServerError, wantCode: "internal_error", wantMsg: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEvent, gotUser string
			svc := &fakeAttendeeService{register: func(eventID, userID string) (*domain.EventRegistration, error) {
				gotEvent, gotUser = eventID, userID
				if tt.svcErr != nil {
					return nil, tt.svcErr
				}
				return &domain.EventRegistration{ID: "r1", EventID: eventID, UserID: userID, Status: domain.RegistrationRegistered}, nil
			}}
			ctrl := NewAttendeeController(testLogger(), svc)
			req := newRequest(t, http.MethodPost, "/events/"+tt.eventID+"/register", nil, tt.user, map[string]string{"eventID": tt.eventID})
			rr := httptest.NewRecorder()

			ctrl.Register(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode == "" {
				var reg domain.EventRegistration
				assert.Nil(t, decodeEnvelope(t, rr, &reg))
				assert.Equal(t, domain.RegistrationRegistered, reg.Status)
				assert.Equal(t, testEventID, gotEvent)
				assert.Equal(t, testUserID, gotUser)
				return
			}
			apiErr := decodeEnvelope(t, rr, nil)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestAttendeeController_CancelRegistration(t *testing.T) {
	user := &domain.User{ID: testUserID, Role: domain.RoleUser}

	t.Run("without body", func(t *testing.T) {
		var gotReason = "unset"
		svc := &fakeAttendeeService{cancel: func(eventID, userID, reason string) error {
			gotReason = reason
			return nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).CancelRegistration(rr,
			newRequest(t, http.MethodPost, "/", nil, user, map[string]string{"eventID": testEventID}))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp CancelRegistrationResponse
		decodeEnvelope(t, rr, &resp)
		assert.Equal(t, domain.RegistrationCancelled, resp.Status)
		assert.Empty(t, gotReason)
	})

	t.Run("with reason", func(t *testing.T) {
		var gotReason string
		svc := &fakeAttendeeService{cancel: func(eventID, userID, reason string) error {
			gotReason = reason
			return nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).CancelRegistration(rr,
			newRequest(t, http.MethodPost, "/", CancelRegistrationRequest{Reason: "sick"}, user, map[string]string{"eventID": testEventID}))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "sick", gotReason)
	})

	t.Run("no active registration", func(t *testing.T) {
		svc := &fakeAttendeeService{cancel: func(string, string, string) error { return domain.ErrNotFound }}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).CancelRegistration(rr,
			newRequest(t, http.MethodPost, "/", nil, user, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAttendeeController_ForceRegister(t *testing.T) {
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}

	tests := []struct {
		name       string
		body       any
		created    bool
		svcErr     error
		wantStatus int
	}{
		{"created", ParticipantRequest{UserID: testUserID}, true, nil, http.StatusCreated},
		{"already registered", ParticipantRequest{UserID: testUserID}, false, nil, http.StatusOK},
		{"bad user id", ParticipantRequest{UserID: "x"}, false, nil, http.StatusBadRequest},
		{"closed event", ParticipantRequest{UserID: testUserID}, false, registration.Deny(registration.EventNotOpen), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAttendeeService{forceRegister: func(eventID, userID string) (*domain.EventRegistration, bool, error) {
				if tt.svcErr != nil {
					return nil, false, tt.svcErr
				}
				return &domain.EventRegistration{ID: "r1", EventID: eventID, UserID: userID, Status: domain.RegistrationRegistered}, tt.created, nil
			}}
			rr := httptest.NewRecorder()
			NewAttendeeController(testLogger(), svc).ForceRegister(rr,
				newRequest(t, http.MethodPost, "/", tt.body, admin, map[string]string{"eventID": testEventID}))
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestAttendeeController_RemoveParticipant(t *testing.T) {
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}

	t.Run("reason required", func(t *testing.T) {
		svc := &fakeAttendeeService{removeParticipant: func(string, string, string) error {
			t.Fatal("service must not be called")
			return nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).RemoveParticipant(rr,
			newRequest(t, http.MethodDelete, "/", RemoveParticipantRequest{UserID: testUserID, Reason: "  "}, admin, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("removed", func(t *testing.T) {
		var gotReason string
		svc := &fakeAttendeeService{removeParticipant: func(eventID, userID, reason string) error {
			gotReason = reason
			return nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).RemoveParticipant(rr,
			newRequest(t, http.MethodDelete, "/", RemoveParticipantRequest{UserID: testUserID, Reason: "spam"}, admin, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "spam", gotReason)
	})
}

func TestAttendeeController_MarkAttendance(t *testing.T) {
	organizer := &domain.User{ID: "org", Role: domain.RoleOrganizer}

	t.Run("rejects other statuses", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), &fakeAttendeeService{}).MarkAttendance(rr,
			newRequest(t, http.MethodPost, "/", AttendanceRequest{UserID: testUserID, Status: "cancelled"}, organizer, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc := &fakeAttendeeService{markAttendance: func(*domain.User, string, string, domain.RegistrationStatus) (*domain.EventRegistration, error) {
			return nil, domain.ErrForbidden
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).MarkAttendance(rr,
			newRequest(t, http.MethodPost, "/", AttendanceRequest{UserID: testUserID, Status: "attended"}, organizer, map[string]string{"eventID": testEventID}))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("marked", func(t *testing.T) {
		svc := &fakeAttendeeService{markAttendance: func(actor *domain.User, eventID, userID string, status domain.RegistrationStatus) (*domain.EventRegistration, error) {
			assert.Equal(t, organizer, actor)
			return &domain.EventRegistration{ID: "r1", EventID: eventID, UserID: userID, Status: status}, nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).MarkAttendance(rr,
			newRequest(t, http.MethodPost, "/", AttendanceRequest{UserID: testUserID, Status: "no_show"}, organizer, map[string]string{"eventID": testEventID}))
		require.Equal(t, http.StatusOK, rr.Code)
		var reg domain.EventRegistration
		decodeEnvelope(t, rr, &reg)
		assert.Equal(t, domain.RegistrationNoShow, reg.Status)
	})
}

func TestAttendeeController_Listings(t *testing.T) {
	user := &domain.User{ID: testUserID, Role: domain.RoleUser}

	t.Run("my registrations empty is an array", func(t *testing.T) {
		svc := &fakeAttendeeService{listMyRegistrations: func(string) ([]*domain.EventRegistrationWithEvent, error) { return nil, nil }}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).ListMyRegistrations(rr, newRequest(t, http.MethodGet, "/me/registrations", nil, user, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"data":[],"error":null}`, rr.Body.String())
	})

	t.Run("participants", func(t *testing.T) {
		svc := &fakeAttendeeService{listParticipants: func(_ *domain.User, eventID string) ([]*domain.Participant, error) {
			return []*domain.Participant{{Registration: &domain.EventRegistration{ID: "r1", EventID: eventID}, UserName: "Ana", UserEmail: "ana@example.com"}}, nil
		}}
		rr := httptest.NewRecorder()
		NewAttendeeController(testLogger(), svc).ListParticipants(rr,
			newRequest(t, http.MethodGet, "/", nil, user, map[string]string{"eventID": testEventID}))
		require.Equal(t, http.StatusOK, rr.Code)
		var got []domain.Participant
		decodeEnvelope(t, rr, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "ana@example.com", got[0].UserEmail)
	})
}
