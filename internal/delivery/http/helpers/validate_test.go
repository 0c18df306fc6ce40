package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Name string `json:"name"`
}

func (s *sampleRequest) Validate() []string {
	if s.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"name":"x"}`, true, http.StatusOK},
		{"unknown field", `{"name":"x","extra":1}`, false, http.StatusBadRequest},
		{"validation fails", `{"name":""}`, false, http.StatusBadRequest},
		{"malformed", `{`, false, http.StatusBadRequest},
		{"empty body", ``, false, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest sampleRequest
			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestDecodeOptionalAndValidate_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	rr := httptest.NewRecorder()
	var dest reasonRequest
	assert.True(t, DecodeOptionalAndValidate(rr, req, &dest))
	assert.Empty(t, dest.Reason)
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	var ok bool
	mux.HandleFunc("GET /events/{eventID}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = PathID(w, r, "eventID")
	})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/6F9619FF-8B86-D011-B42D-00C04FC964FF", nil))
	assert.True(t, ok)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", got)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/not-a-uuid", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
