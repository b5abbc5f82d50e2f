package platform

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaymentType(t *testing.T) {
	tests := []struct {
		name     string
		jobKind  string
		budget   int64
		expected string
	}{
		{
			name:     "fixed with budget",
			jobKind:  domain.JobKindFixed,
			budget:   500,
			expected: "fixed_price",
		},
		{
			name:     "hourly with budget",
			jobKind:  domain.JobKindHourly,
			budget:   50,
			expected: "hourly",
		},
		{
			name:     "fixed with zero budget submits hourly",
			jobKind:  domain.JobKindFixed,
			budget:   0,
			expected: "hourly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, paymentType(tt.jobKind, tt.budget))
		})
	}
}

func TestClient_Submit(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proposals", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for key := range r.PostForm {
			gotForm[key] = r.PostForm.Get(key)
		}

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL}, testLogger())

	err := client.Submit(context.Background(), &SubmitRequest{
		AuthToken: "csrf-token",
		Cookie:    "session=abc",
		PostingID: 100,
		JobKind:   domain.JobKindFixed,
		Budget:    800,
		HourCap:   20,
		BidText:   "I can deliver this.",
	})
	require.NoError(t, err)

	assert.Equal(t, "csrf-token", gotForm["authenticity_token"])
	assert.Equal(t, "fixed_price", gotForm["proposal[conditions_attributes][0][payment_type]"])
	assert.Equal(t, "800", gotForm["proposal[conditions_attributes][0][milestones_attributes][0][amount_without_sales_tax]"])
	assert.Equal(t, "800", gotForm["proposal[conditions_attributes][0][hourly_wage_without_sales_tax]"])
	assert.Equal(t, "20", gotForm["proposal[conditions_attributes][0][hours_limit]"])
	assert.Equal(t, "I can deliver this.", gotForm["proposal[conditions_attributes][0][message_attributes][body]"])
	assert.Equal(t, "100", gotForm["proposal[job_offer_id]"])
}

func TestClient_Submit_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL}, testLogger())

	err := client.Submit(context.Background(), &SubmitRequest{PostingID: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission status 422")
}
