package msgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymail/relaymail/internal/domain"
)

func TestSendAcceptedIsSuccess(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSenderWithBaseURL(srv.Client(), srv.URL)
	err := sender.Send(context.Background(), "tok", "from@x.com", "to@x.com", "Subject", "Body text")
	require.NoError(t, err)

	assert.Equal(t, "/users/from@x.com/sendMail", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &envelope))
	assert.Equal(t, false, envelope["saveToSentItems"])
}

func TestSendNonAcceptedIsSendError(t *testing.T) {
	// 200 OK is not the sendMail success contract; only 202 is.
	for _, status := range []int{200, 400, 401, 429, 500} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("provider says no"))
		}))

		sender := NewSenderWithBaseURL(srv.Client(), srv.URL)
		err := sender.Send(context.Background(), "tok", "from@x.com", "to@x.com", "S", "B")

		var sendErr *domain.SendError
		require.ErrorAs(t, err, &sendErr, "status %d", status)
		assert.Equal(t, status, sendErr.Status)
		assert.Equal(t, "provider says no", sendErr.Body)

		srv.Close()
	}
}
