package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSMSSenderPostsForm(t *testing.T) {
	t.Parallel()

	var (
		gotPath, gotTo, gotFrom, gotBody string
		gotUser, gotPass                 string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	sender := NewSMSSender(SMSSenderConfig{
		GatewayURL: srv.URL + "/Accounts/{sid}/Messages.json",
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550100",
		Timeout:    time.Second,
	}, zaptest.NewLogger(t))

	require.NoError(t, sender.Send(context.Background(), "+15550001", "hello"))
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+15550001", gotTo)
	assert.Equal(t, "+15550100", gotFrom)
	assert.Equal(t, "hello", gotBody)
}

func TestSMSSenderReportsGatewayErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	sender := NewSMSSender(SMSSenderConfig{
		GatewayURL: srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550100",
	}, zaptest.NewLogger(t))

	err := sender.Send(context.Background(), "+15550001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSMSSenderNotConfigured(t *testing.T) {
	t.Parallel()

	sender := NewSMSSender(SMSSenderConfig{GatewayURL: "http://localhost"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, sender.Send(context.Background(), "+15550001", "hello"), ErrSenderNotConfigured)
}

func TestMaskAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "********0001", maskAddress("+15555550001"))
	assert.Equal(t, "***", maskAddress("123"))
}
