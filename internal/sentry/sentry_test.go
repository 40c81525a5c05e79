package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_EmptyToken(t *testing.T) {
	t.Parallel()

	err := Initialize(Config{Token: ""})
	require.NoError(t, err)
}

func TestInitialize_MissingHost(t *testing.T) {
	t.Parallel()

	err := Initialize(Config{Token: "test-token", Host: ""})
	assert.Error(t, err)
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Sentry uses global state

	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
		Release:     "ptc-frontdesk@test",
		SampleRate:  1.0,
	})
	require.NoError(t, err)
	assert.True(t, IsEnabled())

	// nil errors are ignored
	CaptureException(context.Background(), nil, nil)
	Flush(time.Second)
}

func TestFlush(t *testing.T) {
	t.Parallel()

	// no panic and bounded when nothing is pending
	_ = Flush(100 * time.Millisecond)
}

func TestScrubEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		Request: &sentry.Request{
			URL:         "https://example.com/admin/stats",
			Data:        `{"message":"Ich heiße Anna, 0151 2345678"}`,
			Cookies:     "session=abc",
			QueryString: "admin=secret&limit=5",
			Headers: map[string]string{
				"Authorization":    "Basic xyz",
				"X-Line-Signature": "sig",
				"User-Agent":       "curl",
			},
		},
	}

	got := scrubEvent(event, nil)
	require.NotNil(t, got)
	assert.Empty(t, got.Request.Data)
	assert.Empty(t, got.Request.Cookies)
	assert.Equal(t, "admin=%5Bfiltered%5D&limit=5", got.Request.QueryString)
	assert.NotContains(t, got.Request.Headers, "Authorization")
	assert.NotContains(t, got.Request.Headers, "X-Line-Signature")
	assert.Equal(t, "curl", got.Request.Headers["User-Agent"])
}

func TestScrubEvent_NoRequest(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event, nil))
	assert.Nil(t, scrubEvent(nil, nil))
}

func TestScrubQuery(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scrubQuery(""))
	assert.Equal(t, "limit=5", scrubQuery("limit=5"))
	assert.Empty(t, scrubQuery("%zz"))
}

func TestCaptureException_NoPanicWithoutHub(t *testing.T) {
	t.Parallel()

	CaptureException(context.Background(), errors.New("store down"), map[string]string{"module": "bot"})
}
