package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_NotConfigured(t *testing.T) {
	v := NewVerifier("")

	result := v.Verify(context.Background(), "some-token", "")
	assert.False(t, result.OK)
	assert.Equal(t, CodeNotConfigured, result.Code)
}

func TestVerify_TokenRequired(t *testing.T) {
	v := NewVerifier("secret")

	result := v.Verify(context.Background(), "", "203.0.113.9")
	assert.False(t, result.OK)
	assert.Equal(t, CodeTokenRequired, result.Code)
}

func TestVerify_Success(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"secret":   r.PostFormValue("secret"),
			"response": r.PostFormValue("response"),
			"remoteip": r.PostFormValue("remoteip"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "tok-123", "203.0.113.9")
	assert.True(t, result.OK)
	assert.Equal(t, "test-secret", gotForm["secret"])
	assert.Equal(t, "tok-123", gotForm["response"])
	assert.Equal(t, "203.0.113.9", gotForm["remoteip"])
}

func TestVerify_OmitsUnknownIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["remoteip"]
		assert.False(t, present, "remoteip should be omitted when unknown")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "tok-123", "")
	assert.True(t, result.OK)
}

func TestVerify_ChallengeFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response","timeout-or-duplicate"]}`))
	}))
	defer srv.Close()

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "bad-token", "")
	assert.False(t, result.OK)
	assert.Equal(t, CodeInvalid, result.Code)
	assert.Contains(t, result.Message, "invalid-input-response, timeout-or-duplicate")
}

func TestVerify_ChallengeFailedWithoutCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "bad-token", "")
	assert.False(t, result.OK)
	assert.Equal(t, CodeInvalid, result.Code)
	assert.Contains(t, result.Message, "unknown")
}

func TestVerify_ServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "tok", "")
	assert.False(t, result.OK)
	assert.Equal(t, CodeUnavailable, result.Code)
}

func TestVerify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	v := NewVerifier("test-secret", WithVerifyURL(srv.URL))

	result := v.Verify(context.Background(), "tok", "")
	assert.False(t, result.OK)
	assert.Equal(t, CodeUnreachable, result.Code)
}
