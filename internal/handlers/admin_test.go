package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"communityd/internal/adminauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// login performs an admin login and returns the session cookie.
func login(t *testing.T, f *fixture, password string) *http.Cookie {
	t.Helper()

	rec := doJSON(t, f.handler.HandleAdminLogin, http.MethodPost, "/api/admin/login", "",
		map[string]string{"password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == adminauth.CookieName {
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

// doAdmin performs a request with the given session cookie attached.
func doAdmin(t *testing.T, handler http.HandlerFunc, method, target string, cookie *http.Cookie, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)

	t.Run("missing password", func(t *testing.T) {
		rec := doJSON(t, f.handler.HandleAdminLogin, http.MethodPost, "/api/admin/login", "",
			map[string]string{}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_PASSWORD", errCode(t, rec))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, f.handler.HandleAdminLogin, http.MethodPost, "/api/admin/login", "",
			map[string]string{"password": "guess"}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errCode(t, rec))
	})

	t.Run("correct password sets cookie", func(t *testing.T) {
		cookie := login(t, f, "correct-horse")
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})
}

func TestAdminLogin_NotConfigured(t *testing.T) {
	f := newFixture(t)
	f.handler.auth = adminauth.New("", "", false)

	rec := doJSON(t, f.handler.HandleAdminLogin, http.MethodPost, "/api/admin/login", "",
		map[string]string{"password": "anything"}, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ADMIN_NOT_CONFIGURED", errCode(t, rec))
}

func TestAdminLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t)

	rec := doAdmin(t, f.handler.HandleAdminLogout, http.MethodPost, "/api/admin/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminauth.CookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestModerationQueue_RequiresSession(t *testing.T) {
	f := newFixture(t)

	rec := doAdmin(t, f.handler.HandleModerationQueue, http.MethodGet, "/api/admin/moderation", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errCode(t, rec))

	tampered := &http.Cookie{Name: adminauth.CookieName, Value: "12345.deadbeef"}
	rec = doAdmin(t, f.handler.HandleModerationQueue, http.MethodGet, "/api/admin/moderation", tampered, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestModerationQueue_ListsPendingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	post, err := f.store.InsertPendingPost(ctx, "en", "Queue post", "Awaiting a moderator.", "")
	require.NoError(t, err)
	_, err = f.store.InsertPendingAsk(ctx, "zh-CN", "Queue ask", "A pending question body.", "")
	require.NoError(t, err)

	cookie := login(t, f, "correct-horse")
	rec := doAdmin(t, f.handler.HandleModerationQueue, http.MethodGet, "/api/admin/moderation", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var queue struct {
		Posts struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Total int `json:"total"`
		} `json:"posts"`
		Comments struct {
			Total int `json:"total"`
		} `json:"comments"`
		Asks struct {
			Total int `json:"total"`
		} `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Equal(t, 1, queue.Posts.Total)
	assert.Equal(t, post.ID, queue.Posts.Items[0].ID)
	assert.Equal(t, 0, queue.Comments.Total)
	assert.Equal(t, 1, queue.Asks.Total)
}

func TestModerationAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cookie := login(t, f, "correct-horse")

	post, err := f.store.InsertPendingPost(ctx, "en", "Actionable", "To be published by an admin.", "")
	require.NoError(t, err)

	t.Run("requires session", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", nil,
			map[string]string{"entity": "posts", "id": post.ID, "action": "publish"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid entity", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "users", "id": post.ID, "action": "publish"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ENTITY", errCode(t, rec))
	})

	t.Run("invalid action", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "posts", "id": post.ID, "action": "delete"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ACTION", errCode(t, rec))
	})

	t.Run("missing id", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "posts", "action": "publish"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ID", errCode(t, rec))
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "posts", "id": "no-such-id", "action": "publish"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", errCode(t, rec))
	})

	t.Run("publish then hide", func(t *testing.T) {
		rec := doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "posts", "id": post.ID, "action": "publish"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result struct {
			OK   bool `json:"ok"`
			Item struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"item"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.OK)
		assert.Equal(t, post.ID, result.Item.ID)
		assert.Equal(t, "published", result.Item.Status)

		rec = doAdmin(t, f.handler.HandleModerationAction, http.MethodPost, "/api/admin/moderation/action", cookie,
			map[string]string{"entity": "posts", "id": post.ID, "action": "hide"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "hidden", result.Item.Status)
	})
}
