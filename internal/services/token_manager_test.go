package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.MigrateShared(db))
	return db
}

// tokenServer is a fake OAuth token endpoint. An empty response body makes
// it answer invalid_grant.
type tokenServer struct {
	*httptest.Server
	mu    sync.Mutex
	body  string
	calls int
}

func newTokenServer(t *testing.T, body string) *tokenServer {
	ts := &tokenServer{body: body}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.calls++
		w.Header().Set("Content-Type", "application/json")
		if ts.body == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(ts.body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func oauthConfigFor(ts *tokenServer) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   ts.URL + "/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://localhost/callback",
	}
}

type fakeCache struct {
	tokens      map[string]*oauth2.Token
	invalidated []string
}

func newFakeCache() *fakeCache { return &fakeCache{tokens: map[string]*oauth2.Token{}} }

func (f *fakeCache) Get(_ context.Context, userID string) (*oauth2.Token, bool) {
	tok, ok := f.tokens[userID]
	return tok, ok
}

func (f *fakeCache) Set(_ context.Context, userID string, tok *oauth2.Token, _ time.Duration) {
	f.tokens[userID] = tok
}

func (f *fakeCache) Invalidate(_ context.Context, userID string) {
	delete(f.tokens, userID)
	f.invalidated = append(f.invalidated, userID)
}

func TestGetValidCredentials_NotConnected(t *testing.T) {
	m := NewTokenManager(newTestDB(t), nil)

	_, err := m.GetValidCredentials(context.Background(), "default")
	assert.ErrorIs(t, err, apperr.ErrNotConnected)

	ok, err := m.IsConnected(context.Background(), "default")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetValidCredentials_UnexpiredSkipsRefresh(t *testing.T) {
	ts := newTokenServer(t, "")
	m := NewTokenManager(newTestDB(t), oauthConfigFor(ts))
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", time.Now().Add(time.Hour)))

	tok, err := m.GetValidCredentials(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.Equal(t, 0, ts.calls)
}

func TestGetValidCredentials_RefreshesExpiredToken(t *testing.T) {
	// GIVEN an expired access token and a provider that rotates the refresh token
	ts := newTokenServer(t, `{"access_token":"access-2","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-2"}`)
	db := newTestDB(t)
	m := NewTokenManager(db, oauthConfigFor(ts), WithTokenCipher(NewTokenCipher("k")))
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", time.Now().Add(-time.Minute)))

	// WHEN credentials are requested
	tok, err := m.GetValidCredentials(ctx, "default")

	// THEN the refreshed pair is returned and persisted
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	assert.True(t, tok.Expiry.After(time.Now()))
	assert.Equal(t, 1, ts.calls)

	again, err := m.GetValidCredentials(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "access-2", again.AccessToken)
	assert.Equal(t, "refresh-2", again.RefreshToken)
	assert.Equal(t, 1, ts.calls, "fresh token must not trigger another refresh")

	var rec models.OAuthToken
	require.NoError(t, db.First(&rec).Error)
	assert.NotEqual(t, "access-2", rec.AccessToken, "stored token must be sealed")
}

func TestGetValidCredentials_RefreshWithoutExpiryDefaultsToOneHour(t *testing.T) {
	ts := newTokenServer(t, `{"access_token":"access-2","token_type":"Bearer"}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(newTestDB(t), oauthConfigFor(ts), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", now.Add(-time.Minute)))

	tok, err := m.GetValidCredentials(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Expiry)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestGetValidCredentials_RejectedRefreshLeavesRecord(t *testing.T) {
	ts := newTokenServer(t, "")
	db := newTestDB(t)
	m := NewTokenManager(db, oauthConfigFor(ts))
	ctx := context.Background()
	expiry := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", expiry))

	_, err := m.GetValidCredentials(ctx, "default")
	assert.ErrorIs(t, err, apperr.ErrNotConnected)

	var rec models.OAuthToken
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, "access-1", rec.AccessToken)
	assert.Equal(t, "refresh-1", rec.RefreshToken)
	assert.True(t, expiry.Equal(rec.TokenExpiry))
}

func TestStore_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	db := newTestDB(t)
	m := NewTokenManager(db, nil)
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", time.Now().Add(time.Hour)))
	require.NoError(t, m.Store(ctx, "default", "access-2", "", time.Now().Add(2*time.Hour)))

	var count int64
	db.Model(&models.OAuthToken{}).Count(&count)
	assert.Equal(t, int64(1), count)

	tok, err := m.GetValidCredentials(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestDisconnect_IdempotentAndInvalidatesCache(t *testing.T) {
	cache := newFakeCache()
	m := NewTokenManager(newTestDB(t), nil, WithCredentialCache(cache, time.Minute))
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, "default", "access-1", "refresh-1", time.Now().Add(time.Hour)))

	_, err := m.GetValidCredentials(ctx, "default")
	require.NoError(t, err)
	_, cached := cache.tokens["default"]
	assert.True(t, cached)

	require.NoError(t, m.Disconnect(ctx, "default"))
	require.NoError(t, m.Disconnect(ctx, "default"))
	assert.Empty(t, cache.tokens)

	_, err = m.GetValidCredentials(ctx, "default")
	assert.ErrorIs(t, err, apperr.ErrNotConnected)
}

func TestAuthCodeURL(t *testing.T) {
	_, err := NewTokenManager(newTestDB(t), nil).AuthCodeURL("st")
	var cfgErr *apperr.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	ts := newTokenServer(t, "")
	url, err := NewTokenManager(newTestDB(t), oauthConfigFor(ts)).AuthCodeURL("st")
	require.NoError(t, err)
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "state=st")
}

func TestExchangeCode_StoresTokens(t *testing.T) {
	ts := newTokenServer(t, `{"access_token":"access-x","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-x"}`)
	m := NewTokenManager(newTestDB(t), oauthConfigFor(ts))
	ctx := context.Background()

	require.NoError(t, m.ExchangeCode(ctx, "user-7", "code"))

	ok, err := m.IsConnected(ctx, "user-7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncHistory_RecordsRunOfCancelledRequest(t *testing.T) {
	h := NewSyncHistory(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.Record(ctx, time.Now(), RunSummary{Kind: models.SyncKindStockImport, UserID: "default"}, ctx.Err())

	runs, err := h.List(context.Background(), "default", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "context canceled")
}

func TestSyncHistory_LastSuccess(t *testing.T) {
	h := NewSyncHistory(newTestDB(t))
	ctx := context.Background()

	last, err := h.LastSuccess(ctx, "default", models.SyncKindCalendarPull)
	require.NoError(t, err)
	assert.Nil(t, last)

	h.Record(ctx, time.Now(), RunSummary{Kind: models.SyncKindCalendarPull, UserID: "default", Imported: 2, Total: 2}, nil)
	h.Record(ctx, time.Now(), RunSummary{Kind: models.SyncKindCalendarPull, UserID: "default"}, assert.AnError)

	last, err = h.LastSuccess(ctx, "default", models.SyncKindCalendarPull)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Imported)

	runs, err := h.List(ctx, "default", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
