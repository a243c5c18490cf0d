package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// defaultTokenLifetime is assumed when a provider omits expires_in.
const defaultTokenLifetime = time.Hour

// CredentialCache is an optional short-lived cache of valid credentials
// keyed by user id. Implementations must tolerate concurrent use.
type CredentialCache interface {
	Get(ctx context.Context, userID string) (*oauth2.Token, bool)
	Set(ctx context.Context, userID string, tok *oauth2.Token, ttl time.Duration)
	Invalidate(ctx context.Context, userID string)
}

// TokenManager owns the one stored Google credential set per user.
// Without a cache every lookup re-reads storage.
type TokenManager struct {
	db       *gorm.DB
	oauth    *oauth2.Config
	cipher   *TokenCipher
	cache    CredentialCache
	cacheTTL time.Duration
	now      func() time.Time
}

type TokenManagerOption func(*TokenManager)

func WithTokenCipher(c *TokenCipher) TokenManagerOption {
	return func(m *TokenManager) { m.cipher = c }
}

func WithCredentialCache(cache CredentialCache, ttl time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		m.cache = cache
		m.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager builds a manager. oauthCfg may be nil when Google OAuth is
// not configured; flows that need it then fail with a ConfigurationError.
func NewTokenManager(db *gorm.DB, oauthCfg *oauth2.Config, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{db: db, oauth: oauthCfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthCodeURL returns the consent page URL. Offline access with a forced
// consent prompt makes Google return a refresh token every time.
func (m *TokenManager) AuthCodeURL(state string) (string, error) {
	if m.oauth == nil {
		return "", &apperr.ConfigurationError{Setting: "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET"}
	}
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeCode trades an authorization code for tokens and stores them.
func (m *TokenManager) ExchangeCode(ctx context.Context, userID, code string) error {
	if m.oauth == nil {
		return &apperr.ConfigurationError{Setting: "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET"}
	}
	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return apperr.External("google_oauth", "token.exchange", err)
	}
	return m.Store(ctx, userID, tok.AccessToken, tok.RefreshToken, m.expiryOf(tok))
}

// GetValidCredentials returns usable credentials for userID, refreshing an
// expired access token first. It returns apperr.ErrNotConnected when nothing
// is stored or the refresh is rejected; in the latter case the stored record
// is left untouched.
func (m *TokenManager) GetValidCredentials(ctx context.Context, userID string) (*oauth2.Token, error) {
	if m.cache != nil {
		if tok, ok := m.cache.Get(ctx, userID); ok && tok.Expiry.After(m.now()) {
			return tok, nil
		}
	}

	rec, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.ErrNotConnected
	}

	access, err := m.cipher.Open(rec.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refresh, err := m.cipher.Open(rec.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       rec.TokenExpiry,
	}
	if rec.TokenExpiry.After(m.now()) {
		m.remember(ctx, userID, tok)
		return tok, nil
	}

	if refresh == "" {
		slog.Warn("oauth token expired without refresh token", "user_id", userID)
		return nil, apperr.ErrNotConnected
	}
	if m.oauth == nil {
		return nil, &apperr.ConfigurationError{Setting: "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET"}
	}

	fresh, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		slog.Warn("oauth token refresh failed", "user_id", userID, "error", err)
		return nil, apperr.ErrNotConnected
	}

	expiry := m.expiryOf(fresh)
	sealedAccess, err := m.cipher.Seal(fresh.AccessToken)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"access_token": sealedAccess,
		"token_expiry": expiry,
	}
	if fresh.RefreshToken != "" && fresh.RefreshToken != refresh {
		sealedRefresh, err := m.cipher.Seal(fresh.RefreshToken)
		if err != nil {
			return nil, err
		}
		updates["refresh_token"] = sealedRefresh
		refresh = fresh.RefreshToken
	}
	if err := m.db.WithContext(ctx).Model(rec).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	slog.Info("oauth token refreshed", "user_id", userID, "expiry", expiry)

	tok = &oauth2.Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
	m.remember(ctx, userID, tok)
	return tok, nil
}

// Store upserts the credential set of userID. An empty refreshToken keeps
// the previously stored one.
func (m *TokenManager) Store(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	sealedAccess, err := m.cipher.Seal(accessToken)
	if err != nil {
		return err
	}
	sealedRefresh, err := m.cipher.Seal(refreshToken)
	if err != nil {
		return err
	}

	rec, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	db := m.db.WithContext(ctx)
	if rec == nil {
		rec = &models.OAuthToken{
			UserID:       userID,
			AccessToken:  sealedAccess,
			RefreshToken: sealedRefresh,
			TokenExpiry:  expiry.UTC(),
		}
		err = db.Create(rec).Error
	} else {
		rec.AccessToken = sealedAccess
		rec.TokenExpiry = expiry.UTC()
		if refreshToken != "" {
			rec.RefreshToken = sealedRefresh
		}
		err = db.Save(rec).Error
	}
	if err != nil {
		return fmt.Errorf("failed to store oauth token: %w", err)
	}

	if m.cache != nil {
		m.cache.Invalidate(ctx, userID)
	}
	return nil
}

// Disconnect deletes the stored credentials. Missing records are not an error.
func (m *TokenManager) Disconnect(ctx context.Context, userID string) error {
	if err := m.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.OAuthToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete oauth token: %w", err)
	}
	if m.cache != nil {
		m.cache.Invalidate(ctx, userID)
	}
	return nil
}

func (m *TokenManager) IsConnected(ctx context.Context, userID string) (bool, error) {
	_, err := m.GetValidCredentials(ctx, userID)
	if errors.Is(err, apperr.ErrNotConnected) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *TokenManager) load(ctx context.Context, userID string) (*models.OAuthToken, error) {
	var rec models.OAuthToken
	err := m.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth token: %w", err)
	}
	return &rec, nil
}

func (m *TokenManager) remember(ctx context.Context, userID string, tok *oauth2.Token) {
	if m.cache == nil {
		return
	}
	ttl := m.cacheTTL
	if left := tok.Expiry.Sub(m.now()); left < ttl {
		ttl = left
	}
	if ttl > 0 {
		m.cache.Set(ctx, userID, tok, ttl)
	}
}

func (m *TokenManager) expiryOf(tok *oauth2.Token) time.Time {
	if tok.Expiry.IsZero() {
		return m.now().Add(defaultTokenLifetime).UTC()
	}
	return tok.Expiry.UTC()
}
