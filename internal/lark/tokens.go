package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/cache"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	tokenCacheKey = "lark:tenant_access_token"

	// expirySlack shaves time off the advertised token lifetime so a
	// cached token is never handed out moments before it dies.
	expirySlack = 5 * time.Minute

	tokenRequestTimeout = 8 * time.Second
)

// TokenProvider yields a valid tenant access token, caching it in redis
// until shortly before expiry.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

type tokenProvider struct {
	cfg   config.LarkConfig
	redis cache.RedisClient
	http  *http.Client
	log   *logrus.Logger
}

// NewTokenProvider creates a redis-backed token provider.
func NewTokenProvider(cfg config.LarkConfig, redis cache.RedisClient, log *logrus.Logger) TokenProvider {
	return &tokenProvider{
		cfg:   cfg,
		redis: redis,
		http:  &http.Client{},
		log:   log,
	}
}

// Token returns the cached token or fetches a fresh one on a miss.
func (p *tokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.redis.Get(ctx, tokenCacheKey)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && err != cache.ErrCacheMiss {
		p.log.WithError(err).Warn("Token cache read failed, fetching directly")
	}

	token, expire, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	p.store(ctx, token, expire)
	return token, nil
}

// Refresh fetches a new token unconditionally and replaces the cached one.
func (p *tokenProvider) Refresh(ctx context.Context) error {
	token, expire, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	p.store(ctx, token, expire)
	return nil
}

func (p *tokenProvider) store(ctx context.Context, token string, expire time.Duration) {
	ttl := expire - expirySlack
	if ttl <= 0 {
		ttl = expire / 2
	}
	if err := p.redis.Set(ctx, tokenCacheKey, token, ttl); err != nil {
		p.log.WithError(err).Warn("Failed to cache tenant access token")
	}
}

func (p *tokenProvider) fetch(ctx context.Context) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenRequestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"app_id":     p.cfg.AppID,
		"app_secret": p.cfg.AppSecret,
	})
	if err != nil {
		return "", 0, err
	}

	url := p.cfg.BaseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", 0, pkgerrors.Wrap(err, "tenant access token request failed")
	}
	defer resp.Body.Close()

	var payload struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, pkgerrors.Wrap(err, "invalid tenant access token response")
	}
	if payload.Code != 0 {
		return "", 0, fmt.Errorf("lark API error: %s", payload.Msg)
	}

	return payload.TenantAccessToken, time.Duration(payload.Expire) * time.Second, nil
}
