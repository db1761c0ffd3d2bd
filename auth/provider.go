// Package auth exchanges long-lived secrets for the short-lived signing
// credentials and access token every upstream call needs.
package auth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"inboundcore/config"
	"inboundcore/retry"
	"inboundcore/sigv4"
)

// Credentials is the full set needed to sign one request.
type Credentials struct {
	Signing       sigv4.Credentials
	SigningExpiry time.Time
	AccessToken   string
	TokenExpiry   time.Time
}

type signingEntry struct {
	Credentials sigv4.Credentials `json:"credentials"`
	Expiry      time.Time         `json:"expiry"`
}

type tokenEntry struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Cache shares exchanged credentials between processes. Misses return
// false with a nil error.
type Cache interface {
	Load(ctx context.Context, key string, v any) (bool, error)
	Store(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Provider caches both exchanges until they are within the refresh skew of
// expiry. It is safe for concurrent use.
type Provider struct {
	cfg        config.AuthConfig
	httpClient *http.Client
	clock      clockz.Clock
	cache      Cache

	mu      sync.Mutex
	signing *signingEntry
	token   *tokenEntry
}

func NewProvider(cfg config.AuthConfig, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{cfg: cfg, httpClient: httpClient, clock: clockz.RealClock}
}

// WithCache adds a shared cache consulted before each exchange.
func (p *Provider) WithCache(c Cache) *Provider {
	p.cache = c
	return p
}

func (p *Provider) WithClock(clock clockz.Clock) *Provider {
	p.clock = clock
	return p
}

// Credentials returns valid signing credentials and an access token,
// exchanging whichever is missing or close to expiry.
func (p *Provider) Credentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.fresh(p.signing) {
		s, err := p.loadSigning(ctx)
		if err != nil {
			return Credentials{}, err
		}
		p.signing = &s
	}
	if p.token == nil || !p.valid(p.token.Expiry) {
		t, err := p.loadToken(ctx)
		if err != nil {
			return Credentials{}, err
		}
		p.token = &t
	}
	return Credentials{
		Signing:       p.signing.Credentials,
		SigningExpiry: p.signing.Expiry,
		AccessToken:   p.token.Token,
		TokenExpiry:   p.token.Expiry,
	}, nil
}

// SigningCredentials adapts Credentials for the upstream client.
func (p *Provider) SigningCredentials(ctx context.Context) (sigv4.Credentials, string, error) {
	c, err := p.Credentials(ctx)
	if err != nil {
		return sigv4.Credentials{}, "", err
	}
	return c.Signing, c.AccessToken, nil
}

// Invalidate drops the in-memory entries so the next call re-exchanges.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.signing = nil
	p.token = nil
	p.mu.Unlock()
}

// Expiries reports the cached expiry times; zero means nothing is cached.
func (p *Provider) Expiries() (signing, token time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signing != nil {
		signing = p.signing.Expiry
	}
	if p.token != nil {
		token = p.token.Expiry
	}
	return signing, token
}

func (p *Provider) fresh(e *signingEntry) bool {
	return e != nil && p.valid(e.Expiry)
}

func (p *Provider) valid(expiry time.Time) bool {
	return p.clock.Now().Add(p.cfg.RefreshSkew).Before(expiry)
}

func (p *Provider) exchangePolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		Backoff:     retry.Constant(250 * time.Millisecond),
		Retryable:   isServerError,
		Clock:       p.clock,
	}
}

func (p *Provider) loadSigning(ctx context.Context) (signingEntry, error) {
	if p.cfg.RoleARN == "" {
		// Static IAM keys never expire on their own.
		return signingEntry{
			Credentials: sigv4.Credentials{AccessKeyID: p.cfg.AccessKeyID, SecretAccessKey: p.cfg.SecretAccessKey},
			Expiry:      p.clock.Now().Add(24 * time.Hour),
		}, nil
	}
	key := "inboundcore:auth:sts:" + p.cfg.RoleARN
	var cached signingEntry
	if p.loadShared(ctx, key, &cached) && p.valid(cached.Expiry) {
		return cached, nil
	}
	e, err := retry.DoValue(ctx, p.exchangePolicy(), p.assumeRole)
	if err != nil {
		return signingEntry{}, fmt.Errorf("assume role: %w", err)
	}
	p.storeShared(ctx, key, e, e.Expiry)
	log.Printf("auth: assumed role %s until %s", p.cfg.RoleARN, e.Expiry.Format(time.RFC3339))
	return e, nil
}

func (p *Provider) loadToken(ctx context.Context) (tokenEntry, error) {
	key := "inboundcore:auth:token:" + p.cfg.ClientID
	var cached tokenEntry
	if p.loadShared(ctx, key, &cached) && p.valid(cached.Expiry) {
		return cached, nil
	}
	e, err := retry.DoValue(ctx, p.exchangePolicy(), p.refreshAccessToken)
	if err != nil {
		return tokenEntry{}, fmt.Errorf("refresh access token: %w", err)
	}
	p.storeShared(ctx, key, e, e.Expiry)
	log.Printf("auth: refreshed access token until %s", e.Expiry.Format(time.RFC3339))
	return e, nil
}

func (p *Provider) loadShared(ctx context.Context, key string, v any) bool {
	if p.cache == nil {
		return false
	}
	ok, err := p.cache.Load(ctx, key, v)
	if err != nil {
		log.Printf("auth: shared cache load %s: %v", key, err)
		return false
	}
	return ok
}

func (p *Provider) storeShared(ctx context.Context, key string, v any, expiry time.Time) {
	if p.cache == nil {
		return
	}
	ttl := expiry.Sub(p.clock.Now()) - p.cfg.RefreshSkew
	if ttl <= 0 {
		return
	}
	if err := p.cache.Store(ctx, key, v, ttl); err != nil {
		log.Printf("auth: shared cache store %s: %v", key, err)
	}
}
