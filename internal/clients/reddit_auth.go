package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AccessToken is a bearer token with its adjusted expiry, i.e. the declared
// expiry minus the safety margin. It is replaced, never mutated.
type AccessToken struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t AccessToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

type TokenCache interface {
	Load(ctx context.Context) (AccessToken, bool, error)
	Store(ctx context.Context, tok AccessToken) error
	Clear(ctx context.Context) error
}

type MemoryTokenCache struct {
	tok atomic.Pointer[AccessToken]
}

func (c *MemoryTokenCache) Load(context.Context) (AccessToken, bool, error) {
	if t := c.tok.Load(); t != nil {
		return *t, true, nil
	}
	return AccessToken{}, false, nil
}

func (c *MemoryTokenCache) Store(_ context.Context, tok AccessToken) error {
	c.tok.Store(&tok)
	return nil
}

func (c *MemoryTokenCache) Clear(context.Context) error {
	c.tok.Store(nil)
	return nil
}

type tokenExchanger interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenManager caches the client-credentials token and exchanges a new one
// once the cached token reaches its adjusted expiry.
type TokenManager struct {
	exchanger  tokenExchanger
	httpClient *http.Client
	cache      TokenCache
	clock      Clock
	margin     time.Duration
}

func NewTokenManager(creds Credentials, tokenURL string, httpClient *http.Client, cache TokenCache, clock Clock, margin time.Duration) *TokenManager {
	if cache == nil {
		cache = &MemoryTokenCache{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &TokenManager{
		exchanger: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
		cache:      cache,
		clock:      clock,
		margin:     margin,
	}
}

func (tm *TokenManager) Token(ctx context.Context) (AccessToken, error) {
	now := tm.clock.Now()

	cached, ok, err := tm.cache.Load(ctx)
	if err != nil {
		slog.Warn("[TokenManager] Token cache read failed, exchanging a new token",
			slog.String("error", err.Error()))
	} else if ok && cached.ValidAt(now) {
		return cached, nil
	}

	tok, err := tm.exchange(ctx, now)
	if err != nil {
		return AccessToken{}, err
	}

	if err := tm.cache.Store(ctx, tok); err != nil {
		slog.Warn("[TokenManager] Token cache write failed",
			slog.String("error", err.Error()))
	}
	return tok, nil
}

// Invalidate drops the cached token so the next call exchanges a new one.
func (tm *TokenManager) Invalidate(ctx context.Context) {
	if err := tm.cache.Clear(ctx); err != nil {
		slog.Warn("[TokenManager] Token cache clear failed",
			slog.String("error", err.Error()))
	}
}

func (tm *TokenManager) exchange(ctx context.Context, now time.Time) (AccessToken, error) {
	if tm.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	}

	start := time.Now()
	raw, err := tm.exchanger.Token(ctx)
	if err != nil {
		return AccessToken{}, classifyTokenError(err)
	}

	lifetime, ok := tokenLifetime(raw, now)
	if !ok || lifetime <= 0 {
		return AccessToken{}, newError(KindMalformedResponse, 0, nil, "token response missing expires_in")
	}

	// A margin as long as the lifetime would force an exchange on every call.
	margin := tm.margin
	if margin >= lifetime {
		margin = lifetime / 2
	}

	slog.Info("[TokenManager] Obtained access token",
		slog.Duration("lifetime", lifetime),
		slog.Duration("elapsed", time.Since(start)))

	return AccessToken{
		Value:     raw.AccessToken,
		ExpiresAt: now.Add(lifetime - margin),
	}, nil
}

// tokenLifetime prefers the raw expires_in field so the expiry is measured
// against the injected clock rather than the oauth2 package's wall clock.
func tokenLifetime(tok *oauth2.Token, now time.Time) (time.Duration, bool) {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return time.Duration(f * float64(time.Second)), true
		}
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second)), true
		}
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(now), true
	}
	return 0, false
}

func classifyTokenError(err error) *RedditError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		slog.Error("[TokenManager] Token exchange rejected", slog.Int("status", status))
		return newError(KindAuthFailure, status, err, "token exchange rejected")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		slog.Error("[TokenManager] Token endpoint unreachable", slog.String("error", err.Error()))
		return newError(KindNetworkError, 0, err, "token endpoint unreachable")
	}

	slog.Error("[TokenManager] Unreadable token response", slog.String("error", err.Error()))
	return newError(KindMalformedResponse, 0, err, "unreadable token response")
}
