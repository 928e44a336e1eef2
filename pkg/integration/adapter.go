// Package integration runs the OAuth2 authorization code flow with PKCE
// against third-party providers and normalizes their records.
package integration

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-training/integration-relay/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStateTTL       = 600 * time.Second
	DefaultCredentialsTTL = 600 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

const tracerName = "github.com/go-training/integration-relay/pkg/integration"

// Adapter drives one provider's authorize → callback → credentials flow
// and lists its records.
type Adapter struct {
	cfg    ProviderConfig
	oauth  *oauth2.Config
	store  core.Store
	client *http.Client
	tracer trace.Tracer

	stateTTL       time.Duration
	credentialsTTL time.Duration
	requestTimeout time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the client used for token exchange and data calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// WithStateTTL sets how long state and verifier entries live.
func WithStateTTL(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.stateTTL = d
		}
	}
}

// WithCredentialsTTL sets how long fetched credentials wait for pickup.
func WithCredentialsTTL(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.credentialsTTL = d
		}
	}
}

// WithRequestTimeout bounds each outbound provider call.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.requestTimeout = d
		}
	}
}

// NewAdapter validates cfg and returns an adapter backed by store.
func NewAdapter(cfg ProviderConfig, store core.Store, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store is required")
	}

	a := &Adapter{
		cfg:            cfg,
		oauth:          cfg.oauth2Config(),
		store:          store,
		client:         &http.Client{Timeout: DefaultRequestTimeout},
		tracer:         otel.Tracer(tracerName),
		stateTTL:       DefaultStateTTL,
		credentialsTTL: DefaultCredentialsTTL,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the provider name used in routes and store keys.
func (a *Adapter) Name() string { return a.cfg.Name }

// Kind returns the provider kind.
func (a *Adapter) Kind() Kind { return a.cfg.Kind }

// DisplayName returns a human-readable provider name.
func (a *Adapter) DisplayName() string { return a.cfg.displayName() }

func (a *Adapter) key(purpose, orgID, userID string) string {
	return Key(a.cfg.Name, purpose, orgID, userID)
}

func (a *Adapter) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("integration.provider", a.cfg.Name))
	return a.tracer.Start(ctx, "integration."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Authorize stores a fresh state and PKCE verifier for the pair and returns
// the provider URL the browser should open.
func (a *Adapter) Authorize(ctx context.Context, userID, orgID string) (authURL string, err error) {
	ctx, span := a.startSpan(ctx, "Authorize")
	defer func() { endSpan(span, err) }()

	if userID == "" || orgID == "" {
		return "", ErrInvalidIdentity
	}

	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	state, raw, err := encodeState(AuthorizationRequest{Nonce: nonce, UserID: userID, OrgID: orgID})
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	for k, v := range a.cfg.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	authURL = a.oauth.AuthCodeURL(state, opts...)

	if err := a.store.Set(ctx, a.key(purposeState, orgID, userID), raw, a.stateTTL); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	if err := a.store.Set(ctx, a.key(purposeVerifier, orgID, userID), verifier, a.stateTTL); err != nil {
		return "", fmt.Errorf("save verifier: %w", err)
	}

	core.LoggerFromCtx(ctx).Debug("authorization started",
		"provider", a.cfg.Name, "user_id", userID, "org_id", orgID)
	return authURL, nil
}

// Callback validates the provider redirect, exchanges the code and stores
// the resulting credentials for one pickup.
func (a *Adapter) Callback(ctx context.Context, params CallbackParams) (creds *Credentials, err error) {
	ctx, span := a.startSpan(ctx, "Callback")
	defer func() { endSpan(span, err) }()

	if params.Error != "" {
		return nil, &ExternalAuthError{Code: params.Error, Description: params.ErrorDescription}
	}
	if params.Code == "" || params.State == "" {
		return nil, ErrInvalidCallback
	}

	req, err := decodeState(params.State)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("integration.org_id", req.OrgID))

	stateKey := a.key(purposeState, req.OrgID, req.UserID)
	verifierKey := a.key(purposeVerifier, req.OrgID, req.UserID)

	var storedState, verifier string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a.lookup(gctx, stateKey)
		storedState = v
		return err
	})
	g.Go(func() error {
		v, err := a.lookup(gctx, verifierKey)
		verifier = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}

	if storedState == "" || verifier == "" {
		return nil, ErrStateMismatch
	}
	var stored AuthorizationRequest
	if err := json.Unmarshal([]byte(storedState), &stored); err != nil {
		return nil, ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored.Nonce), []byte(req.Nonce)) != 1 {
		return nil, ErrStateMismatch
	}

	// Claim the flow before talking to the provider so a replay cannot reuse it.
	claimed, err := a.store.GetDel(ctx, stateKey)
	switch {
	case errors.Is(err, core.ErrKeyNotFound):
		return nil, ErrStateMismatch
	case err != nil:
		return nil, fmt.Errorf("claim state: %w", err)
	case claimed != storedState:
		return nil, ErrStateMismatch
	}
	if err := a.store.Delete(ctx, verifierKey); err != nil {
		return nil, fmt.Errorf("delete verifier: %w", err)
	}

	creds, err = a.exchange(ctx, params.Code, verifier)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	if err := a.store.Set(ctx, a.key(purposeCredentials, req.OrgID, req.UserID), string(b), a.credentialsTTL); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	core.LoggerFromCtx(ctx).Info("integration connected",
		"provider", a.cfg.Name, "user_id", req.UserID, "org_id", req.OrgID)
	return creds, nil
}

// lookup returns "" for a missing key.
func (a *Adapter) lookup(ctx context.Context, key string) (string, error) {
	v, err := a.store.Get(ctx, key)
	if errors.Is(err, core.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

func (a *Adapter) exchange(ctx context.Context, code, verifier string) (*Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)

	tok, err := a.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &TokenExchangeError{StatusCode: re.Response.StatusCode, Body: string(re.Body), Err: err}
		}
		return nil, &TokenExchangeError{Err: err}
	}

	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		creds.Scope = scope
	}
	for _, field := range a.cfg.TokenExtraFields {
		if v := tok.Extra(field); v != nil {
			if creds.Extra == nil {
				creds.Extra = make(map[string]any)
			}
			creds.Extra[field] = v
		}
	}
	return creds, nil
}

// Credentials hands out the stored credentials and removes them in the same step.
func (a *Adapter) Credentials(ctx context.Context, userID, orgID string) (creds *Credentials, err error) {
	ctx, span := a.startSpan(ctx, "Credentials")
	defer func() { endSpan(span, err) }()

	if userID == "" || orgID == "" {
		return nil, ErrInvalidIdentity
	}

	// The bundle is removed before decoding. A corrupt value is lost with the
	// error, and the user has to run the flow again.
	raw, err := a.store.GetDel(ctx, a.key(purposeCredentials, orgID, userID))
	if errors.Is(err, core.ErrKeyNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	creds = &Credentials{}
	if err := json.Unmarshal([]byte(raw), creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// Disconnect drops any credentials still waiting for the pair.
func (a *Adapter) Disconnect(ctx context.Context, userID, orgID string) (err error) {
	ctx, span := a.startSpan(ctx, "Disconnect")
	defer func() { endSpan(span, err) }()

	if userID == "" || orgID == "" {
		return ErrInvalidIdentity
	}
	if err := a.store.Delete(ctx, a.key(purposeCredentials, orgID, userID)); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	core.LoggerFromCtx(ctx).Info("integration disconnected",
		"provider", a.cfg.Name, "user_id", userID, "org_id", orgID)
	return nil
}

// ListItems fetches one page of records. limit <= 0 selects the provider default.
func (a *Adapter) ListItems(ctx context.Context, creds *Credentials, limit int, cursor string) (page *ItemPage, err error) {
	size := a.cfg.pageSize(limit)
	ctx, span := a.startSpan(ctx, "ListItems", attribute.Int("integration.limit", size))
	defer func() { endSpan(span, err) }()

	if creds == nil || creds.AccessToken == "" {
		return nil, ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	switch a.cfg.Kind {
	case KindHubSpot:
		page, err = a.listHubSpot(ctx, creds.AccessToken, size, cursor)
	case KindAirtable:
		page, err = a.listAirtable(ctx, creds.AccessToken, size, cursor)
	case KindNotion:
		page, err = a.listNotion(ctx, creds.AccessToken, size, cursor)
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", a.cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("integration.items", len(page.Items)))
	return page, nil
}
