// Package auth talks to the remote API's /user endpoints and normalizes every
// failure into an *Error.
package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/apiclient"
	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/validation"
)

const (
	loginPath    = "/user/login"
	registerPath = "/user/register"
	mePath       = "/user/me"
	refreshPath  = "/user/refresh"
)

// Fallback messages used when the server gives none
const (
	MsgLoginFailed    = "login failed"
	MsgRegisterFailed = "registration failed"
	MsgProfileFailed  = "failed to fetch profile"
	MsgRefreshFailed  = "failed to refresh token"
)

// Doer is the request half of apiclient.Client
type Doer interface {
	Do(ctx context.Context, method, path string, body any) (*apiclient.Response, error)
}

// Service is the remote auth API
type Service struct {
	client    Doer
	validator *validation.Validator
	logger    zerolog.Logger
}

// NewService creates an auth service on top of the API client
func NewService(client Doer, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		validator: validation.New(),
		logger:    logger,
	}
}

// Login exchanges credentials for a token and profile
func (s *Service) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	if err := s.validate(creds); err != nil {
		return nil, err
	}

	var out models.AuthResponse
	if err := s.call(ctx, http.MethodPost, loginPath, creds, &out, MsgLoginFailed, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. ConfirmPassword is checked locally and not sent.
func (s *Service) Register(ctx context.Context, creds models.RegisterCredentials) error {
	if err := s.validate(creds); err != nil {
		return err
	}

	body := models.RegisterRequest{
		Username: creds.Username,
		Email:    creds.Email,
		Password: creds.Password,
	}
	return s.call(ctx, http.MethodPost, registerPath, body, nil, MsgRegisterFailed, false)
}

// GetCurrentUser returns the profile of the stored token's owner
func (s *Service) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.call(ctx, http.MethodGet, mePath, nil, &out, MsgProfileFailed, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken trades the stored token for a fresh one
func (s *Service) RefreshToken(ctx context.Context) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := s.call(ctx, http.MethodPost, refreshPath, nil, &out, MsgRefreshFailed, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		msg := "invalid input"
		if fe, ok := validation.AsFieldErrors(err); ok {
			msg = fe.Error()
		}
		return &Error{Kind: KindValidation, Message: msg, Err: err}
	}
	return nil
}

// call performs one request. out may be nil when the body is ignored.
// fixedMessage always reports fallback instead of the server's message.
func (s *Service) call(ctx context.Context, method, path string, body, out any, fallback string, fixedMessage bool) error {
	resp, err := s.client.Do(ctx, method, path, body)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("Auth request failed")
		return &Error{Kind: KindNetwork, Message: fallback, Err: err}
	}

	if !resp.OK() {
		authErr := statusError(resp.StatusCode, resp.Body, fallback)
		if fixedMessage {
			authErr.Message = fallback
		}
		s.logger.Debug().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("message", authErr.Message).
			Msg("Auth request rejected")
		return authErr
	}

	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return &Error{Kind: KindRemote, Status: resp.StatusCode, Message: fallback, Err: err}
	}
	return nil
}
