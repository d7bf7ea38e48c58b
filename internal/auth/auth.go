// Package auth signs users in and out of the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/models"
	"github.com/hyperjump/docsearch/internal/session"
)

const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
	MsgEmailRequired      = "Email is required"
	MsgPasswordTooShort   = "Password must be at least 6 characters"

	MinPasswordLength = 6
)

// ErrNotSignedIn is returned by operations that need a stored session.
var ErrNotSignedIn = errors.New("not signed in")

// Service performs login, registration and session inspection.
type Service struct {
	client httpclient.Doer
	store  session.Store
	logger *zap.Logger
}

// NewService returns a Service that talks through client and keeps the
// session in store.
func NewService(client httpclient.Doer, store session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, store: store, logger: logger}
}

// Validate checks the credential preconditions shared by Login and Register.
func Validate(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email", Message: MsgEmailRequired}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: MsgPasswordTooShort}
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a token and stores it. On any failure
// the store is left as it was.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := Validate(email, password); err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	resp, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   httpclient.Form(form),
	})
	if err != nil {
		return &Error{Op: "login", Message: httpclient.Message(err, MsgLoginFailed), Err: err}
	}

	var tok tokenResponse
	if err := resp.Decode(&tok); err != nil {
		return &Error{Op: "login", Message: MsgLoginFailed, Err: fmt.Errorf("decode token: %w", err)}
	}
	if tok.AccessToken == "" {
		return &Error{Op: "login", Message: MsgLoginFailed, Err: errors.New("response has no access_token")}
	}

	if err := s.store.Set(ctx, tok.AccessToken); err != nil {
		return &Error{Op: "login", Message: MsgLoginFailed, Err: err}
	}
	s.logger.Debug("signed in", zap.String("email", email))
	return nil
}

// Register creates an account. It does not sign the user in.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if err := Validate(email, password); err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	body, err := httpclient.JSON(map[string]string{"email": email, "password": password})
	if err != nil {
		return &Error{Op: "register", Message: MsgRegistrationFailed, Err: err}
	}
	if _, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   body,
	}); err != nil {
		return &Error{Op: "register", Message: httpclient.Message(err, MsgRegistrationFailed), Err: err}
	}
	s.logger.Debug("registered", zap.String("email", email))
	return nil
}

// RegisterAndLogin registers and then signs in with the same credentials.
func (s *Service) RegisterAndLogin(ctx context.Context, email, password string) error {
	if err := s.Register(ctx, email, password); err != nil {
		return err
	}
	return s.Login(ctx, email, password)
}

// Logout forgets the local session. The server is not contacted.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// SignedIn reports whether a token is stored. It says nothing about
// whether the server still accepts it.
func (s *Service) SignedIn(ctx context.Context) (bool, error) {
	tok, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return tok != "", nil
}

// Me returns the account behind the stored token.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/auth/me"})
	if err != nil {
		return nil, &Error{Op: "me", Message: httpclient.Message(err, "Failed to load account"), Err: err}
	}
	var u models.User
	if err := resp.Decode(&u); err != nil {
		return nil, &Error{Op: "me", Message: "Failed to load account", Err: err}
	}
	return &u, nil
}

// Claims decodes the stored token's JWT claims for display. The signature
// is not verified and the result is never used to accept or reject a
// session; tokens that are not JWTs yield an error.
func (s *Service) Claims(ctx context.Context) (jwt.MapClaims, error) {
	tok, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrNotSignedIn
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, fmt.Errorf("token is not a readable JWT: %w", err)
	}
	return claims, nil
}
