package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hyperjump/docsearch/internal/apitest"
	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/session"
)

func newService(t *testing.T) (*Service, *apitest.Server, *session.MemoryStore) {
	t.Helper()
	srv := apitest.New(t)
	store := session.NewMemoryStore("")
	return NewService(httpclient.New(srv.URL, store), store, nil), srv, store
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantField string
		wantMsg   string
	}{
		{"ok", "a@b.c", "secret", "", ""},
		{"empty email", "", "secret", "email", MsgEmailRequired},
		{"blank email", "   ", "secret", "email", MsgEmailRequired},
		{"short password", "a@b.c", "12345", "password", MsgPasswordTooShort},
		{"empty password", "a@b.c", "", "password", MsgPasswordTooShort},
		{"multibyte password counted in characters", "a@b.c", "ééé", "password", MsgPasswordTooShort},
		{"six multibyte characters", "a@b.c", "éééééé", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.email, tt.password)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField || vErr.Message != tt.wantMsg {
				t.Errorf("got %+v", vErr)
			}
		})
	}
}

func TestLogin_ValidationSkipsNetwork(t *testing.T) {
	svc, srv, store := newService(t)
	ctx := context.Background()

	if err := svc.Login(ctx, "a@b.c", "short"); err == nil {
		t.Fatal("expected validation error")
	}
	if err := svc.Register(ctx, "", "longenough"); err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("expected zero requests, got %d", n)
	}
	if tok, _ := store.Get(ctx); tok != "" {
		t.Errorf("store changed: %q", tok)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, srv, store := newService(t)
	srv.AddUser("a@b.c", "secret1")
	ctx := context.Background()

	if err := svc.Login(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	tok, _ := store.Get(ctx)
	if tok == "" {
		t.Fatal("token not stored")
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].ContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", reqs[0].ContentType)
	}
	if !reqs[0].HasAuth || reqs[0].Authorization != "" {
		t.Errorf("login should carry an empty Authorization header, got present=%v %q", reqs[0].HasAuth, reqs[0].Authorization)
	}

	u, err := svc.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.Email != "a@b.c" {
		t.Errorf("Me().Email = %q", u.Email)
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server detail", http.StatusUnauthorized, `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{"unparsable body", http.StatusUnauthorized, `not json`, MsgLoginFailed},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"x"}]}`, MsgLoginFailed},
		{"success without token", http.StatusOK, `{"token_type":"bearer"}`, MsgLoginFailed},
		{"success with bad json", http.StatusOK, `{`, MsgLoginFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, srv, store := newService(t)
			ctx := context.Background()
			_ = store.Set(ctx, "previous")
			srv.Fail(http.MethodPost, "/auth/login", tt.status, tt.body)

			err := svc.Login(ctx, "a@b.c", "secret1")
			var aErr *Error
			if !errors.As(err, &aErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if aErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", aErr.Message, tt.wantMsg)
			}
			if tok, _ := store.Get(ctx); tok != "previous" {
				t.Errorf("store changed to %q", tok)
			}
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, srv, store := newService(t)
	srv.AddUser("a@b.c", "secret1")

	err := svc.Login(context.Background(), "a@b.c", "wrongpass")
	var aErr *Error
	if !errors.As(err, &aErr) || aErr.Message != "Invalid credentials" {
		t.Fatalf("got %v", err)
	}
	if tok, _ := store.Get(context.Background()); tok != "" {
		t.Errorf("token stored after failed login: %q", tok)
	}
}

func TestLogin_NetworkError(t *testing.T) {
	store := session.NewMemoryStore("")
	svc := NewService(httpclient.New("http://127.0.0.1:1", store), store, nil)
	err := svc.Login(context.Background(), "a@b.c", "secret1")
	var aErr *Error
	if !errors.As(err, &aErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if aErr.Message != httpclient.NetworkMessage {
		t.Errorf("Message = %q", aErr.Message)
	}
}

func TestRegister(t *testing.T) {
	svc, srv, store := newService(t)
	ctx := context.Background()
	if err := store.Set(ctx, "existing"); err != nil {
		t.Fatal(err)
	}
	assertToken := func(step string) {
		t.Helper()
		if tok, _ := store.Get(ctx); tok != "existing" {
			t.Errorf("%s: store changed to %q", step, tok)
		}
	}

	if err := svc.Register(ctx, "new@b.c", "secret1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	assertToken("success")
	if reqs := srv.Requests(); reqs[0].ContentType != "application/json" {
		t.Errorf("Content-Type = %q", reqs[0].ContentType)
	}

	err := svc.Register(ctx, "new@b.c", "secret1")
	var aErr *Error
	if !errors.As(err, &aErr) || aErr.Message != "Email already registered" {
		t.Fatalf("duplicate register: %v", err)
	}
	assertToken("duplicate")

	if err := svc.Register(ctx, "", "secret1"); err == nil {
		t.Fatal("expected validation error")
	}
	assertToken("validation")

	srv.Fail(http.MethodPost, "/auth/register", http.StatusInternalServerError, "")
	err = svc.Register(ctx, "other@b.c", "secret1")
	if !errors.As(err, &aErr) || aErr.Message != MsgRegistrationFailed {
		t.Fatalf("server error: %v", err)
	}
	assertToken("server error")
}

func TestLogin_SendsTrimmedEmail(t *testing.T) {
	svc, srv, store := newService(t)
	ctx := context.Background()
	srv.AddUser("a@b.c", "secret1")

	if err := svc.Login(ctx, "  a@b.c \t", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok, _ := store.Get(ctx); tok == "" {
		t.Error("expected token stored")
	}
}

func TestRegisterAndLogin_Logout(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()

	if err := svc.RegisterAndLogin(ctx, "c@d.e", "secret1"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := svc.SignedIn(ctx); !ok {
		t.Fatal("expected signed in")
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if tok, _ := store.Get(ctx); tok != "" {
		t.Errorf("token after logout = %q", tok)
	}
	if _, err := svc.Me(ctx); err == nil {
		t.Error("Me after logout should fail")
	}
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore("")
	svc := NewService(nil, store, nil)

	if _, err := svc.Claims(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}

	exp := time.Now().Add(time.Hour).Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@b.c", "exp": exp}).
		SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Set(ctx, signed)
	claims, err := svc.Claims(ctx)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if sub, _ := claims.GetSubject(); sub != "a@b.c" {
		t.Errorf("sub = %q", sub)
	}

	_ = store.Set(ctx, "opaque-token")
	if _, err := svc.Claims(ctx); err == nil {
		t.Error("expected error for non-JWT token")
	}
}
