package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"proposals/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users     map[string]store.User
	lookupErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if m.lookupErr != nil {
		return store.User{}, m.lookupErr
	}
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return store.User{}, sql.ErrNoRows
}

func (m *mockUserStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (store.User, error) {
	user := store.User{
		ID:                 "user-" + displayName,
		Email:              email,
		DisplayName:        displayName,
		PasswordHash:       passwordHash,
		Plan:               "free",
		SubscriptionStatus: "active",
	}
	m.users[email] = user
	return user, nil
}

func newTestService(s UserStore) *Service {
	svc := NewService(s)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignUp(t *testing.T) {
	svc := newTestService(newMockUserStore())

	user, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "  Avery@Example.com ",
		Password:    "correct-horse",
		DisplayName: "Avery",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "avery@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Fatal("password stored in plain text")
	}
	if user.Plan != "free" {
		t.Fatalf("expected free plan, got %q", user.Plan)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService(newMockUserStore())

	tests := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"missing email", SignUpRequest{Password: "password1", DisplayName: "A"}, ErrInvalidInput},
		{"missing name", SignUpRequest{Email: "a@example.com", Password: "password1"}, ErrInvalidInput},
		{"malformed email", SignUpRequest{Email: "not-an-email", Password: "password1", DisplayName: "A"}, ErrInvalidInput},
		{"short password", SignUpRequest{Email: "a@example.com", Password: "short", DisplayName: "A"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SignUp() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(newMockUserStore())
	req := SignUpRequest{Email: "a@example.com", Password: "password1", DisplayName: "A"}

	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUpSurfacesStoreFailure(t *testing.T) {
	s := newMockUserStore()
	s.lookupErr = errors.New("connection reset")
	svc := newTestService(s)

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "password1", DisplayName: "A"})
	if err == nil || errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	svc := newTestService(newMockUserStore())
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "password1", DisplayName: "A"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	user, err := svc.SignIn(context.Background(), SignInRequest{Email: "A@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "a@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "nobody@example.com", Password: "password1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
