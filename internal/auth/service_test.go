package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"eatgreet/internal/config"
	"eatgreet/internal/domain"
)

type fakeUsersRepo struct {
	byEmail     map[string]domain.User
	restaurants map[string]domain.Restaurant
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byEmail:     map[string]domain.User{},
		restaurants: map[string]domain.Restaurant{},
	}
}

func (f *fakeUsersRepo) CreateUserTx(ctx context.Context, u domain.User, restaurant *domain.Restaurant) (domain.User, error) {
	if restaurant != nil {
		existing, ok := f.restaurants[restaurant.Slug]
		if !ok {
			restaurant.ID = uuid.New()
			f.restaurants[restaurant.Slug] = *restaurant
			existing = *restaurant
		}
		u.RestaurantID = existing.ID
		u.RestaurantName = existing.Name
	}
	u.ID = uuid.New()
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (domain.User, error) {
	for email, u := range f.byEmail {
		if u.ID == id {
			u.Name = name
			u.Phone = phone
			f.byEmail[email] = u
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func testAuthService(repo UsersRepositoryInterface) AuthServiceInterface {
	return NewAuthService(repo, config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
}

func adminRegistration() RegisterRequest {
	return RegisterRequest{
		Name:           "Asha",
		Email:          "asha@example.com",
		Password:       "secret123",
		Role:           "admin",
		RestaurantName: "Spice Garden",
		TotalTables:    12,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUsersRepo()
	svc := testAuthService(repo)
	ctx := context.Background()

	session, err := svc.Register(ctx, adminRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.Token == "" {
		t.Error("registration issued no token")
	}
	if session.User.RestaurantName != "Spice Garden" {
		t.Errorf("restaurant = %q, want Spice Garden", session.User.RestaurantName)
	}
	if _, ok := repo.restaurants["spice_garden"]; !ok {
		t.Error("restaurant row was not created")
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Error("login returned a different user")
	}

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := testAuthService(newFakeUsersRepo())
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		wantErr error
	}{
		{"admin without restaurant", func(r *RegisterRequest) { r.RestaurantName = " " }, ErrValidation},
		{"kitchen without restaurant", func(r *RegisterRequest) { r.Role = "kitchen"; r.RestaurantName = "" }, ErrValidation},
		{"unknown role", func(r *RegisterRequest) { r.Role = "owner" }, ErrValidation},
		{"superadmin not self-served", func(r *RegisterRequest) { r.Role = "superadmin" }, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := adminRegistration()
			tt.mutate(&req)
			_, err := svc.Register(ctx, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := testAuthService(newFakeUsersRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, adminRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, adminRegistration())
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testAuthService(newFakeUsersRepo())
	user := domain.User{
		ID:             uuid.New(),
		Role:           domain.RoleAdmin,
		RestaurantName: "Spice Garden",
	}

	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("uid = %v, want %v", claims.UserID, user.ID)
	}
	if claims.Role != domain.RoleAdmin || claims.RestaurantName != "Spice Garden" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := testAuthService(newFakeUsersRepo())
	verifier := NewAuthService(newFakeUsersRepo(), config.AuthConfig{
		JWTSecret: "another-secret",
		TokenTTL:  time.Hour,
	})

	token, err := issuer.IssueToken(domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Error("token with wrong signature was accepted")
	}
	if _, err := issuer.ParseToken("not.a.token"); err == nil {
		t.Error("garbage token was accepted")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(newFakeUsersRepo(), config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  -time.Minute,
	})
	token, err := svc.IssueToken(domain.User{ID: uuid.New(), Role: domain.RoleCustomer})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := testAuthService(newFakeUsersRepo())
	ctx := context.Background()

	session, err := svc.Register(ctx, adminRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, session.User.ID, "Asha K", "9998887777")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Asha K" || updated.Phone != "9998887777" {
		t.Errorf("profile = %+v", updated)
	}

	if _, err := svc.UpdateProfile(ctx, session.User.ID, "  ", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name err = %v, want ErrValidation", err)
	}
}
