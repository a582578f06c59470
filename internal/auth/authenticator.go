// Package auth registers identities, checks credentials and issues and verifies session tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/chetan-code/taskcal/internal/repository"
	"github.com/google/uuid"
)

const (
	MinPasswordLength = 6
	// bcrypt only looks at the first 72 bytes and refuses longer input
	MaxPasswordBytes = 72

	// one message for unknown email and wrong password, so responses do not reveal which accounts exist
	msgInvalidCredentials = "invalid email or password"
	msgCredentialsMissing = "email and password are required"
	msgPasswordTooShort   = "password must be at least 6 characters"
	msgPasswordTooLong    = "password must be at most 72 bytes"
	msgEmailTaken         = "email already registered"
)

// UserStore is the credential store the authenticator depends on.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// Result is returned by every successful sign-in path.
type Result struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

type Authenticator struct {
	users  UserStore
	tokens *TokenManager
	cost   int
	now    func() time.Time

	// compared against when the email is unknown so both failure paths cost one bcrypt run
	dummyHash string
}

func NewAuthenticator(users UserStore, tokens *TokenManager, cost int) (*Authenticator, error) {
	dummy, err := HashPassword(uuid.NewString(), cost)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		users:     users,
		tokens:    tokens,
		cost:      cost,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates a new user with role "user" and signs them in.
func (a *Authenticator) Register(ctx context.Context, email, password string) (*Result, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	user, err := a.createUser(ctx, email, password, models.RoleUser)
	if err != nil {
		return nil, err
	}
	slog.Info("user_registered", "user_id", user.ID)

	return a.issue(user)
}

// Login checks the password against the stored hash and signs the user in.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation(msgCredentialsMissing)
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// burn the same hashing time as a real comparison
		_, _ = ComparePassword(a.dummyHash, password)
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	ok, err := ComparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if !ok {
		return nil, apperr.Authentication(msgInvalidCredentials)
	}

	return a.issue(user)
}

// LoginExternal signs in a user whose email was verified by an external provider,
// creating the account on first sign-in. Such accounts get an unusable random password.
func (a *Authenticator) LoginExternal(ctx context.Context, email string) (*Result, error) {
	if email == "" {
		return nil, apperr.Authentication("provider did not return an email")
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = a.createUser(ctx, email, uuid.NewString(), models.RoleUser)
		if err != nil {
			return nil, err
		}
		slog.Info("user_registered", "user_id", user.ID, "provider", "external")
	} else if err != nil {
		return nil, apperr.Unexpected(err)
	}

	return a.issue(user)
}

// EnsureAdmin creates an admin account for email unless one with that email already exists.
// An existing account keeps its role; a non-admin one is reported, not promoted.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	existing, err := a.users.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			slog.Warn("admin_seed_skipped", "user_id", existing.ID, "role", string(existing.Role))
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperr.Unexpected(err)
	}

	user, err := a.createUser(ctx, email, password, models.RoleAdmin)
	if apperr.KindOf(err) == apperr.KindConflict {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("admin_user_seeded", "user_id", user.ID)
	return nil
}

func (a *Authenticator) createUser(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	if _, err := a.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict(msgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}

	hash, err := HashPassword(password, a.cost)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    a.now().UTC().Truncate(time.Microsecond),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, apperr.Unexpected(err)
	}
	return user, nil
}

func (a *Authenticator) issue(u *models.User) (*Result, error) {
	token, err := a.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, User: u.Public()}, nil
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperr.Validation(msgCredentialsMissing)
	}
	if len(password) < MinPasswordLength {
		return apperr.Validation(msgPasswordTooShort)
	}
	if len(password) > MaxPasswordBytes {
		return apperr.Validation(msgPasswordTooLong)
	}
	return nil
}
