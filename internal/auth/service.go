package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gearguard.io/internal/apperr"
	"gearguard.io/internal/audit"
	"gearguard.io/internal/gear"
	"gearguard.io/internal/ids"
	"gearguard.io/internal/obs"
)

// Service registers users and signs them in.
type Service struct {
	users         gear.UserStore
	codec         *TokenCodec
	google        IDTokenVerifier
	autoProvision bool
	now           func() time.Time
}

// Session is what every successful sign-in returns.
type Session struct {
	User  gear.User `json:"user"`
	Token string    `json:"token"`
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithGoogleVerifier enables Google sign-in. Without it LoginWithGoogle
// reports that OAuth is not configured.
func WithGoogleVerifier(v IDTokenVerifier) ServiceOption {
	return func(s *Service) error {
		s.google = v
		return nil
	}
}

// WithAutoProvision controls whether an unknown Google account gets a user record.
func WithAutoProvision(enabled bool) ServiceOption {
	return func(s *Service) error {
		s.autoProvision = enabled
		return nil
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) error {
		if now == nil {
			return errors.New("auth: nil clock")
		}
		s.now = now
		return nil
	}
}

func NewService(users gear.UserStore, codec *TokenCodec, opts ...ServiceOption) (*Service, error) {
	if users == nil || codec == nil {
		return nil, errors.New("auth: user store and token codec are required")
	}
	s := &Service{users: users, codec: codec, autoProvision: true, now: time.Now}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Codec exposes the token codec used to verify bearer tokens.
func (s *Service) Codec() *TokenCodec { return s.codec }

// Register creates a LOCAL user with the default role and department.
func (s *Service) Register(ctx context.Context, email, password, name string) (Session, error) {
	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		obs.AuthAttempt("register", "conflict")
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, gear.ErrNotFound) {
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return Session{}, err
		}
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}
	u := s.newUser(email, name, gear.ProviderLocal)
	u.PasswordHash = hash
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gear.ErrConflict) {
			obs.AuthAttempt("register", "conflict")
			return Session{}, ErrEmailTaken
		}
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}

	sess, err := s.session(u)
	if err != nil {
		return Session{}, err
	}
	obs.AuthAttempt("register", "success")
	_ = audit.LogEvent(audit.WithActor(ctx, u.ID), "auth.register", map[string]any{"email": u.Email})
	return sess, nil
}

// Login checks a password. Unknown email, federated account and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, gear.ErrNotFound):
		_ = VerifyPassword("", password)
		return Session{}, s.loginFailed(ctx, email, "unknown_email")
	case err != nil:
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}
	if !u.HasPassword() {
		_ = VerifyPassword("", password)
		return Session{}, s.loginFailed(ctx, email, "no_password")
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return Session{}, s.loginFailed(ctx, email, "bad_password")
	}

	sess, err := s.session(u)
	if err != nil {
		return Session{}, err
	}
	obs.AuthAttempt("password", "success")
	_ = audit.LogEvent(audit.WithActor(ctx, u.ID), "auth.login", map[string]any{"email": u.Email, "outcome": "success"})
	return sess, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string) error {
	obs.AuthAttempt("password", "failure")
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{"email": email, "outcome": "failure", "reason": reason})
	return ErrInvalidCredentials
}

// LoginWithGoogle exchanges a Google ID token for a session.
func (s *Service) LoginWithGoogle(ctx context.Context, credential string) (Session, error) {
	if s.google == nil {
		return Session{}, ErrGoogleDisabled
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Session{}, ErrMissingCredential
	}
	ident, err := s.google.VerifyIDToken(ctx, credential)
	if err != nil {
		obs.AuthAttempt("google", "rejected")
		obs.Logger().WithError(err).WithField("request_id", audit.RequestID(ctx)).Warn("google id token rejected")
		return Session{}, ErrIdentityRejected
	}
	if strings.TrimSpace(ident.Email) == "" {
		obs.AuthAttempt("google", "no_email")
		return Session{}, ErrNoEmailOnAccount
	}
	// the email is only an account key once Google has verified ownership
	if !ident.EmailVerified {
		obs.AuthAttempt("google", "unverified_email")
		_ = audit.LogEvent(ctx, "auth.google", map[string]any{"email": ident.Email, "outcome": "failure", "reason": "unverified_email"})
		return Session{}, ErrIdentityRejected
	}

	u, err := s.users.UserByEmail(ctx, ident.Email)
	switch {
	case err == nil:
	case errors.Is(err, gear.ErrNotFound):
		if !s.autoProvision {
			obs.AuthAttempt("google", "unknown_account")
			return Session{}, ErrInvalidCredentials
		}
		if u, err = s.provision(ctx, ident); err != nil {
			return Session{}, err
		}
	default:
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}

	sess, err := s.session(u)
	if err != nil {
		return Session{}, err
	}
	obs.AuthAttempt("google", "success")
	_ = audit.LogEvent(audit.WithActor(ctx, u.ID), "auth.google", map[string]any{"email": u.Email})
	return sess, nil
}

// provision creates a federated user. No password is stored.
func (s *Service) provision(ctx context.Context, ident GoogleIdentity) (gear.User, error) {
	name := strings.TrimSpace(ident.Name)
	if name == "" {
		name, _, _ = strings.Cut(ident.Email, "@")
	}
	u := s.newUser(ident.Email, name, gear.ProviderGoogle)
	err := s.users.CreateUser(ctx, u)
	if errors.Is(err, gear.ErrConflict) {
		// lost a race with a concurrent sign-in for the same email
		existing, lookupErr := s.users.UserByEmail(ctx, ident.Email)
		if lookupErr != nil {
			return gear.User{}, apperr.Wrap(apperr.Internal, "Internal server error", lookupErr)
		}
		return existing, nil
	}
	if err != nil {
		return gear.User{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}
	_ = audit.LogEvent(audit.WithActor(ctx, u.ID), "auth.google_provisioned", map[string]any{"email": u.Email})
	return u, nil
}

func (s *Service) newUser(email, name string, provider gear.AuthProvider) gear.User {
	now := s.now().UTC()
	return gear.User{
		ID:           ids.New(),
		Email:        email,
		Name:         name,
		Role:         gear.RoleUser,
		Department:   gear.DefaultDepartment,
		AuthProvider: provider,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Service) session(u gear.User) (Session, error) {
	token, err := s.codec.Issue(Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Internal, "Internal server error", err)
	}
	return Session{User: u, Token: token}, nil
}
