package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

// AuthService handles registration, login and the one-time code step.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	otps          auth.OTPStore
	mailer        auth.Mailer
	otpTTL        time.Duration
	logger        *slog.Logger

	// registerMu makes the first-account check and insert atomic within
	// this process.
	registerMu sync.Mutex
}

// AuthConfig wires the optional login second factor.
type AuthConfig struct {
	OTPStore auth.OTPStore
	Mailer   auth.Mailer
	OTPTTL   time.Duration
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OTPStore == nil {
		cfg.OTPStore = auth.NewMemoryOTPStore()
	}
	if cfg.Mailer == nil {
		cfg.Mailer = auth.NewLogMailer(logger)
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		otps:          cfg.OTPStore,
		mailer:        cfg.Mailer,
		otpTTL:        cfg.OTPTTL,
		logger:        logger,
	}
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Password   string      `json:"password"`
	Role       models.Role `json:"role"`
	OTPEnabled bool        `json:"otp_enabled"`
}

// Session is the outcome of a login step.
type Session struct {
	// OTPRequired means a code was mailed and must be verified next.
	OTPRequired bool         `json:"otp_required"`
	Token       string       `json:"token,omitempty"`
	ExpiresAt   int64        `json:"expires_at,omitempty"`
	User        *models.User `json:"user,omitempty"`
}

// Register creates a user. Only admins may register users, except for the
// very first account, which always becomes an admin.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if n == 0 {
		role = models.RoleAdmin
		s.logger.Info("Bootstrapping first admin account", "email", req.Email)
	} else {
		caller, err := callerFrom(ctx)
		if err != nil {
			return nil, err
		}
		if caller.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
	}

	user, err := s.authenticator.Register(ctx, req.Email, req.Name, req.Password, role, auth.WithOTP(req.OTPEnabled))
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Email, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}

// Login checks the password. Users with OTP enabled get a mailed code and
// a session with OTPRequired set; everyone else gets a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, auth.ErrInvalidCredentials
	}

	if !user.OTPEnabled {
		return s.issue(user)
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, err
	}
	if err := s.otps.Save(ctx, user.Email, code, s.otpTTL); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.otpTTL)
	if err := s.mailer.Send(ctx, user.Email, "Your login code", body); err != nil {
		return nil, fmt.Errorf("failed to send verification code: %w", err)
	}

	s.logger.Info("Verification code sent", "user_id", user.ID)
	return &Session{OTPRequired: true}, nil
}

// VerifyOTP exchanges a mailed code for a token. A code works once.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, auth.ErrInvalidOTP
	}
	if err := s.otps.Consume(ctx, email, code); err != nil {
		s.logger.Warn("Verification failed", "email", email, "error", err)
		if errors.Is(err, auth.ErrInvalidOTP) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, auth.ErrInvalidOTP
	}
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwtManager.TTL()).Unix(),
		User:      user,
	}, nil
}

// Me returns the calling user.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		// Token outlived its account.
		return nil, ErrUnauthenticated
	}
	return user, err
}

// ListUsers returns every account. Admin only.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.users.ListUsers(ctx)
}
