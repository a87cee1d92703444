package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage/sqlite"
)

type sentMail struct {
	to, subject, body string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	code := codePattern.FindString(m.sent[len(m.sent)-1].body)
	require.NotEmpty(t, code, "no code in mail")
	return code
}

func newAuthService(t *testing.T) (*AuthService, *auth.JWTManager, *captureMailer) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	mailer := &captureMailer{}
	svc := NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, AuthConfig{
		OTPStore: auth.NewMemoryOTPStore(),
		Mailer:   mailer,
		OTPTTL:   time.Minute,
	}, nil)
	return svc, jwtManager, mailer
}

func TestAuthService_Register(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	// The first account bootstraps as admin whatever role was asked for.
	admin, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "correct-horse", Role: models.RoleOwner})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = svc.Register(ctx, RegisterRequest{Email: "olga@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	owner, err := svc.Register(as(admin), RegisterRequest{Email: "olga@example.com", Name: "Olga", Password: "correct-horse", OTPEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.True(t, owner.OTPEnabled)

	_, err = svc.Register(as(owner), RegisterRequest{Email: "x@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Register(as(admin), RegisterRequest{Email: "olga@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	_, err = svc.Register(as(admin), RegisterRequest{Email: "weak@example.com", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	_, err = svc.Register(as(admin), RegisterRequest{Email: "role@example.com", Password: "correct-horse", Role: "landlord"})
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestAuthService_ConcurrentBootstrap(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, RegisterRequest{
				Email:    fmt.Sprintf("user%d@example.com", i),
				Password: "correct-horse",
			})
		}(i)
	}
	wg.Wait()

	admins := 0
	for _, err := range errs {
		if err == nil {
			admins++
			continue
		}
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
	assert.Equal(t, 1, admins, "only one account may bootstrap as admin")

	users, err := svc.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
}

func TestAuthService_Login(t *testing.T) {
	svc, jwtManager, mailer := newAuthService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Register(as(admin), RegisterRequest{Email: "olga@example.com", Name: "Olga", Password: "battery-staple", OTPEnabled: true})
	require.NoError(t, err)

	t.Run("password only", func(t *testing.T) {
		session, err := svc.Login(ctx, "ADA@example.com", "correct-horse")
		require.NoError(t, err)
		assert.False(t, session.OTPRequired)
		require.NotEmpty(t, session.Token)

		claims, err := jwtManager.Validate(session.Token)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, claims.UserID)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ada@example.com", "wrong-horse")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("one-time code", func(t *testing.T) {
		session, err := svc.Login(ctx, "olga@example.com", "battery-staple")
		require.NoError(t, err)
		assert.True(t, session.OTPRequired)
		assert.Empty(t, session.Token)

		code := mailer.lastCode(t)
		assert.Equal(t, "olga@example.com", mailer.sent[len(mailer.sent)-1].to)

		_, err = svc.VerifyOTP(ctx, "olga@example.com", "000000x")
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)

		session, err = svc.VerifyOTP(ctx, "Olga@Example.com", code)
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, "olga@example.com", session.User.Email)

		// Codes work once.
		_, err = svc.VerifyOTP(ctx, "olga@example.com", code)
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)
	})

	t.Run("guessing is limited", func(t *testing.T) {
		_, err := svc.Login(ctx, "olga@example.com", "battery-staple")
		require.NoError(t, err)
		code := mailer.lastCode(t)

		for i := 0; i < auth.MaxOTPAttempts; i++ {
			_, err = svc.VerifyOTP(ctx, "olga@example.com", "000000x")
			assert.ErrorIs(t, err, auth.ErrInvalidOTP)
		}
		_, err = svc.VerifyOTP(ctx, "olga@example.com", code)
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)
	})
}

func TestAuthService_MeAndUsers(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "correct-horse"})
	require.NoError(t, err)
	owner, err := svc.Register(as(admin), RegisterRequest{Email: "olga@example.com", Name: "Olga", Password: "correct-horse"})
	require.NoError(t, err)

	me, err := svc.Me(as(owner))
	require.NoError(t, err)
	assert.Equal(t, "Olga", me.Name)

	_, err = svc.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ghost := models.NewUser("ghost@example.com", "Ghost", "", models.RoleOwner)
	_, err = svc.Me(as(ghost))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	users, err := svc.ListUsers(as(admin))
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.ListUsers(as(owner))
	assert.ErrorIs(t, err, ErrForbidden)
}
