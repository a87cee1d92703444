package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidOTP is returned for a wrong, expired or already used code.
var ErrInvalidOTP = errors.New("invalid or expired verification code")

const otpDigits = 6

// MaxOTPAttempts is the number of wrong guesses after which a pending code
// is discarded.
const MaxOTPAttempts = 5

// GenerateOTP returns a random numeric code of six digits.
func GenerateOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// OTPStore keeps pending one-time codes keyed by user email.
type OTPStore interface {
	// Save stores code for key, replacing any pending one.
	Save(ctx context.Context, key, code string, ttl time.Duration) error

	// Consume checks code against the pending one and removes it on a match.
	// Returns ErrInvalidOTP when there is no match. The pending code is
	// removed after MaxOTPAttempts wrong guesses.
	Consume(ctx context.Context, key, code string) error
}

type otpEntry struct {
	code      string
	expiresAt time.Time
	failures  int
}

// MemoryOTPStore is an in-process OTPStore for single-instance deployments.
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

// NewMemoryOTPStore creates an empty in-memory store.
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		entries: make(map[string]otpEntry),
		now:     time.Now,
	}
}

func (s *MemoryOTPStore) Save(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Sweep expired codes so abandoned logins do not accumulate.
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = otpEntry{code: code, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryOTPStore) Consume(_ context.Context, key, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return ErrInvalidOTP
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return ErrInvalidOTP
	}
	if !codesEqual(e.code, code) {
		e.failures++
		if e.failures >= MaxOTPAttempts {
			delete(s.entries, key)
		} else {
			s.entries[key] = e
		}
		return ErrInvalidOTP
	}
	delete(s.entries, key)
	return nil
}

// RedisOTPStore keeps codes in Redis so every instance can verify them.
type RedisOTPStore struct {
	client redis.UniversalClient
}

// NewRedisOTPStore wraps an existing Redis client.
func NewRedisOTPStore(client redis.UniversalClient) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func otpKey(key string) string {
	return "otp:" + key
}

func attemptsKey(key string) string {
	return "otp:attempts:" + key
}

func (s *RedisOTPStore) Save(ctx context.Context, key, code string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKey(key), code, ttl)
	pipe.Del(ctx, attemptsKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Consume(ctx context.Context, key, code string) error {
	stored, err := s.client.Get(ctx, otpKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}
	if !codesEqual(stored, code) {
		return s.recordFailure(ctx, key)
	}
	// A concurrent verification may have consumed it first.
	n, err := s.client.Del(ctx, otpKey(key), attemptsKey(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	if n == 0 {
		return ErrInvalidOTP
	}
	return nil
}

// recordFailure counts a wrong guess and drops the code once the limit is
// reached. The counter expires with the code.
func (s *RedisOTPStore) recordFailure(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	failures := pipe.Incr(ctx, attemptsKey(key))
	ttl := pipe.PTTL(ctx, otpKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if failures.Val() >= MaxOTPAttempts {
		if err := s.client.Del(ctx, otpKey(key), attemptsKey(key)).Err(); err != nil {
			return fmt.Errorf("failed to delete code: %w", err)
		}
		return ErrInvalidOTP
	}
	if failures.Val() == 1 && ttl.Val() > 0 {
		if err := s.client.PExpire(ctx, attemptsKey(key), ttl.Val()).Err(); err != nil {
			return fmt.Errorf("failed to expire attempts: %w", err)
		}
	}
	return ErrInvalidOTP
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
