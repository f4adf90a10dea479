// Package elevation grants time-bounded admin privilege ("ElevatedSession") gated by a TOTP second factor.
// Destructive admin operations (global ban, guild suspend, announcement create) require an active session. Unlike
// auth's MFA ticket, an elevated session is checked repeatedly over its window rather than consumed on first use, so
// it is a SET-with-TTL in Valkey, not the GETDEL one-shot pattern used for login MFA tickets.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/driftline/driftline-server/internal/auth"
	"github.com/driftline/driftline-server/internal/user"
)

// Sentinel errors for the elevation package.
var (
	ErrMFANotEnabled = errors.New("MFA is not enabled for this account")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrNotElevated   = errors.New("no active elevated session")
)

func sessionKey(userID uuid.UUID) string {
	return "elevation:" + userID.String()
}

// CredentialsLookup is the subset of user.Repository elevation needs to verify a TOTP code.
type CredentialsLookup interface {
	GetCredentialsByID(ctx context.Context, id uuid.UUID) (*user.Credentials, error)
}

// Service issues and checks elevated sessions.
type Service struct {
	rdb           *redis.Client
	users         CredentialsLookup
	encryptionKey string
	ttl           time.Duration
	log           zerolog.Logger
}

// NewService creates an elevation service.
func NewService(rdb *redis.Client, users CredentialsLookup, encryptionKey string, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{rdb: rdb, users: users, encryptionKey: encryptionKey, ttl: ttl, log: logger}
}

// Elevate verifies a fresh TOTP code in constant time and, on success, opens a session valid for the configured TTL.
func (s *Service) Elevate(ctx context.Context, userID uuid.UUID, code string) (time.Time, error) {
	creds, err := s.users.GetCredentialsByID(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get credentials for elevation: %w", err)
	}
	if !creds.MFAEnabled || creds.MFASecret == nil {
		return time.Time{}, ErrMFANotEnabled
	}

	secret, err := auth.DecryptTOTPSecret(*creds.MFASecret, s.encryptionKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("decrypt MFA secret: %w", err)
	}

	if !totp.Validate(code, secret) {
		return time.Time{}, ErrInvalidCode
	}

	expiresAt := time.Now().Add(s.ttl)
	if err := s.rdb.Set(ctx, sessionKey(userID), expiresAt.Format(time.RFC3339), s.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("store elevated session: %w", err)
	}
	return expiresAt, nil
}

// IsElevated reports whether userID currently holds an active elevated session.
func (s *Service) IsElevated(ctx context.Context, userID uuid.UUID) (bool, error) {
	err := s.rdb.Get(ctx, sessionKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check elevated session: %w", err)
	}
	return true, nil
}

// Revoke ends an elevated session early (e.g. on logout).
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("revoke elevated session: %w", err)
	}
	return nil
}
