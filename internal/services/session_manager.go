package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/tokens"
)

// TokenPair is the result of a successful sign-in.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// SessionManager issues, validates and revokes access and refresh tokens.
// Refresh sessions are only ever changed through its methods.
type SessionManager struct {
	store       repository.Store
	issuer      *tokens.Issuer
	maxSessions int
	log         *zap.Logger
}

func NewSessionManager(store repository.Store, issuer *tokens.Issuer, maxSessions int, log *zap.Logger) *SessionManager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &SessionManager{
		store:       store,
		issuer:      issuer,
		maxSessions: maxSessions,
		log:         log.Named("session"),
	}
}

// Issue signs a new token pair for userID and records the refresh session.
// Sessions older than the refresh lifetime are pruned first, and the oldest
// sessions are dropped beyond the per-user limit.
func (m *SessionManager) Issue(ctx context.Context, userID uint64) (TokenPair, error) {
	access, err := m.issuer.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issuer.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}

	err = m.store.Transaction(ctx, func(tx repository.Store) error {
		sessions := tx.Sessions()
		if err := sessions.DeleteIssuedBefore(ctx, userID, refresh.IssuedAt.Add(-m.issuer.RefreshTTL())); err != nil {
			return err
		}
		if err := sessions.Add(ctx, &models.RefreshSession{
			UserID:    userID,
			TokenHash: tokens.Hash(refresh.Token),
			IssuedAt:  refresh.IssuedAt,
		}); err != nil {
			return err
		}

		active, err := sessions.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if excess := len(active) - m.maxSessions; excess > 0 {
			ids := make([]uint64, 0, excess)
			for _, s := range active[:excess] {
				ids = append(ids, s.ID)
			}
			return sessions.DeleteByIDs(ctx, ids)
		}
		return nil
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to record session: %w", err)
	}

	m.log.Debug("session issued", zap.Uint64("user_id", userID))
	return TokenPair{
		AccessToken:     access.Token,
		AccessExpiresAt: access.ExpiresAt,
		RefreshToken:    refresh.Token,
	}, nil
}

// Authenticate verifies an access token and loads the current user record.
func (m *SessionManager) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, ErrTokenMissing
	}

	claims, err := m.issuer.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	user, err := m.store.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, storeError(err, ErrTokenInvalid, "load user")
	}
	return user, nil
}

// Refresh mints a new access token from a refresh token that verifies and
// is still recorded for its user.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (tokens.Issued, error) {
	if refreshToken == "" {
		return tokens.Issued{}, ErrRefreshMissing
	}

	claims, err := m.issuer.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return tokens.Issued{}, ErrRefreshExpired
		}
		return tokens.Issued{}, ErrRefreshInvalid
	}

	active, err := m.store.Sessions().Exists(ctx, claims.UserID, tokens.Hash(refreshToken))
	if err != nil {
		return tokens.Issued{}, fmt.Errorf("failed to look up session: %w", err)
	}
	if !active {
		m.log.Info("refresh with revoked token", zap.Uint64("user_id", claims.UserID))
		return tokens.Issued{}, ErrRefreshInvalid
	}

	if _, err := m.store.Users().FindByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tokens.Issued{}, ErrRefreshInvalid
		}
		return tokens.Issued{}, fmt.Errorf("failed to load user: %w", err)
	}

	return m.issuer.IssueAccess(claims.UserID)
}

// Revoke removes one refresh session. Revoking an absent token is a no-op.
func (m *SessionManager) Revoke(ctx context.Context, userID uint64, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := m.store.Sessions().Delete(ctx, userID, tokens.Hash(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAll removes every refresh session of userID.
func (m *SessionManager) RevokeAll(ctx context.Context, userID uint64) error {
	if err := m.store.Sessions().DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	m.log.Info("all sessions revoked", zap.Uint64("user_id", userID))
	return nil
}

// revokeAllTx is RevokeAll inside an existing unit of work.
func (m *SessionManager) revokeAllTx(ctx context.Context, tx repository.Store, userID uint64) error {
	return tx.Sessions().DeleteAll(ctx, userID)
}

// ActiveSessions returns the refresh sessions of userID, oldest first.
func (m *SessionManager) ActiveSessions(ctx context.Context, userID uint64) ([]models.RefreshSession, error) {
	return m.store.Sessions().ListByUser(ctx, userID)
}
