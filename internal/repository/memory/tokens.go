package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/repository"
)

type refreshTokenRepository struct {
	s *Store
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.data.refreshTokens {
		if t.UserID == token.UserID || t.TokenHash == token.TokenHash {
			return fmt.Errorf("refresh token for user %s already exists: %w", token.UserID, repository.ErrDuplicateToken)
		}
	}

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.s.data.refreshTokens[token.ID] = *token
	return nil
}

func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.data.refreshTokens {
		if t.TokenHash == tokenHash {
			found := t
			return &found, nil
		}
	}
	return nil, fmt.Errorf("token with hash not found: %w", repository.ErrNotFound)
}

func (r *refreshTokenRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tokens []*domain.RefreshToken
	for _, t := range r.s.data.refreshTokens {
		if t.UserID == userID {
			found := t
			tokens = append(tokens, &found)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.refreshTokens[tokenID]; !ok {
		return fmt.Errorf("token with id %s not found: %w", tokenID, repository.ErrNotFound)
	}
	delete(r.s.data.refreshTokens, tokenID)
	return nil
}

func (r *refreshTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.data.refreshTokens {
		if t.TokenHash == tokenHash {
			delete(r.s.data.refreshTokens, id)
			return nil
		}
	}
	return fmt.Errorf("token with hash not found: %w", repository.ErrNotFound)
}

func (r *refreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.data.refreshTokens {
		if t.UserID == userID {
			delete(r.s.data.refreshTokens, id)
			n++
		}
	}
	return n, nil
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.data.refreshTokens {
		if t.IsExpired(now) {
			delete(r.s.data.refreshTokens, id)
			n++
		}
	}
	return n, nil
}

type resetTokenRepository struct {
	s *Store
}

func (r *resetTokenRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.data.resetTokens {
		if t.UserID == token.UserID || t.TokenHash == token.TokenHash {
			return fmt.Errorf("reset token for user %s already exists: %w", token.UserID, repository.ErrDuplicateToken)
		}
	}

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.s.data.resetTokens[token.ID] = *token
	return nil
}

func (r *resetTokenRepository) GetValidByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.data.resetTokens {
		if t.TokenHash == tokenHash && !t.IsExpired(now) {
			found := t
			return &found, nil
		}
	}
	return nil, fmt.Errorf("reset token not found: %w", repository.ErrNotFound)
}

func (r *resetTokenRepository) Delete(ctx context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.resetTokens[tokenID]; !ok {
		return fmt.Errorf("reset token with id %s not found: %w", tokenID, repository.ErrNotFound)
	}
	delete(r.s.data.resetTokens, tokenID)
	return nil
}

func (r *resetTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.data.resetTokens {
		if t.UserID == userID {
			delete(r.s.data.resetTokens, id)
			n++
		}
	}
	return n, nil
}

func (r *resetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.data.resetTokens {
		if t.IsExpired(now) {
			delete(r.s.data.resetTokens, id)
			n++
		}
	}
	return n, nil
}
