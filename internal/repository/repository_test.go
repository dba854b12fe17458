package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/pkg/database"
)

const testUserID = "8d3f2b7a-0c4e-4f55-9b1a-2c6d7e8f9a01"

func newMock(t *testing.T) (*database.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &database.Postgres{DB: db}, mock
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg(), true, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &domain.User{Email: "a@x.com", Enabled: true, AccountNonLocked: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_GetByEmailLoadsRoles(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "enabled", "account_non_locked", "created_at", "updated_at"}).
			AddRow(testUserID, "a@x.com", "hash", true, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM roles r")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "authority"}).AddRow(1, domain.RoleUser))

	user, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, testUserID, user.ID)
	require.NotNil(t, user.PasswordHash)
	assert.Equal(t, "hash", *user.PasswordHash)
	assert.True(t, user.Enabled)
	assert.False(t, user.AccountNonLocked)
	assert.Equal(t, []string{domain.RoleUser}, user.Authorities())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailNullPassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "enabled", "account_non_locked", "created_at", "updated_at"}).
			AddRow(testUserID, "g@x.com", nil, true, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM roles r")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "authority"}))

	user, err := repo.GetByEmail(context.Background(), "g@x.com")
	require.NoError(t, err)
	assert.Nil(t, user.PasswordHash)
	assert.False(t, user.HasPassword())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), testUserID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.User{ID: testUserID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_LockByIDInsideTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testUserID))
	mock.ExpectCommit()

	err := db.WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.LockByID(ctx, testUserID)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAuthenticationRepository_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserAuthenticationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_authentications")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &domain.UserAuthentication{UserID: testUserID, ProviderID: 2, ProviderUserID: "sub"})
	assert.ErrorIs(t, err, ErrDuplicateAuthLink)
}

func TestUserAuthenticationRepository_GetByProviderAndSubject(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserAuthenticationRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ap.name = $1 AND ua.provider_user_id = $2")).
		WithArgs(domain.ProviderGoogle, "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider_id", "name", "provider_user_id", "created_at", "updated_at"}).
			AddRow("link-1", testUserID, 2, domain.ProviderGoogle, "sub-1", now, now))

	link, err := repo.GetByProviderAndSubject(context.Background(), domain.ProviderGoogle, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, testUserID, link.UserID)
	assert.Equal(t, domain.ProviderGoogle, link.ProviderName)
}

func TestRefreshTokenRepository_DeleteByUserID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE user_id = $1")).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRefreshTokenRepository_DeleteByTokenHashMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE token_hash = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteByTokenHash(context.Background(), "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordResetTokenRepository_GetValidFiltersExpiry(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetTokenRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE token_hash = $1 AND expires_at > $2")).
		WithArgs("hash", anyTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}))

	_, err := repo.GetValidByTokenHash(context.Background(), "hash", now)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPasswordResetTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM password_reset_tokens WHERE expires_at <= $1")).
		WithArgs(anyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

type anyTime struct{}

func (anyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}
