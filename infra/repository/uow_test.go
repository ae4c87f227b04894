package repository

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockUoW(t *testing.T) (*UoW, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewUoW(db), mock
}

func TestUoW_DoAndGetRepository(t *testing.T) {
	uow, mock := newMockUoW(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		repoAny, err := txUow.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok := repoAny.(*accountRepository)
		assert.True(t, ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok = repoAny.(*transactionRepository)
		assert.True(t, ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.ConversionRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok = repoAny.(*conversionRepository)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_UnsupportedRepository(t *testing.T) {
	uow, _ := newMockUoW(t)
	_, err := uow.GetRepository(reflect.TypeOf(0))
	assert.Error(t, err)
}

func TestUoW_TypeSafeAccessors(t *testing.T) {
	uow, mock := newMockUoW(t)

	accRepo, err := uow.AccountRepository()
	require.NoError(t, err)
	assert.NotNil(t, accRepo)
	txRepo, err := uow.TransactionRepository()
	require.NoError(t, err)
	assert.NotNil(t, txRepo)
	convRepo, err := uow.ConversionRepository()
	require.NoError(t, err)
	assert.NotNil(t, convRepo)

	mock.ExpectBegin()
	mock.ExpectCommit()
	err = uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		_, err := txUow.AccountRepository()
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_RollbackOnError(t *testing.T) {
	uow, mock := newMockUoW(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalance_ConditionalUpdate(t *testing.T) {
	uow, mock := newMockUoW(t)
	userID := uuid.New()
	repo, err := uow.AccountRepository()
	require.NoError(t, err)

	// Debit covered: one row updated, new balance read back.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts" SET "credit_balance"=credit_balance + $1`)).
		WithArgs(int64(-40), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(-40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "credit_balance" FROM "accounts" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(60))

	balance, err := repo.AdjustBalance(context.Background(), userID, -40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	// Debit not covered: no row updated, the account exists.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "accounts" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err = repo.AdjustBalance(context.Background(), userID, -1000)
	assert.ErrorIs(t, err, account.ErrInsufficientCredits)

	// No account at all.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "accounts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err = repo.AdjustBalance(context.Background(), userID, 10)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
