package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{"nil error returns nil", nil, nil},
		{"duplicate key maps to ErrAlreadyExists", gorm.ErrDuplicatedKey, domain.ErrAlreadyExists},
		{"record not found maps to ErrNotFound", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{
			"wrapped duplicate key maps correctly",
			errors.Join(errors.New("outer error"), gorm.ErrDuplicatedKey),
			domain.ErrAlreadyExists,
		},
		{"bad connection is unavailable", driver.ErrBadConn, domain.ErrStoreUnavailable},
		{"closed connection is unavailable", sql.ErrConnDone, domain.ErrStoreUnavailable},
		{
			"closed pool is unavailable",
			fmt.Errorf("begin: %w", errors.New("sql: database is closed")),
			domain.ErrStoreUnavailable,
		},
		{
			"deadline is unavailable",
			fmt.Errorf("query: %w", context.DeadlineExceeded),
			domain.ErrStoreUnavailable,
		},
		{
			"network error is unavailable",
			&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			domain.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := MapGormErrorToDomain(tt.input)
			if tt.expected == nil {
				require.NoError(t, result)
				return
			}
			require.Error(t, result)
			assert.ErrorIs(t, result, tt.expected)
		})
	}
}

func TestMapGormErrorToDomain_UnmappedErrorReturnsOriginal(t *testing.T) {
	t.Parallel()
	original := errors.New("check constraint failed")

	result := MapGormErrorToDomain(original)

	assert.Same(t, original, result)
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(func() error { return nil }))
	assert.ErrorIs(t, WrapError(func() error { return gorm.ErrRecordNotFound }), domain.ErrNotFound)
	assert.ErrorIs(t, WrapError(func() error { return gorm.ErrDuplicatedKey }), domain.ErrAlreadyExists)
	assert.EqualError(t, WrapError(func() error { return errors.New("custom error") }), "custom error")

	assert.Panics(t, func() {
		_ = WrapError(func() error { panic("test panic") })
	})
}
