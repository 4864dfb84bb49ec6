package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"corebank/internal/pkg/apperrors"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

const pgxmockExpectationsNotMetMsg = "there were unfulfilled pgxmock expectations"

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newMockPool(t *testing.T) (context.Context, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), mockPool
}

func TestNextCodeFormatsPrefixAndCounter(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(nextCodeSQL)).
		WithArgs("CUST").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(7)))

	code, err := nextCode(ctx, mockPool, "CUST")
	assert.NoError(t, err)
	assert.Equal(t, "CUST0007", code)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestNextCodeGrowsPastFourDigits(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(nextCodeSQL)).
		WithArgs("LL").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(12345)))

	code, err := nextCode(ctx, mockPool, "LL")
	assert.NoError(t, err)
	assert.Equal(t, "LL12345", code)
}

func TestNextCodeWrapsDatabaseError(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(nextCodeSQL)).
		WithArgs("ADM").
		WillReturnError(errors.New("connection refused"))

	_, err := nextCode(ctx, mockPool, "ADM")
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}
