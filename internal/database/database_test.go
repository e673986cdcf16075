package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryReturnsNilOnEventualSuccess(t *testing.T) {
	calls := 0
	err := retry(5, 0, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "stops retrying after the first success")
}

func TestRetryKeepsLastErrorWhenAllAttemptsFail(t *testing.T) {
	// A pool that opens but fails its ping must not be reported as a
	// successful connection.
	pingFailed := errors.New("ping: connection refused")
	calls := 0
	err := retry(5, 0, func(int) error {
		calls++
		return pingFailed
	})
	require.ErrorIs(t, err, pingFailed)
	assert.Equal(t, 5, calls)
}

func TestRetrySingleAttempt(t *testing.T) {
	boom := errors.New("boom")
	require.ErrorIs(t, retry(1, 0, func(int) error { return boom }), boom)
	require.NoError(t, retry(1, 0, func(int) error { return nil }))
}

func TestConfigDSNAndURL(t *testing.T) {
	cfg := Config{
		Host: "db", Port: "5433", User: "svc", Password: "pw",
		DBName: "admission", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5433 user=svc password=pw dbname=admission sslmode=disable", cfg.DSN())
	assert.Equal(t, "pgx5://svc:pw@db:5433/admission?sslmode=disable", cfg.URL())
}
