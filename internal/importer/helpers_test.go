package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/compta/internal/fec"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := fec.ParseDate(s)
	require.NoError(t, err)
	return d
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
