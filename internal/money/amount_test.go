package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreledger/wallet-ledger/internal/money"
)

func TestParse(t *testing.T) {
	t.Run("accepts numeric strings", func(t *testing.T) {
		a, err := money.Parse("100.5")
		require.NoError(t, err)
		assert.Equal(t, "100.500000", a.String())
	})

	t.Run("rounds to six fractional digits", func(t *testing.T) {
		a, err := money.Parse("1.1234567")
		require.NoError(t, err)
		assert.Equal(t, "1.123457", a.String())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := money.Parse("not-a-number")
		assert.Error(t, err)
	})
}

func TestArithmetic(t *testing.T) {
	a := money.MustParse("600")
	b := money.MustParse("100")

	assert.Equal(t, "700.000000", a.Add(b).String())
	assert.Equal(t, "500.000000", a.Sub(b).String())
	assert.True(t, b.LessThan(a))
	assert.False(t, a.LessThan(b))
	assert.True(t, a.GreaterThanOrEqual(b))
	assert.True(t, money.MustParse("5").Equal(money.MustParse("5.000000")))
}

func TestSignPredicates(t *testing.T) {
	assert.True(t, money.MustParse("0.000001").IsPositive())
	assert.False(t, money.Zero.IsPositive())
	assert.True(t, money.MustParse("-1").IsNegative())
	assert.Equal(t, 0, money.Zero.Sign())
	assert.Equal(t, 1, money.MustParse("1").Sign())
	assert.Equal(t, -1, money.MustParse("-1").Sign())
}

func TestJSONRoundTrip(t *testing.T) {
	a := money.MustParse("1234.56")

	data, err := a.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1234.560000"`, string(data))

	var out money.Amount
	require.NoError(t, out.UnmarshalJSON(data))
	assert.True(t, a.Equal(out))

	var bare money.Amount
	require.NoError(t, bare.UnmarshalJSON([]byte("42")))
	assert.True(t, money.MustParse("42").Equal(bare))
}

func TestValueAndScan(t *testing.T) {
	a := money.MustParse("100.25")

	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, "100.250000", v)

	var out money.Amount
	require.NoError(t, out.Scan("100.250000"))
	assert.True(t, a.Equal(out))

	var zero money.Amount
	require.NoError(t, zero.Scan(nil))
	assert.True(t, money.Zero.Equal(zero))
}
