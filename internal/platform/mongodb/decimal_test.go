package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "10.00", "12.99", "0.01", "123456789.123456789", "-3.5"} {
		t.Run(s, func(t *testing.T) {
			in := decimal.RequireFromString(s)
			d128, err := ToDecimal128(in)
			require.NoError(t, err)

			out, err := FromDecimal128(d128)
			require.NoError(t, err)
			assert.True(t, in.Equal(out), "want %s got %s", in, out)
		})
	}
}
