package fieldcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/divetypes"
)

func TestUninitializedFieldsAreUnsupported(t *testing.T) {
	c := New()

	_, err := c.GetDiveTime()
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))

	_, err = c.GetMaxDepth()
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))

	_, err = c.GetGasMix(0)
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))

	_, err = c.GetString("nope")
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))
}

// P7: field cache monotonicity/stability across repeated reads.
func TestFieldStableAcrossRepeatedReads(t *testing.T) {
	c := New()
	c.SetDiveTime(1234.5)

	for i := 0; i < 3; i++ {
		v, err := c.GetDiveTime()
		require.NoError(t, err)
		assert.Equal(t, 1234.5, v)
	}
}

// P3: gasmix-count is always >= any index ever set; retrieval of
// gasmix[i] with i >= count yields Unsupported.
func TestGasMixCountInvariant(t *testing.T) {
	c := New()
	c.SetGasMix(0, divetypes.NewGasMix(0, 32))
	c.SetGasMix(2, divetypes.NewGasMix(20, 18))

	assert.Equal(t, 3, c.GasMixCount())

	mix, err := c.GetGasMix(2)
	require.NoError(t, err)
	assert.InDelta(t, 62.0, mix.Nitrogen, 1e-9)

	_, err = c.GetGasMix(3)
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))
}

func TestGasMixClampedAtMax(t *testing.T) {
	c := New()
	c.SetGasMix(MaxGases, divetypes.NewGasMix(0, 21))
	assert.Equal(t, 0, c.GasMixCount())
}

func TestStringOwnership(t *testing.T) {
	c := New()
	buf := []byte("Buhlmann ZHL-16C 30/70")
	c.SetString("Deco model", string(buf))

	// mutate the original buffer; the cache must hold its own copy
	for i := range buf {
		buf[i] = 'x'
	}

	v, err := c.GetString("Deco model")
	require.NoError(t, err)
	assert.Equal(t, "Buhlmann ZHL-16C 30/70", v)
}

func TestSetStringOverwrites(t *testing.T) {
	c := New()
	c.SetString("k", "v1")
	c.SetString("k", "v2")
	v, err := c.GetString("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Len(t, c.Strings(), 1)
}

func TestSetTankGrowsTableToIndex(t *testing.T) {
	c := New()
	c.SetTank(2, TankInfo{SizeLiters: 12, WorkingBar: 207})

	n, err := c.GetTankCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tank, err := c.GetTank(2)
	require.NoError(t, err)
	assert.Equal(t, 207.0, tank.WorkingBar)

	empty, err := c.GetTank(0)
	require.NoError(t, err)
	assert.Equal(t, TankInfo{}, empty)
}

func TestSetTankCountNeverShrinksAnExistingTable(t *testing.T) {
	c := New()
	c.SetTank(3, TankInfo{SizeLiters: 11.1})
	c.SetTankCount(1)

	n, err := c.GetTankCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
