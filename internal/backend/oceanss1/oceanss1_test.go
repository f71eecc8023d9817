package oceanss1

import (
	"testing"

	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDivesAndFingerprint(t *testing.T) {
	blob := []byte("divelog v1,10s/sample\n dive 1,0,21,1591372057\n enddive 3131,496\nendlog\n")
	dives := splitDives(blob)
	require.Len(t, dives, 1)
	assert.Equal(t, "dive 1,0,21,1591372057", dives[0].header)

	fp := fingerprintFor(dives[0].header)
	require.Len(t, fp, fingerprintLen)
	assert.Equal(t, "dive 1,0,21,1591372057", string(fp[:len(dives[0].header)]))
}

func TestParserDecodesMinimalDive(t *testing.T) {
	raw := []byte("dive 1,0,21,1591372057\nenddive 3131,496")

	p := NewParser()
	require.NoError(t, p.SetData(raw))

	diveTime, err := p.Cache().GetDiveTime()
	require.NoError(t, err)
	assert.InDelta(t, 496.0, diveTime, 0.0001)

	maxDepth, err := p.Cache().GetMaxDepth()
	require.NoError(t, err)
	assert.InDelta(t, 31.31, maxDepth, 0.0001)
}

func TestParserSamplesTimeOrdering(t *testing.T) {
	raw := []byte("dive 1,0,21,1591372057\n10,180,00\n20,179,00\nenddive 2000,20")
	p := NewParser()
	require.NoError(t, p.SetData(raw))

	var kinds []divetypes.SampleKind
	err := p.SamplesForeach(func(s divetypes.Sample) { kinds = append(kinds, s.Kind) })
	require.NoError(t, err)

	require.Len(t, kinds, 6)
	assert.Equal(t, divetypes.SampleTime, kinds[0])
	assert.Equal(t, divetypes.SampleDepth, kinds[1])
	assert.Equal(t, divetypes.SampleTemperature, kinds[2])
	assert.Equal(t, divetypes.SampleTime, kinds[3])
	assert.Equal(t, divetypes.SampleDepth, kinds[4])
	assert.Equal(t, divetypes.SampleTemperature, kinds[5])
}
