package shearwater

import (
	"testing"

	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDiveXML(number int, startDate string, maxDepth int) []byte {
	return []byte(`<dive version="1"><diveLog><number>` + itoa(number) + `</number>` +
		`<gfMin>30</gfMin><gfMax>80</gfMax><imperialUnits>false</imperialUnits>` +
		`<startDate>` + startDate + `</startDate><maxDepth>` + itoa(maxDepth) + `</maxDepth>` +
		`<maxTime>3660</maxTime><endDate>` + startDate + `</endDate>` +
		`<diveLogRecords>` +
		`<diveLogRecord><currentTime>0</currentTime><currentDepth>0</currentDepth>` +
		`<firstStopDepth>0</firstStopDepth><firstStopTime>0</firstStopTime>` +
		`<ttsMins>0</ttsMins><averagePPO2>0.21</averagePPO2>` +
		`<fractionO2>21</fractionO2><fractionHe>0</fractionHe></diveLogRecord>` +
		`<diveLogRecord><currentTime>60</currentTime><currentDepth>30</currentDepth>` +
		`<firstStopDepth>6</firstStopDepth><firstStopTime>45</firstStopTime>` +
		`<ttsMins>5</ttsMins><averagePPO2>1.3</averagePPO2>` +
		`<fractionO2>21</fractionO2><fractionHe>0</fractionHe></diveLogRecord>` +
		`</diveLogRecords></diveLog></dive>`)
}

func TestSplitDivesFindsEachDiveSpan(t *testing.T) {
	blob := append(sampleDiveXML(2, "Thu Nov  7 14:45:32 2019 UTC", 1614),
		sampleDiveXML(1, "Wed Nov  6 10:00:00 2019 UTC", 900)...)

	dives := splitDives(blob)
	require.Len(t, dives, 2)
	assert.Contains(t, string(dives[0]), "<number>2</number>")
	assert.Contains(t, string(dives[1]), "<number>1</number>")
}

func TestFingerprintForUsesStartDate(t *testing.T) {
	dive := sampleDiveXML(1, "Wed Nov  6 10:00:00 2019 UTC", 900)
	fp := fingerprintFor(dive)
	require.Len(t, fp, fingerprintLen)
	assert.Contains(t, string(fp), "Wed Nov  6 10:00:00 2019 UTC")
}

func TestParserDecodesDiveSummaryAndSamples(t *testing.T) {
	raw := sampleDiveXML(1, "Thu Nov  7 14:45:32 2019 UTC", 1614)

	p := NewParser()
	require.NoError(t, p.SetData(raw))

	dt, err := p.GetDateTime()
	require.NoError(t, err)
	assert.Equal(t, 2019, dt.Year())

	maxDepth, err := p.Cache().GetMaxDepth()
	require.NoError(t, err)
	assert.InDelta(t, 1614.0, maxDepth, 0.001)

	diveTime, err := p.Cache().GetDiveTime()
	require.NoError(t, err)
	assert.InDelta(t, 3660.0, diveTime, 0.001)

	gasmix, err := p.Cache().GetGasMix(0)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, gasmix.Oxygen, 0.001)

	var kinds []divetypes.SampleKind
	err = p.SamplesForeach(func(s divetypes.Sample) { kinds = append(kinds, s.Kind) })
	require.NoError(t, err)

	// record 1: Time, Depth, PPO2; record 2 (has a first stop): Time,
	// Depth, PPO2, Deco.
	require.Len(t, kinds, 7)
	assert.Equal(t, divetypes.SampleTime, kinds[0])
	assert.Equal(t, divetypes.SampleDepth, kinds[1])
	assert.Equal(t, divetypes.SamplePPO2, kinds[2])
	assert.Equal(t, divetypes.SampleTime, kinds[3])
	assert.Equal(t, divetypes.SampleDepth, kinds[4])
	assert.Equal(t, divetypes.SamplePPO2, kinds[5])
	assert.Equal(t, divetypes.SampleDeco, kinds[6])
}

func TestParserImperialConvertsToMeters(t *testing.T) {
	raw := []byte(`<dive version="1"><diveLog><number>1</number>` +
		`<gfMin>30</gfMin><gfMax>80</gfMax><imperialUnits>true</imperialUnits>` +
		`<startDate>Thu Nov  7 14:45:32 2019 UTC</startDate><maxDepth>100</maxDepth>` +
		`<maxTime>600</maxTime><endDate>Thu Nov  7 14:45:32 2019 UTC</endDate>` +
		`<diveLogRecords></diveLogRecords></diveLog></dive>`)

	p := NewParser()
	require.NoError(t, p.SetData(raw))

	maxDepth, err := p.Cache().GetMaxDepth()
	require.NoError(t, err)
	assert.InDelta(t, 30.48, maxDepth, 0.001)
}
