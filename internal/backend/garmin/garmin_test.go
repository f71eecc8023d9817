package garmin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFit(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func minimalFitBody() []byte {
	// header_size=12, protocol=0x10, profile=0x0000, data_size=0, ".FIT", no
	// records, 2-byte CRC, matching spec.md §8 S1's minimal fixture.
	return []byte{0x0C, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, '.', 'F', 'I', 'T', 0x00, 0x00}
}

func TestForeachSortsNewestFirstAndRespectsFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeFit(t, dir, "2020-01-02-03-04-05.fit", minimalFitBody())
	writeFit(t, dir, "2021-06-07-08-09-10.fit", minimalFitBody())
	writeFit(t, dir, "2019-12-31-23-59-59.fit", minimalFitBody())

	d := New(dir, nil)
	var seen []string
	err := d.Foreach(func(diveBytes, fp []byte) bool {
		seen = append(seen, string(fp[:19]))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-06-07-08-09-10", "2020-01-02-03-04-05", "2019-12-31-23-59-59"}, seen)
}

func TestForeachStopsAtStoredFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeFit(t, dir, "2020-01-02-03-04-05.fit", minimalFitBody())
	writeFit(t, dir, "2021-06-07-08-09-10.fit", minimalFitBody())

	d := New(dir, nil)
	require.NoError(t, d.SetFingerprint(fingerprintFromName("2020-01-02-03-04-05.fit")))

	var seen int
	err := d.Foreach(func(diveBytes, fp []byte) bool {
		seen++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestParserFallsBackToFingerprintDate(t *testing.T) {
	dir := t.TempDir()
	name := "2020-01-02-03-04-05.fit"
	writeFit(t, dir, name, minimalFitBody())

	d := New(dir, nil)
	var diveBytes []byte
	err := d.Foreach(func(b, fp []byte) bool {
		diveBytes = append([]byte(nil), b...)
		return false
	})
	require.NoError(t, err)

	p := NewParser()
	require.NoError(t, p.SetData(diveBytes))

	dt, err := p.GetDateTime()
	require.NoError(t, err)
	assert.Equal(t, 2020, dt.Year())
	assert.Equal(t, 2, dt.Day())

	count, err := p.GetField(divetypes.FieldGasMixCount, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
