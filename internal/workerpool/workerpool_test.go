package workerpool

import (
	"context"
	"testing"

	"github.com/divelogio/divecore/internal/backend/garmin"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReturnsOneResultPerJobInOrder(t *testing.T) {
	jobs := make([]DecodeJob, 8)
	for i := range jobs {
		jobs[i] = DecodeJob{
			BackendID:   device.KindGarmin,
			Fingerprint: []byte{byte(i)},
			DiveBytes:   nil,
			NewParser:   func() parser.Parser { return garmin.NewParser() },
		}
	}

	pool := New(context.Background())
	defer pool.Stop()

	results := pool.Decode(jobs)
	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, device.KindGarmin, r.BackendID)
		assert.Equal(t, []byte{byte(i)}, r.Fingerprint)
	}
}

func TestDecodeSurfacesPerJobErrorsIndependently(t *testing.T) {
	jobs := []DecodeJob{
		{BackendID: device.KindGarmin, Fingerprint: []byte{1}, DiveBytes: []byte{0x00}, NewParser: func() parser.Parser { return garmin.NewParser() }},
		{BackendID: device.KindGarmin, Fingerprint: []byte{2}, DiveBytes: nil, NewParser: func() parser.Parser { return garmin.NewParser() }},
	}

	pool := New(context.Background())
	defer pool.Stop()

	results := pool.Decode(jobs)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, []byte{1}, results[0].Fingerprint)
	assert.Equal(t, []byte{2}, results[1].Fingerprint)
}
