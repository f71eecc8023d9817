package archive

import (
	"testing"
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestRecordFileNameIsSortableByTime(t *testing.T) {
	earlier := DiveArchiveRecord{
		BackendID:    device.KindGarmin,
		Fingerprint:  []byte{0xde, 0xad},
		DownloadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	later := DiveArchiveRecord{
		BackendID:    device.KindGarmin,
		Fingerprint:  []byte{0xbe, 0xef},
		DownloadedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Less(t, recordFileName(earlier), recordFileName(later))
}

func TestRecordFileNameEncodesFingerprintAsHex(t *testing.T) {
	r := DiveArchiveRecord{
		BackendID:    device.KindMcLean,
		Fingerprint:  []byte{0x01, 0xab},
		DownloadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Contains(t, recordFileName(r), "01ab.json")
}

func TestHexEncodeRoundTripsThroughHexDecodeString(t *testing.T) {
	fp := []byte{0x00, 0x10, 0xff, 0x42}
	enc := hexEncode(fp)
	assert.Equal(t, "0010ff42", enc)

	dec, ok := bytesx.HexDecodeString(enc)
	assert.True(t, ok)
	assert.Equal(t, fp, dec)
}
