package fit

import (
	"testing"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fitBuilder assembles a minimal, well-formed FIT byte stream for tests:
// 24-byte fingerprint prefix + 12-byte header + records + 2-byte CRC.
type fitBuilder struct {
	records []byte
}

func (b *fitBuilder) definition(globalMessage uint16, localType byte, fields ...fieldDef) {
	b.records = append(b.records, 0x40|localType)
	b.records = append(b.records, 0x00) // reserved
	b.records = append(b.records, 0x00) // architecture: little-endian
	b.records = append(b.records, byte(globalMessage), byte(globalMessage>>8))
	b.records = append(b.records, byte(len(fields)))
	for _, f := range fields {
		b.records = append(b.records, f.FieldNumber, f.Size, byte(f.BaseType))
	}
}

func (b *fitBuilder) data(localType byte, payload ...byte) {
	b.records = append(b.records, localType&0x0F)
	b.records = append(b.records, payload...)
}

func (b *fitBuilder) build() []byte {
	dataSize := uint32(len(b.records))

	hdr := make([]byte, 12)
	hdr[0] = 12
	hdr[1] = 0x10
	hdr[4] = byte(dataSize)
	hdr[5] = byte(dataSize >> 8)
	hdr[6] = byte(dataSize >> 16)
	hdr[7] = byte(dataSize >> 24)
	copy(hdr[8:12], fitMagic)

	out := make([]byte, filenameFingerprintLen)
	out = append(out, hdr...)
	out = append(out, b.records...)
	out = append(out, 0x00, 0x00) // CRC, unverified by design
	return out
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestRunRejectsShortFingerprintPrefix(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3})
	_, err := d.Run(nil)
	require.Error(t, err)
}

func TestRunRejectsBadMagic(t *testing.T) {
	raw := make([]byte, filenameFingerprintLen+12)
	raw[filenameFingerprintLen] = 12
	d := NewDecoder(raw)
	_, err := d.Run(nil)
	require.Error(t, err)
}

func TestRecordDepthAndTimeOrdering(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgRecord, 0,
		fieldDef{FieldNumber: fieldTimestamp, Size: 4, BaseType: BaseUint32},
		fieldDef{FieldNumber: 8, Size: 4, BaseType: BaseUint32}, // depth
	)
	payload := append(u32le(1000), u32le(5000)...) // timestamp=1000s, depth=5.000m
	b.data(0, payload...)

	d := NewDecoder(b.build())

	var samples []divetypes.Sample
	_, err := d.Run(func(s divetypes.Sample) { samples = append(samples, s) })
	require.NoError(t, err)

	require.Len(t, samples, 2)
	assert.Equal(t, divetypes.SampleTime, samples[0].Kind)
	assert.Equal(t, divetypes.SampleDepth, samples[1].Kind)
	assert.InDelta(t, 5.0, samples[1].Depth, 0.0001)
}

func TestInvalidSentinelFieldIsSkipped(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgRecord, 0,
		fieldDef{FieldNumber: fieldTimestamp, Size: 4, BaseType: BaseUint32},
		fieldDef{FieldNumber: 8, Size: 4, BaseType: BaseUint32},
	)
	payload := append(u32le(1000), u32le(0xFFFFFFFF)...) // invalid depth sentinel
	b.data(0, payload...)

	d := NewDecoder(b.build())
	var samples []divetypes.Sample
	_, err := d.Run(func(s divetypes.Sample) { samples = append(samples, s) })
	require.NoError(t, err)

	require.Len(t, samples, 1)
	assert.Equal(t, divetypes.SampleTime, samples[0].Kind)
}

func TestUndefinedLocalTypeIsFatal(t *testing.T) {
	b := &fitBuilder{}
	b.data(3) // local type 3 was never defined
	d := NewDecoder(b.build())
	_, err := d.Run(nil)
	require.Error(t, err)
}

func TestDiveGasIndexedByMessageIndex(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgDiveGas, 0,
		fieldDef{FieldNumber: fieldMessageIndex, Size: 2, BaseType: BaseUint16},
		fieldDef{FieldNumber: 0, Size: 1, BaseType: BaseUint8}, // helium
		fieldDef{FieldNumber: 1, Size: 1, BaseType: BaseUint8}, // oxygen
		fieldDef{FieldNumber: 2, Size: 1, BaseType: BaseEnum},  // status
	)
	b.data(0, 1, 0, 20, 18, 1) // message_index=1, helium=20%, oxygen=18%, status=1 (enabled)

	d := NewDecoder(b.build())
	res, err := d.Run(nil)
	require.NoError(t, err)

	mix, err := res.Cache.GetGasMix(1)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, mix.Helium, 0.0001)
	assert.InDelta(t, 18.0, mix.Oxygen, 0.0001)
	assert.InDelta(t, 62.0, mix.Nitrogen, 0.0001)
}

func TestDiveGasWithZeroStatusIsNotInstalled(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgDiveGas, 0,
		fieldDef{FieldNumber: fieldMessageIndex, Size: 2, BaseType: BaseUint16},
		fieldDef{FieldNumber: 0, Size: 1, BaseType: BaseUint8}, // helium
		fieldDef{FieldNumber: 1, Size: 1, BaseType: BaseUint8}, // oxygen
		fieldDef{FieldNumber: 2, Size: 1, BaseType: BaseEnum},  // status
	)
	b.data(0, 0, 0, 0, 21, 0) // message_index=0, helium=0%, oxygen=21%, status=0 (disabled)

	d := NewDecoder(b.build())
	res, err := d.Run(nil)
	require.NoError(t, err)

	_, err = res.Cache.GetGasMix(0)
	assert.True(t, dcerr.Is(err, dcerr.Unsupported))
}

func TestUnknownGlobalMessageDoesNotFail(t *testing.T) {
	b := &fitBuilder{}
	b.definition(9999, 0, fieldDef{FieldNumber: 0, Size: 1, BaseType: BaseUint8})
	b.data(0, 42)

	d := NewDecoder(b.build())
	res, err := d.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UnknownFields)
}

func TestTrailingCRCIsReadButNotVerified(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgRecord, 0, fieldDef{FieldNumber: fieldTimestamp, Size: 4, BaseType: BaseUint32})
	b.data(0, u32le(100)...)

	raw := b.build()
	raw[len(raw)-2] = 0xAB
	raw[len(raw)-1] = 0xCD

	d := NewDecoder(raw)
	res, err := d.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xCDAB), res.TrailingCRC)
	assert.False(t, res.CRCVerified)
}

func TestRunIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	b := &fitBuilder{}
	b.definition(msgDiveSummary, 0, fieldDef{FieldNumber: 1, Size: 4, BaseType: BaseUint32})
	b.data(0, u32le(20000)...) // max_depth = 20.000m

	raw := b.build()
	d := NewDecoder(raw)

	res1, err := d.Run(nil)
	require.NoError(t, err)
	depth1, err := res1.Cache.GetMaxDepth()
	require.NoError(t, err)

	res2, err := d.Run(nil)
	require.NoError(t, err)
	depth2, err := res2.Cache.GetMaxDepth()
	require.NoError(t, err)

	assert.Equal(t, depth1, depth2)
	assert.InDelta(t, 20.0, depth1, 0.0001)
}
