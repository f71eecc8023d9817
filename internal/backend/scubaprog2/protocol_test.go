package scubaprog2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePassphraseExtractsSixDigitsInOrder(t *testing.T) {
	pass, ok := derivePassphrase("G2-123456-BLE")
	require.True(t, ok)
	assert.Equal(t, [6]byte{'1', '2', '3', '4', '5', '6'}, pass)
}

func TestDerivePassphraseSkipsNonDigits(t *testing.T) {
	pass, ok := derivePassphrase("G2x0x1x2x3x4x5x6")
	require.True(t, ok)
	assert.Equal(t, [6]byte{'0', '1', '2', '3', '4', '5'}, pass)
}

func TestDerivePassphraseFailsWithFewerThanSixDigits(t *testing.T) {
	_, ok := derivePassphrase("G2-1234-BLE")
	assert.False(t, ok)
}

func TestBuildPacketLayout(t *testing.T) {
	pkt := buildPacket(20, cmdDiveCount, []byte{0x01, 0x02, 0x03})
	require.Len(t, pkt, 20)
	assert.Equal(t, cmdDiveCount, pkt[0])
	assert.Equal(t, byte(3), pkt[1])
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, pkt[2:5])
}

func TestParsePacketReadsReplyLayout(t *testing.T) {
	// Reply packets are {cmd, ack, len, payload...}, distinct from
	// buildPacket's request layout {cmd, len, payload...}.
	pkt := []byte{cmdDiveCount, ackOK, 3, 0xAA, 0xBB, 0xCC, 0x00, 0x00}
	cmd, ack, payload, ok := parsePacket(pkt)
	require.True(t, ok)
	assert.Equal(t, cmdDiveCount, cmd)
	assert.Equal(t, ackOK, ack)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, payload)
}

func TestParsePacketRejectsTruncatedHeader(t *testing.T) {
	_, _, _, ok := parsePacket([]byte{0x01, 0x02})
	assert.False(t, ok)
}
