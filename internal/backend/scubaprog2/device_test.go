package scubaprog2

import (
	"testing"
	"time"

	"github.com/divelogio/divecore/internal/iostream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPacketSize = 20

// fakePacketStream is a minimal in-memory iostream.PacketStream: each
// PacketWrite consumes the next queued reply from replies (if any) for a
// subsequent PacketRead, and raw (headerless) packets can be queued ahead
// via rawPackets to simulate continuation-packet streaming.
type fakePacketStream struct {
	replies     [][]byte
	rawPackets  [][]byte
	writes      [][]byte
	pendingRead [][]byte
}

func (f *fakePacketStream) Configure(int, int, iostream.Parity, int, iostream.FlowControl) error {
	return nil
}
func (f *fakePacketStream) SetTimeout(time.Duration) error                     { return nil }
func (f *fakePacketStream) Flush() error                                       { return nil }
func (f *fakePacketStream) Purge(iostream.PurgeDirection) error                { return nil }
func (f *fakePacketStream) Sleep(time.Duration)                                {}
func (f *fakePacketStream) Close() error                                       { return nil }
func (f *fakePacketStream) Read(buf []byte) (int, error)                       { return 0, nil }
func (f *fakePacketStream) Write(p []byte) (int, error)                        { return len(p), nil }
func (f *fakePacketStream) PacketSize() int                                    { return testPacketSize }

func (f *fakePacketStream) PacketWrite(p []byte) error {
	f.writes = append(f.writes, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.pendingRead = append(f.pendingRead, f.replies[0])
		f.replies = f.replies[1:]
	}
	return nil
}

func (f *fakePacketStream) PacketRead() ([]byte, error) {
	if len(f.pendingRead) > 0 {
		pkt := f.pendingRead[0]
		f.pendingRead = f.pendingRead[1:]
		return pkt, nil
	}
	if len(f.rawPackets) > 0 {
		pkt := f.rawPackets[0]
		f.rawPackets = f.rawPackets[1:]
		return pkt, nil
	}
	return nil, nil
}

func replyPacket(cmd byte, payload []byte) []byte {
	pkt := make([]byte, testPacketSize)
	pkt[0] = cmd
	pkt[1] = ackOK
	pkt[2] = byte(len(payload))
	copy(pkt[3:], payload)
	return pkt
}

func TestHandshakeSendsDerivedPassphrase(t *testing.T) {
	fs := &fakePacketStream{replies: [][]byte{replyPacket(cmdHandshake, nil)}}
	d := New(fs, "G2-654321-BLE", nil)

	require.NoError(t, d.handshake())
	require.Len(t, fs.writes, 1)
	assert.Equal(t, cmdHandshake, fs.writes[0][0])
	assert.Equal(t, byte(6), fs.writes[0][1])
	assert.Equal(t, []byte("654321"), fs.writes[0][2:8])
}

func TestDownloadDiveAssemblesContinuationPackets(t *testing.T) {
	total := u32le(uint32(testPacketSize + 5))
	fs := &fakePacketStream{
		replies: [][]byte{replyPacket(cmdDiveData, total)},
		rawPackets: [][]byte{
			make([]byte, testPacketSize), // full packet of zero bytes
			append([]byte{1, 2, 3, 4, 5}, make([]byte, testPacketSize-5)...),
		},
	}
	d := New(fs, "G2-000000-BLE", nil)

	got, err := d.downloadDive(0)
	require.NoError(t, err)
	assert.Len(t, got, testPacketSize+5)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got[testPacketSize:testPacketSize+5])
}

func TestRequestRejectsMismatchedAck(t *testing.T) {
	bad := replyPacket(cmdHandshake, nil)
	bad[1] = 0x01 // non-ok ack

	fs := &fakePacketStream{replies: [][]byte{bad}}
	d := New(fs, "G2-111111-BLE", nil)

	err := d.handshake()
	require.Error(t, err)
}
