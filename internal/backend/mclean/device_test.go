package mclean

import (
	"testing"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/iostream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream is a minimal in-memory iostream.Stream: every Write queues
// the next reply frame to hand back from fakeStream.replies, in order.
type fakeStream struct {
	replies [][]byte
	writes  [][]byte
	reads   []byte
	readPos int
}

func (f *fakeStream) Configure(int, int, iostream.Parity, int, iostream.FlowControl) error { return nil }
func (f *fakeStream) SetTimeout(time.Duration) error                                       { return nil }
func (f *fakeStream) Flush() error                                                          { return nil }
func (f *fakeStream) Purge(iostream.PurgeDirection) error                                   { return nil }
func (f *fakeStream) Sleep(time.Duration)                                                   {}
func (f *fakeStream) Close() error                                                           { return nil }

func (f *fakeStream) Write(p []byte) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.reads = append(f.reads, f.replies[0]...)
		f.replies = f.replies[1:]
	}
	return len(p), nil
}

func (f *fakeStream) Read(buf []byte) (int, error) {
	if f.readPos >= len(f.reads) {
		return 0, nil
	}
	n := copy(buf, f.reads[f.readPos:])
	f.readPos += n
	return n, nil
}

func TestHandshakeSendsComputerFrame(t *testing.T) {
	fs := &fakeStream{replies: [][]byte{encodeFrame(cmdComputer, nil)}}
	d := New(fs, nil)

	require.NoError(t, d.handshake())
	require.Len(t, fs.writes, 1)
	cmd, _, ok := decodeFrame(fs.writes[0])
	require.True(t, ok)
	assert.Equal(t, cmdComputer, cmd)
}

func TestForeachStopsAtFingerprint(t *testing.T) {
	fp1 := []byte{1, 1, 1, 1, 1, 1, 1, 1}
	fp2 := []byte{2, 2, 2, 2, 2, 2, 2, 2}

	index := append(append([]byte(nil), fp2...), u32le(2)...)
	index = append(append(index, fp1...), u32le(1)...)

	fs := &fakeStream{replies: [][]byte{
		encodeFrame(cmdComputer, nil),
		encodeFrame(cmdDiveList, index),
		encodeFrame(cmdDiveData, []byte("dive-2")),
	}}
	d := New(fs, nil)
	require.NoError(t, d.SetFingerprint(fp1))

	var seen [][]byte
	err := d.Foreach(func(diveBytes, fingerprint []byte) bool {
		seen = append(seen, append([]byte(nil), diveBytes...))
		return true
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "dive-2", string(seen[0]))
}

func TestRoundTripBadCRCSurfacesProtocol(t *testing.T) {
	bad := encodeFrame(cmdComputer, nil)
	bad[7] ^= 0xFF

	fs := &fakeStream{replies: [][]byte{bad}}
	d := New(fs, nil)

	_, _, err := d.roundTrip(cmdComputer, nil)
	require.Error(t, err)
	assert.Equal(t, dcerr.Protocol, dcerr.CodeOf(err))
}
