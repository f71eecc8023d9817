package deepblu

import (
	"testing"
	"time"

	"github.com/divelogio/divecore/internal/iostream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func replyFor(cmd byte, data []byte) []byte {
	frame := encodeFrame(cmd, data)
	frame[0] = '$'
	return frame
}

func TestForeachEnumeratesNewestFirst(t *testing.T) {
	fs := &fakeStream{replies: [][]byte{
		replyFor(cmdHandshake, nil),
		replyFor(cmdDiveCount, u32le(3)),
		replyFor(cmdDiveData, []byte("dive-2")),
		replyFor(cmdDiveData, []byte("dive-1")),
		replyFor(cmdDiveData, []byte("dive-0")),
	}}
	d := New(fs, nil)

	var seen []string
	err := d.Foreach(func(diveBytes, fingerprint []byte) bool {
		seen = append(seen, string(diveBytes))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dive-2", "dive-1", "dive-0"}, seen)
}

func TestForeachStopsAtFingerprint(t *testing.T) {
	fs := &fakeStream{replies: [][]byte{
		replyFor(cmdHandshake, nil),
		replyFor(cmdDiveCount, u32le(3)),
		replyFor(cmdDiveData, []byte("dive-2")),
	}}
	d := New(fs, nil)
	require.NoError(t, d.SetFingerprint(u32le(1)))

	var seen int
	err := d.Foreach(func(diveBytes, fingerprint []byte) bool {
		seen++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestRoundTripBadChecksumSurfacesProtocol(t *testing.T) {
	bad := replyFor(cmdHandshake, nil)
	bad[3] ^= 0xFF

	fs := &fakeStream{replies: [][]byte{bad}}
	d := New(fs, nil)

	err := d.Timesync(time.Unix(0, 0))
	require.Error(t, err)
}
