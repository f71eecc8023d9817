package main

import (
	"os"
	"testing"

	"github.com/divelogio/divecore/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDeviceRejectsUnknownBackend(t *testing.T) {
	_, _, err := openDevice("not-a-backend", "", "", 20, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownBackend)
}

func TestOpenDeviceWiresGarminDirectly(t *testing.T) {
	dev, newParser, err := openDevice("garmin", t.TempDir(), "", 20, nil)
	require.NoError(t, err)
	require.NotNil(t, newParser)
	assert.Equal(t, device.KindGarmin, dev.Kind())
}

func TestBackendKindMapsEveryRegisteredBackendName(t *testing.T) {
	cases := map[string]device.Kind{
		"garmin":      device.KindGarmin,
		"deepblu":     device.KindDeepblu,
		"oceanss1":    device.KindOceansS1,
		"mclean":      device.KindMcLean,
		"scubapro_g2": device.KindScubaproG2,
		"shearwater":  device.KindShearwater,
	}
	for name, want := range cases {
		assert.Equal(t, want, backendKind(name))
	}
}

func TestFileStreamRoundTripsBytes(t *testing.T) {
	path := t.TempDir() + "/transcript.bin"
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s, err := openFileStream(path, false)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 5)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestFilePacketStreamReadsFixedSizeChunks(t *testing.T) {
	path := t.TempDir() + "/packets.bin"
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	s, err := openFilePacketStream(path, false, 5)
	require.NoError(t, err)
	defer s.Close()

	first, err := s.PacketRead()
	require.NoError(t, err)
	assert.Equal(t, "01234", string(first))

	second, err := s.PacketRead()
	require.NoError(t, err)
	assert.Equal(t, "56789", string(second))
}
