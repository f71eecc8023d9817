package mclean

import (
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

const fingerprintLen = 8

// defaultChunkSize is the read-chunk width used when draining a reply.
// Overridable per spec.md §9 Q4 ("make the chunk size a backend
// parameter") since the hard-coded 1000-byte read interacted poorly with
// some BLE MTUs.
const defaultChunkSize = 1000

const maxHandshakeRetries = 4

// Device drives the McLean binary packet protocol (spec.md §6).
type Device struct {
	base      device.Base
	ChunkSize int
}

func New(transport iostream.Stream, bus *events.Bus) *Device {
	return &Device{
		base:      device.NewBase(device.KindMcLean, transport, bus),
		ChunkSize: defaultChunkSize,
	}
}

var _ device.Device = (*Device)(nil)

func (d *Device) Kind() device.Kind { return d.base.Kind() }
func (d *Device) Cancel()           { d.base.Cancel() }

func (d *Device) Close() error {
	d.base.MarkClosed()
	if d.base.Transport != nil {
		return d.base.Transport.Close()
	}
	return nil
}

func (d *Device) SetFingerprint(fp []byte) error {
	return d.base.SetFingerprintBytes("mclean.SetFingerprint", fingerprintLen, fp)
}

func (d *Device) Timesync(t time.Time) error {
	if err := d.base.EnsureOpen("mclean.Timesync"); err != nil {
		return err
	}
	payload := u32le(uint32(t.Unix()))
	_, err := d.roundTrip(cmdComputer, payload)
	return err
}

// Dump reads the full device memory via repeated cmdDiveData requests
// until the device replies with a zero-length payload.
func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("mclean.Dump"); err != nil {
		return nil, err
	}
	if err := d.handshake(); err != nil {
		return nil, err
	}

	var out []byte
	for {
		if err := d.base.CheckCancelled("mclean.Dump"); err != nil {
			return out, err
		}
		_, payload, err := d.roundTrip(cmdDiveData, nil)
		if err != nil {
			return out, err
		}
		if len(payload) == 0 {
			return out, nil
		}
		out = append(out, payload...)
	}
}

// Foreach requests the dive index, then each dive's bytes in turn,
// newest-first, stopping at the stored fingerprint (spec.md §4.1/§5).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("mclean.Foreach"); err != nil {
		return err
	}
	if err := d.handshake(); err != nil {
		return err
	}

	_, index, err := d.roundTrip(cmdDiveList, nil)
	if err != nil {
		return err
	}

	const recordWidth = fingerprintLen + 4 // fingerprint + u32le dive id
	count := len(index) / recordWidth

	for i := 0; i < count; i++ {
		if err := d.base.CheckCancelled("mclean.Foreach"); err != nil {
			return err
		}
		rec := index[i*recordWidth : (i+1)*recordWidth]
		fp := append([]byte(nil), rec[:fingerprintLen]...)
		diveID := rec[fingerprintLen:]

		if d.base.FingerprintMatches(fp) {
			return nil
		}

		_, diveBytes, err := d.roundTrip(cmdDiveData, diveID)
		if err != nil {
			return err
		}
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(i+1), uint64(count))
		}
		if !cb(diveBytes, fp) {
			return nil
		}
	}
	return nil
}

// handshake retries cmdComputer with increasing inter-packet delay, since
// McLean's handshake can legitimately take 6-8 seconds (spec.md §5).
func (d *Device) handshake() error {
	delay := 250 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxHandshakeRetries; attempt++ {
		if err := d.base.CheckCancelled("mclean.handshake"); err != nil {
			return err
		}
		_, _, err := d.roundTrip(cmdComputer, nil)
		if err == nil {
			return nil
		}
		lastErr = err
		if dcerr.CodeOf(err) != dcerr.Timeout {
			return err
		}
		d.base.Transport.Sleep(delay)
		delay *= 2
	}
	return lastErr
}

// roundTrip writes one frame and reads back one reply frame, validating
// its CRC (spec.md §8 B5: a bad CRC surfaces as Protocol, not retried).
func (d *Device) roundTrip(cmd byte, payload []byte) (byte, []byte, error) {
	frame := encodeFrame(cmd, payload)
	if _, err := d.base.Transport.Write(frame); err != nil {
		return 0, nil, dcerr.Wrap("mclean.roundTrip", dcerr.Io, err)
	}

	reply, err := d.readFrame()
	if err != nil {
		return 0, nil, err
	}
	replyCmd, replyPayload, ok := decodeFrame(reply)
	if !ok {
		return 0, nil, dcerr.New("mclean.roundTrip", dcerr.Protocol)
	}
	return replyCmd, replyPayload, nil
}

// readFrame reads a complete McLean frame: the fixed 7-byte header
// (marker, reserved, size, cmd) determines the remaining length.
func (d *Device) readFrame() ([]byte, error) {
	chunk := d.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}

	header := make([]byte, 7)
	if err := d.readExact(header); err != nil {
		return nil, err
	}
	if header[0] != frameMarker {
		return nil, dcerr.New("mclean.readFrame", dcerr.Io)
	}
	payloadSize := int(u32leDecode(header[2:6]))

	rest := make([]byte, payloadSize+4)
	if err := d.readExact(rest); err != nil {
		return nil, err
	}

	_ = chunk // chunkSize governs the transport's own read granularity, applied by readExact
	return append(header, rest...), nil
}

func (d *Device) readExact(buf []byte) error {
	total := 0
	chunk := d.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	for total < len(buf) {
		end := total + chunk
		if end > len(buf) {
			end = len(buf)
		}
		n, err := d.base.Transport.Read(buf[total:end])
		if err != nil {
			return dcerr.Wrap("mclean.readExact", dcerr.Io, err)
		}
		if n == 0 {
			return dcerr.New("mclean.readExact", dcerr.Timeout)
		}
		total += n
	}
	return nil
}
