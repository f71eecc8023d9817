package deepblu

import (
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

const fingerprintLen = 4 // one u32le dive id, little-endian

// Device drives the Deepblu ASCII-hex framed protocol (spec.md §6).
type Device struct {
	base device.Base
	rx   lineReader
}

func New(transport iostream.Stream, bus *events.Bus) *Device {
	return &Device{
		base: device.NewBase(device.KindDeepblu, transport, bus),
		rx:   newLineReader(transport),
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
	return d.base.SetFingerprintBytes("deepblu.SetFingerprint", fingerprintLen, fp)
}

func (d *Device) Timesync(t time.Time) error {
	if err := d.base.EnsureOpen("deepblu.Timesync"); err != nil {
		return err
	}
	_, _, err := d.roundTrip(cmdHandshake, u32le(uint32(t.Unix())))
	return err
}

// Dump requests every dive in turn and concatenates their raw bytes with
// no per-dive splitting.
func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("deepblu.Dump"); err != nil {
		return nil, err
	}
	if err := d.handshake(); err != nil {
		return nil, err
	}

	count, err := d.diveCount()
	if err != nil {
		return nil, err
	}

	var out []byte
	for i := 0; i < count; i++ {
		if err := d.base.CheckCancelled("deepblu.Dump"); err != nil {
			return out, err
		}
		_, payload, err := d.roundTrip(cmdDiveData, u32le(uint32(i)))
		if err != nil {
			return out, err
		}
		out = append(out, payload...)
	}
	return out, nil
}

// Foreach requests the dive count, then each dive newest-first by index,
// stopping at the stored fingerprint (spec.md §4.1/§5).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("deepblu.Foreach"); err != nil {
		return err
	}
	if err := d.handshake(); err != nil {
		return err
	}

	count, err := d.diveCount()
	if err != nil {
		return err
	}

	for i := count - 1; i >= 0; i-- {
		if err := d.base.CheckCancelled("deepblu.Foreach"); err != nil {
			return err
		}
		fp := u32le(uint32(i))
		if d.base.FingerprintMatches(fp) {
			return nil
		}

		_, payload, err := d.roundTrip(cmdDiveData, fp)
		if err != nil {
			return err
		}
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(count-i), uint64(count))
		}
		if !cb(payload, fp) {
			return nil
		}
	}
	return nil
}

func (d *Device) handshake() error {
	_, _, err := d.roundTrip(cmdHandshake, nil)
	return err
}

func (d *Device) diveCount() (int, error) {
	_, payload, err := d.roundTrip(cmdDiveCount, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, dcerr.New("deepblu.diveCount", dcerr.DataFormat)
	}
	return int(bytesx.U32LE(payload[:4])), nil
}

// roundTrip writes one request frame and reads back one reply frame,
// validating its checksum (a mismatch surfaces as Protocol, spec.md §7).
func (d *Device) roundTrip(cmd byte, data []byte) (byte, []byte, error) {
	frame := encodeFrame(cmd, data)
	if _, err := d.base.Transport.Write(frame); err != nil {
		return 0, nil, dcerr.Wrap("deepblu.roundTrip", dcerr.Io, err)
	}

	line, err := d.rx.readLine()
	if err != nil {
		return 0, nil, err
	}
	replyCmd, payload, ok := decodeFrame(line)
	if !ok {
		return 0, nil, dcerr.New("deepblu.roundTrip", dcerr.Protocol)
	}
	return replyCmd, payload, nil
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// lineReader accumulates bytes from a Stream until a '\n' terminator,
// tracking an explicit start offset into its buffer rather than the
// pointer-underflow-prone indexing the source used (spec.md §9 Q2).
type lineReader struct {
	transport iostream.Stream
	buf       []byte
	start     int
}

func newLineReader(transport iostream.Stream) lineReader {
	return lineReader{transport: transport}
}

func (r *lineReader) readLine() ([]byte, error) {
	for {
		if idx := indexByte(r.buf[r.start:], '\n'); idx >= 0 {
			end := r.start + idx + 1
			line := append([]byte(nil), r.buf[r.start:end]...)
			r.start = end
			if r.start == len(r.buf) {
				r.buf = r.buf[:0]
				r.start = 0
			}
			return line, nil
		}

		chunk := make([]byte, 256)
		n, err := r.transport.Read(chunk)
		if err != nil {
			return nil, dcerr.Wrap("deepblu.lineReader.readLine", dcerr.Io, err)
		}
		if n == 0 {
			return nil, dcerr.New("deepblu.lineReader.readLine", dcerr.Timeout)
		}
		r.buf = append(r.buf, chunk[:n]...)
	}
}

func indexByte(p []byte, b byte) int {
	for i, c := range p {
		if c == b {
			return i
		}
	}
	return -1
}
