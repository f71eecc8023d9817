package shearwater

import (
	"bytes"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

const fingerprintLen = 32

var diveOpenTag = []byte("<dive ")
var diveCloseTag = []byte("</dive>")

// Device reads a Predator/Petrel log export: a stream of concatenated
// `<dive>...</dive>` XML documents, newest dive first.
type Device struct {
	base device.Base
}

func New(transport iostream.Stream, bus *events.Bus) *Device {
	return &Device{base: device.NewBase(device.KindShearwater, transport, bus)}
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
	return d.base.SetFingerprintBytes("shearwater.SetFingerprint", fingerprintLen, fp)
}

// Timesync is unsupported: the export transport has no clock-set command.
func (d *Device) Timesync(t time.Time) error {
	return dcerr.New("shearwater.Timesync", dcerr.Unsupported)
}

func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("shearwater.Dump"); err != nil {
		return nil, err
	}
	return readAll(d.base.Transport)
}

// Foreach splits the export into per-dive XML documents and invokes cb
// newest-first, stopping at the stored fingerprint (spec.md §4.1/§5).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("shearwater.Foreach"); err != nil {
		return err
	}

	blob, err := readAll(d.base.Transport)
	if err != nil {
		return err
	}

	dives := splitDives(blob)
	for i, dv := range dives {
		if err := d.base.CheckCancelled("shearwater.Foreach"); err != nil {
			return err
		}
		fp := fingerprintFor(dv)
		if d.base.FingerprintMatches(fp) {
			return nil
		}
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(i+1), uint64(len(dives)))
		}
		if !cb(dv, fp) {
			return nil
		}
	}
	return nil
}

func readAll(s iostream.Stream) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		if err != nil {
			return out, dcerr.Wrap("shearwater.readAll", dcerr.Io, err)
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n]...)
	}
}

// splitDives walks blob for each `<dive ...>...</dive>` span, returning
// them in the order they appear (the export's own newest-first order,
// spec.md §4.1's enumeration contract).
func splitDives(blob []byte) [][]byte {
	var dives [][]byte
	rest := blob
	for {
		start := bytes.Index(rest, diveOpenTag)
		if start < 0 {
			return dives
		}
		end := bytes.Index(rest[start:], diveCloseTag)
		if end < 0 {
			return dives
		}
		end = start + end + len(diveCloseTag)
		dives = append(dives, rest[start:end])
		rest = rest[end:]
	}
}

// fingerprintFor derives a fixed-width fingerprint from the dive's
// startDate element text, the stable per-dive identity this export
// format carries.
func fingerprintFor(dive []byte) []byte {
	fp := make([]byte, fingerprintLen)
	start := bytes.Index(dive, []byte("<startDate>"))
	if start < 0 {
		return fp
	}
	start += len("<startDate>")
	end := bytes.Index(dive[start:], []byte("</startDate>"))
	if end < 0 {
		return fp
	}
	copy(fp, dive[start:start+end])
	return fp
}
