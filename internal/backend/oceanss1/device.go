// Package oceanss1 implements the Oceans S1 text-over-BLE protocol
// (spec.md §4.9/§6): ASCII line commands for small queries, a framed
// "blob mode" for bulk dive-log transfer. Only the enumeration-driven
// parse path is implemented; the source's dead "force dive 4" path is not
// carried over (spec.md §9 Q3).
package oceanss1

import (
	"bytes"
	"strings"
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

const fingerprintLen = 32

const (
	blobStart = 0x01
	blobEnd   = 0x04
	blobAck   = 0x06
	blobSize  = 512
)

// Device drives the Oceans S1 command-and-blob protocol over a
// newline-framed text transport (spec.md §4.9).
type Device struct {
	base device.Base
}

func New(transport iostream.Stream, bus *events.Bus) *Device {
	return &Device{base: device.NewBase(device.KindOceansS1, transport, bus)}
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
	return d.base.SetFingerprintBytes("oceanss1.SetFingerprint", fingerprintLen, fp)
}

// Timesync sends the "utc" command carrying the Unix timestamp.
func (d *Device) Timesync(t time.Time) error {
	if err := d.base.EnsureOpen("oceanss1.Timesync"); err != nil {
		return err
	}
	_, err := d.sendCommand("utc " + itoa64(t.Unix()))
	return err
}

// Dump returns the raw assembled blob bytes from a full dive-log
// download, with no per-dive splitting.
func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("oceanss1.Dump"); err != nil {
		return nil, err
	}
	return d.downloadBlob()
}

// Foreach downloads the device's dive log blob, splits it into per-dive
// chunks delimited by "dive ..."/"enddive ..." lines, and invokes cb
// newest-first (spec.md §4.9: log lines are already newest-first on the
// wire, matching the invariant spec.md §5 requires).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("oceanss1.Foreach"); err != nil {
		return err
	}

	blob, err := d.downloadBlob()
	if err != nil {
		return err
	}

	dives := splitDives(blob)
	for i, dv := range dives {
		if err := d.base.CheckCancelled("oceanss1.Foreach"); err != nil {
			return err
		}
		fp := fingerprintFor(dv.header)
		if d.base.FingerprintMatches(fp) {
			return nil
		}
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(i+1), uint64(len(dives)))
		}
		if !cb(dv.raw, fp) {
			return nil
		}
	}
	return nil
}

// sendCommand writes a newline-terminated ASCII command and reads back one
// line, requiring it to begin with "<cmd>ok" (spec.md §4.9).
func (d *Device) sendCommand(cmd string) (string, error) {
	if _, err := d.base.Transport.Write([]byte(cmd + "\n")); err != nil {
		return "", dcerr.Wrap("oceanss1.sendCommand", dcerr.Io, err)
	}
	line, err := readLine(d.base.Transport)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(line, firstToken(cmd)+">ok") {
		return "", dcerr.New("oceanss1.sendCommand", dcerr.Protocol)
	}
	return line, nil
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// downloadBlob requests the dive log and assembles blob mode's framed
// packets into one byte buffer (spec.md §4.9/§6).
func (d *Device) downloadBlob() ([]byte, error) {
	if _, err := d.sendCommand("dllist"); err != nil {
		return nil, err
	}
	if _, err := d.base.Transport.Write([]byte{'C'}); err != nil {
		return nil, dcerr.Wrap("oceanss1.downloadBlob", dcerr.Io, err)
	}

	var out []byte
	expectSeq := byte(0)
	for {
		if err := d.base.CheckCancelled("oceanss1.downloadBlob"); err != nil {
			return out, err
		}

		marker := make([]byte, 1)
		if _, err := readFull(d.base.Transport, marker); err != nil {
			return out, dcerr.Wrap("oceanss1.downloadBlob", dcerr.Io, err)
		}

		if marker[0] == blobEnd {
			if _, err := d.base.Transport.Write([]byte{blobAck}); err != nil {
				return out, dcerr.Wrap("oceanss1.downloadBlob", dcerr.Io, err)
			}
			return out, nil
		}
		if marker[0] != blobStart {
			return out, dcerr.New("oceanss1.downloadBlob", dcerr.Io)
		}

		rest := make([]byte, 2+blobSize+2)
		if _, err := readFull(d.base.Transport, rest); err != nil {
			return out, dcerr.Wrap("oceanss1.downloadBlob", dcerr.Io, err)
		}

		seq := rest[0]
		complement := rest[1]
		if seq != expectSeq || complement+seq != 255 {
			// B6: malformed blob packet sequencing is Io, not Protocol —
			// there is no resync within a blob transfer.
			return out, dcerr.New("oceanss1.downloadBlob", dcerr.Io)
		}
		payload := rest[2 : 2+blobSize]
		wantChecksum := bytesx.U16BE(rest[2+blobSize : 2+blobSize+2])
		if bytesx.Sum16(payload) != wantChecksum {
			return out, dcerr.New("oceanss1.downloadBlob", dcerr.Protocol)
		}
		out = append(out, payload...)
		expectSeq++

		if _, err := d.base.Transport.Write([]byte{blobAck}); err != nil {
			return out, dcerr.Wrap("oceanss1.downloadBlob", dcerr.Io, err)
		}
	}
}

func readFull(s iostream.Stream, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.Read(buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, dcerr.New("oceanss1.readFull", dcerr.Timeout)
		}
		total += n
	}
	return total, nil
}

func readLine(s iostream.Stream) (string, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := s.Read(b)
		if err != nil {
			return "", dcerr.Wrap("oceanss1.readLine", dcerr.Io, err)
		}
		if n == 0 {
			continue
		}
		if b[0] == '\n' {
			return string(bytes.TrimRight(line, "\r")), nil
		}
		line = append(line, b[0])
	}
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [24]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// diveChunk is one "dive ..." header line through its matching "enddive
// ..." line, inclusive, as the text protocol lays dives out back to back.
type diveChunk struct {
	header string
	raw    []byte
}

// splitDives walks the assembled blob text, grouping lines between a
// "dive " header and its "enddive " terminator into one diveChunk per
// dive (spec.md §4.9). The leading "divelog v1,..." banner and trailing
// "endlog" footer lines are skipped.
func splitDives(blob []byte) []diveChunk {
	var dives []diveChunk
	var cur []string
	var header string
	inDive := false

	for _, raw := range strings.Split(string(blob), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "dive "):
			inDive = true
			header = line
			cur = []string{line}
		case strings.HasPrefix(line, "enddive"):
			if inDive {
				cur = append(cur, line)
				dives = append(dives, diveChunk{header: header, raw: []byte(strings.Join(cur, "\n"))})
			}
			inDive = false
			cur = nil
		case strings.HasPrefix(line, "divelog") || strings.HasPrefix(line, "endlog"):
			continue
		default:
			if inDive {
				cur = append(cur, line)
			}
		}
	}
	return dives
}

// fingerprintFor zero-pads a dive header line to the fixed fingerprint
// width (spec.md §8 S6).
func fingerprintFor(header string) []byte {
	fp := make([]byte, fingerprintLen)
	copy(fp, header)
	return fp
}
