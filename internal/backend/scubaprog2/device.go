package scubaprog2

import (
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

const fingerprintLen = 4 // one u32le dive index

// Device drives the Scubapro G2 BLE-HID protocol over a fixed-size
// packet transport (spec.md §6).
type Device struct {
	base           device.Base
	pkt            iostream.PacketStream
	advertisedName string
}

// New binds transport (a BLE-GATT packet stream) and advertisedName (the
// BLE device name the handshake passphrase is derived from, spec.md §9
// Q5).
func New(transport iostream.PacketStream, advertisedName string, bus *events.Bus) *Device {
	return &Device{
		base:           device.NewBase(device.KindScubaproG2, transport, bus),
		pkt:            transport,
		advertisedName: advertisedName,
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
	return d.base.SetFingerprintBytes("scubaprog2.SetFingerprint", fingerprintLen, fp)
}

func (d *Device) Timesync(t time.Time) error {
	if err := d.base.EnsureOpen("scubaprog2.Timesync"); err != nil {
		return err
	}
	if err := d.handshake(); err != nil {
		return err
	}
	_, err := d.request(cmdHandshake, u32le(uint32(t.Unix())))
	return err
}

// Dump requests every dive in turn and concatenates their raw bytes with
// no per-dive splitting.
func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("scubaprog2.Dump"); err != nil {
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
		if err := d.base.CheckCancelled("scubaprog2.Dump"); err != nil {
			return out, err
		}
		diveBytes, err := d.downloadDive(i)
		if err != nil {
			return out, err
		}
		out = append(out, diveBytes...)
	}
	return out, nil
}

// Foreach requests the dive count, then each dive newest-first by index,
// stopping at the stored fingerprint (spec.md §4.1/§5).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("scubaprog2.Foreach"); err != nil {
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
		if err := d.base.CheckCancelled("scubaprog2.Foreach"); err != nil {
			return err
		}
		fp := u32le(uint32(i))
		if d.base.FingerprintMatches(fp) {
			return nil
		}

		diveBytes, err := d.downloadDive(i)
		if err != nil {
			return err
		}
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(count-i), uint64(count))
		}
		if !cb(diveBytes, fp) {
			return nil
		}
	}
	return nil
}

// handshake derives the passphrase from the advertised BLE name and sends
// it as the gating packet (spec.md §9 Q5).
func (d *Device) handshake() error {
	passphrase, ok := derivePassphrase(d.advertisedName)
	if !ok {
		return dcerr.New("scubaprog2.handshake", dcerr.InvalidArgs)
	}
	_, err := d.request(cmdHandshake, passphrase[:])
	return err
}

func (d *Device) diveCount() (int, error) {
	payload, err := d.request(cmdDiveCount, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, dcerr.New("scubaprog2.diveCount", dcerr.DataFormat)
	}
	return int(bytesx.U32LE(payload[:4])), nil
}

// downloadDive requests dive index's bytes. The reply packet's payload
// carries the total byte length; the device then streams that many bytes
// as raw, unheadered continuation packets (spec.md §6's BLE-GATT
// packet-granular transport).
func (d *Device) downloadDive(index int) ([]byte, error) {
	payload, err := d.request(cmdDiveData, u32le(uint32(index)))
	if err != nil {
		return nil, err
	}
	if len(payload) < 4 {
		return nil, dcerr.New("scubaprog2.downloadDive", dcerr.DataFormat)
	}
	total := int(bytesx.U32LE(payload[:4]))

	out := make([]byte, 0, total)
	for len(out) < total {
		if err := d.base.CheckCancelled("scubaprog2.downloadDive"); err != nil {
			return out, err
		}
		pkt, err := d.pkt.PacketRead()
		if err != nil {
			return out, dcerr.Wrap("scubaprog2.downloadDive", dcerr.Io, err)
		}
		remaining := total - len(out)
		if remaining < len(pkt) {
			pkt = pkt[:remaining]
		}
		out = append(out, pkt...)
	}
	return out, nil
}

// request writes one command packet and reads back one reply, surfacing
// a non-ok ack as Protocol (spec.md §7: unexpected opcode/ack is
// Protocol).
func (d *Device) request(cmd byte, data []byte) ([]byte, error) {
	pkt := buildPacket(d.pkt.PacketSize(), cmd, data)
	if err := d.pkt.PacketWrite(pkt); err != nil {
		return nil, dcerr.Wrap("scubaprog2.request", dcerr.Io, err)
	}
	reply, err := d.pkt.PacketRead()
	if err != nil {
		return nil, dcerr.Wrap("scubaprog2.request", dcerr.Io, err)
	}
	replyCmd, ack, payload, ok := parsePacket(reply)
	if !ok || replyCmd != cmd || ack != ackOK {
		return nil, dcerr.New("scubaprog2.request", dcerr.Protocol)
	}
	return payload, nil
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
