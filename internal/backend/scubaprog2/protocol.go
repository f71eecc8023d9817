// Package scubaprog2 implements the Scubapro G2 BLE-HID packet protocol
// (spec.md §6/§9 Q5): fixed-size packets over a BLE-GATT characteristic,
// gated by a passphrase handshake derived from the device's advertised
// name.
package scubaprog2

// Command codes relevant to dive download; the rest of the G2's HID
// command set is out of scope per spec.md §1.
const (
	cmdHandshake byte = 0x10
	cmdDiveCount byte = 0x11
	cmdDiveData  byte = 0x12
)

const ackOK byte = 0x00

// passphraseDigits is the fixed width of the BLE handshake passphrase:
// six digits extracted from the device's advertised name (spec.md §9 Q5).
// The derivation is simple but the source comments implied uncertainty
// about its exact origin; documented exactly as described there, with no
// additional transformation invented.
const passphraseDigits = 6

// derivePassphrase extracts the first six ASCII digit characters found in
// advertisedName, in order, and returns them as raw bytes (spec.md §9
// Q5). Returns ok=false if fewer than six digits are present.
func derivePassphrase(advertisedName string) (passphrase [passphraseDigits]byte, ok bool) {
	n := 0
	for i := 0; i < len(advertisedName) && n < passphraseDigits; i++ {
		c := advertisedName[i]
		if c >= '0' && c <= '9' {
			passphrase[n] = c
			n++
		}
	}
	return passphrase, n == passphraseDigits
}

// buildPacket lays one command packet out to the full fixed packetSize,
// zero-padding the remainder: `{cmd, len(payload), payload...}`.
func buildPacket(packetSize int, cmd byte, payload []byte) []byte {
	pkt := make([]byte, packetSize)
	pkt[0] = cmd
	pkt[1] = byte(len(payload))
	copy(pkt[2:], payload)
	return pkt
}

// parsePacket reads back a reply packet's command, ack byte, and payload.
// ok is false if the packet is shorter than the fixed header.
func parsePacket(pkt []byte) (cmd byte, ack byte, payload []byte, ok bool) {
	if len(pkt) < 3 {
		return 0, 0, nil, false
	}
	cmd = pkt[0]
	ack = pkt[1]
	n := int(pkt[2])
	if 3+n > len(pkt) {
		return cmd, ack, nil, false
	}
	return cmd, ack, pkt[3 : 3+n], true
}
