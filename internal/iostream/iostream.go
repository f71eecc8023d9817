// Package iostream defines the transport capability contract the Device
// framework consumes from the outside (spec.md §6). Implementations are
// supplied by the caller (serial, USB-HID, BLE-GATT, MTP, filesystem); this
// package only declares the interface, the way the teacher's reader.go
// declares a minimal Stream interface ("all we care about are two
// methods") rather than depending on a concrete transport package.
package iostream

import "time"

// Parity is the serial parity setting accepted by Configure.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// FlowControl is the serial flow-control setting accepted by Configure.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowHardware
	FlowSoftware
)

// PurgeDirection selects which buffered direction Purge discards.
type PurgeDirection int

const (
	PurgeInput PurgeDirection = iota
	PurgeOutput
	PurgeBoth
)

// Stream is the synchronous byte-transport contract required by every
// Device backend. All methods are blocking; cancellation is only
// observable at a Stream call boundary (spec.md §5).
type Stream interface {
	// Configure sets serial line parameters. Backends that do not run over
	// a serial-style transport (BLE, filesystem) may no-op.
	Configure(baud int, databits int, parity Parity, stopbits int, flow FlowControl) error

	// SetTimeout bounds the duration of subsequent Read calls.
	SetTimeout(d time.Duration) error

	// Read blocks until at least one byte is available, the timeout
	// elapses, or the stream is closed, writing into buf and returning the
	// number of bytes read.
	Read(buf []byte) (int, error)

	// Write blocks until all of p has been accepted by the transport.
	Write(p []byte) (int, error)

	// Flush blocks until previously queued writes have been transmitted.
	Flush() error

	// Purge discards buffered bytes in the given direction without
	// transmitting or receiving them.
	Purge(dir PurgeDirection) error

	// Sleep blocks the calling goroutine for d; used by backends whose
	// protocol requires an inter-packet delay.
	Sleep(d time.Duration)

	// Close releases the transport. Safe to call at most once.
	Close() error
}

// PacketStream is implemented by BLE-GATT transports, which additionally
// expose a fixed packet size and packet-granular read/write instead of an
// arbitrary byte stream.
type PacketStream interface {
	Stream

	// PacketSize reports the fixed size of one GATT characteristic write.
	PacketSize() int

	// PacketRead reads exactly one packet.
	PacketRead() ([]byte, error)

	// PacketWrite writes exactly one packet; p must be PacketSize() bytes.
	PacketWrite(p []byte) error
}
