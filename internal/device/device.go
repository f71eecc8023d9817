// Package device defines the polymorphic Device capability (spec.md §3
// DiveComputerHandle, §4.1 C5): a uniform contract over a family of
// heterogeneous dive-computer backends. Concrete backends live under
// internal/backend/*; this package only holds the shared interface, the
// common embeddable Base, and the dive-enumeration helper every backend's
// Foreach loop drives.
package device

import (
	"sync/atomic"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/iostream"
)

// Kind discriminates the backend behind a Device, standing in for the
// source's hand-rolled vtable dispatch (spec.md §9): a closed
// discriminated union rather than dynamic interface satisfaction alone,
// since callers sometimes need to know which wire protocol they opened.
type Kind int

const (
	KindGarmin Kind = iota
	KindDeepblu
	KindOceansS1
	KindMcLean
	KindScubaproG2
	KindShearwater
)

func (k Kind) String() string {
	switch k {
	case KindGarmin:
		return "garmin"
	case KindDeepblu:
		return "deepblu"
	case KindOceansS1:
		return "oceans_s1"
	case KindMcLean:
		return "mclean"
	case KindScubaproG2:
		return "scubapro_g2"
	case KindShearwater:
		return "shearwater"
	default:
		return "unknown"
	}
}

// DiveCallback is the contract produced to the outside by Foreach
// (spec.md §6): it receives one dive's bytes and fingerprint bytes, and
// returning false halts enumeration. The byte slices are borrowed for the
// callback's duration only; implementations must not retain them past
// return without copying.
type DiveCallback func(diveBytes []byte, fingerprint []byte) bool

// Device is the polymorphic capability every backend implements.
type Device interface {
	// SetFingerprint stores bytes as the incremental-sync anchor. An empty
	// slice clears it.
	SetFingerprint(fingerprint []byte) error

	// Dump reads the full device memory and returns it, emitting
	// progress events as it goes.
	Dump() ([]byte, error)

	// Foreach enumerates dives newest-first, invoking cb once per dive
	// until cb returns false, the dive's fingerprint matches the stored
	// one, or the device is cancelled.
	Foreach(cb DiveCallback) error

	// Timesync sets the device clock to t.
	Timesync(t time.Time) error

	// Close releases the transport. Safe to call exactly once.
	Close() error

	// Cancel requests that any in-progress or future Foreach/Dump call
	// stop at the next transport boundary.
	Cancel()

	// Kind reports which backend this Device is.
	Kind() Kind
}

// lifecycleState models spec.md §4.10's Device state machine.
type lifecycleState int32

const (
	stateOpen lifecycleState = iota
	stateClosed
)

// Base holds the fields common to every backend (spec.md §9's "shared
// fields sit in a common base held by each variant"): the transport, the
// event bus, the fingerprint buffer, and the cancellation flag. Backends
// embed Base and implement the wire-protocol-specific methods.
type Base struct {
	BackendKind Kind
	Transport   iostream.Stream
	Events      *events.Bus

	fingerprint []byte
	cancelled   atomic.Bool
	state       atomic.Int32
}

// NewBase constructs a Base bound to transport and emitting through bus
// (which may be nil).
func NewBase(kind Kind, transport iostream.Stream, bus *events.Bus) Base {
	return Base{BackendKind: kind, Transport: transport, Events: bus}
}

// Kind reports the backend discriminator.
func (b *Base) Kind() Kind { return b.BackendKind }

// Cancel sets the shared cancellation flag. Checked at transport
// boundaries and between dives (spec.md §5).
func (b *Base) Cancel() { b.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (b *Base) Cancelled() bool { return b.cancelled.Load() }

// CheckCancelled returns a Cancelled dcerr.Error if the device has been
// cancelled, else nil. Backends call this between dives and at the top of
// any retry loop.
func (b *Base) CheckCancelled(op string) error {
	if b.Cancelled() {
		return dcerr.New(op, dcerr.Cancelled)
	}
	return nil
}

// EnsureOpen returns InvalidArgs if the device has already been closed
// (spec.md §4.10: "calling any operation from Closed returns
// InvalidArgs").
func (b *Base) EnsureOpen(op string) error {
	if lifecycleState(b.state.Load()) == stateClosed {
		return dcerr.New(op, dcerr.InvalidArgs)
	}
	return nil
}

// MarkClosed transitions to the Closed state. Idempotent: a second call
// is a no-op rather than an error, matching spec.md §4.10's "close is
// idempotent from Open".
func (b *Base) MarkClosed() {
	b.state.Store(int32(stateClosed))
}

// SetFingerprintBytes validates and stores a fingerprint of the expected
// width, implementing the common half of SetFingerprint (spec.md §4.1):
// InvalidArgs if len(bytes) != width and non-zero; an empty slice always
// clears it.
func (b *Base) SetFingerprintBytes(op string, width int, fp []byte) error {
	if len(fp) == 0 {
		b.fingerprint = nil
		return nil
	}
	if len(fp) != width {
		return dcerr.New(op, dcerr.InvalidArgs)
	}
	cp := make([]byte, len(fp))
	copy(cp, fp)
	b.fingerprint = cp
	return nil
}

// Fingerprint returns the currently stored fingerprint, or nil if none is
// set.
func (b *Base) Fingerprint() []byte {
	return b.fingerprint
}

// FingerprintMatches reports whether candidate equals the stored
// fingerprint. An empty stored fingerprint never matches, so a caller
// with no prior sync state downloads every dive.
func (b *Base) FingerprintMatches(candidate []byte) bool {
	if len(b.fingerprint) == 0 || len(b.fingerprint) != len(candidate) {
		return false
	}
	for i := range candidate {
		if candidate[i] != b.fingerprint[i] {
			return false
		}
	}
	return true
}
