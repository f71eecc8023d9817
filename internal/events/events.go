// Package events implements the fire-and-forget progress/devinfo/clock
// event bus (spec.md §4.4, C3). Emission is synchronous and has no
// backpressure: the sink runs on the caller's goroutine, the same way the
// teacher logs progress with plain log.Printf calls inline in its
// processing loops rather than through a buffered channel.
package events

import "time"

// Kind is the closed set of event tags a Device may emit during foreach,
// dump, or timesync.
type Kind int

const (
	KindProgress Kind = iota
	KindDevinfo
	KindClock
	KindVendor
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindDevinfo:
		return "devinfo"
	case KindClock:
		return "clock"
	case KindVendor:
		return "vendor"
	default:
		return "unknown"
	}
}

// Progress reports how far through an enumeration or dump the backend is.
// Maximum may be 0 if it is not yet known.
type Progress struct {
	Current uint64
	Maximum uint64
}

// Devinfo reports cached device identity, emitted once a backend has read
// it from the wire.
type Devinfo struct {
	Model    string
	Firmware string
	Serial   string
}

// Clock reports the host and device clocks observed during timesync.
type Clock struct {
	SysTime time.Time
	DevTime time.Time
}

// Vendor carries a raw, backend-defined payload for events not covered by
// the other three kinds.
type Vendor struct {
	Bytes []byte
}

// Event is the value delivered to a Sink. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Event struct {
	Kind     Kind
	Progress Progress
	Devinfo  Devinfo
	Clock    Clock
	Vendor   Vendor
}

// Sink receives events emitted by a Device during foreach/dump/timesync.
// The core never retains the Event after the call returns, so a Sink that
// needs to keep data must copy it.
type Sink func(ev Event)

// Bus stores a single Sink, installed at Device-creation time, and emits
// events to it synchronously. A nil Bus (or one with no Sink installed)
// discards all events; Emit is always safe to call.
type Bus struct {
	sink Sink
}

// NewBus builds a Bus around sink. sink may be nil, in which case Emit is
// a no-op.
func NewBus(sink Sink) *Bus {
	return &Bus{sink: sink}
}

// Emit delivers ev to the installed Sink, if any.
func (b *Bus) Emit(ev Event) {
	if b == nil || b.sink == nil {
		return
	}
	b.sink(ev)
}

// EmitProgress is a convenience wrapper for the common progress-event case.
func (b *Bus) EmitProgress(current, maximum uint64) {
	b.Emit(Event{Kind: KindProgress, Progress: Progress{Current: current, Maximum: maximum}})
}

// EmitDevinfo is a convenience wrapper for the devinfo-event case.
func (b *Bus) EmitDevinfo(model, firmware, serial string) {
	b.Emit(Event{Kind: KindDevinfo, Devinfo: Devinfo{Model: model, Firmware: firmware, Serial: serial}})
}

// EmitClock is a convenience wrapper for the clock-event case.
func (b *Bus) EmitClock(sysTime, devTime time.Time) {
	b.Emit(Event{Kind: KindClock, Clock: Clock{SysTime: sysTime, DevTime: devTime}})
}

// EmitVendor is a convenience wrapper for the vendor-event case.
func (b *Bus) EmitVendor(payload []byte) {
	b.Emit(Event{Kind: KindVendor, Vendor: Vendor{Bytes: payload}})
}
