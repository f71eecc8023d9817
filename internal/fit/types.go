package fit

import (
	"time"

	"github.com/divelogio/divecore/internal/calendarx"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
)

// FitEpochOffset is the number of seconds between the FIT epoch
// (1989-12-31 00:00:00 UTC) and the Unix epoch (spec.md §4.6), derived
// via calendarx's Julian-day conversion rather than hand-copied.
var FitEpochOffset = calendarx.FitEpochOffset

// numLocalTypes is the number of local type descriptor slots a FIT stream
// may have defined at once (spec.md §3).
const numLocalTypes = 16

// fieldDef is one field declared by a definition record.
type fieldDef struct {
	FieldNumber byte
	Size        byte
	BaseType    BaseType
}

// TypeDescriptor is the per-local-type-slot record layout installed by a
// definition record and referenced by later data records sharing its
// local type number (spec.md §3).
type TypeDescriptor struct {
	Defined       bool
	GlobalMessage uint16
	MessageName   string
	BigEndian     bool
	Fields        []fieldDef
	Descriptor    *MessageDescriptor
}

// FieldHandler knows a field's expected base type, its semantic name, and
// a decode function that updates the field cache, per-dive state, or the
// pending-record buffer.
type FieldHandler struct {
	Name     string
	Expected BaseType
	Decode   func(d *Decoder, raw uint64, bigEndian bool)
}

// MessageDescriptor is the static, per-known-global-message-number table:
// a sparse map from field number to its handler (spec.md §3).
type MessageDescriptor struct {
	Name   string
	Fields map[byte]*FieldHandler
}

// placeholderDescriptor synthesizes a MessageDescriptor for an unknown
// global message number, per spec.md §4.6: "looks up the static
// MessageDescriptor for the global message number (synthesizing a
// placeholder for unknown numbers)".
func placeholderDescriptor(globalMessage uint16) *MessageDescriptor {
	return &MessageDescriptor{
		Name:   unknownMessageName(globalMessage),
		Fields: map[byte]*FieldHandler{},
	}
}

func unknownMessageName(globalMessage uint16) string {
	return "msg-" + itoa(int(globalMessage))
}

// itoa avoids importing strconv into every small helper file; FIT message
// names are low-frequency diagnostic strings, not a hot path.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
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

// pendingFlag is the closed bitset of record kinds whose fields are
// aggregated across one physical data record and emitted together at the
// record boundary (spec.md §3 PendingRecord, §4.7).
type pendingFlag uint16

const (
	pendingGasmix pendingFlag = 1 << iota
	pendingDeco
	pendingEvent
	pendingDeviceInfo
	pendingDecoModel
	pendingSensorProfile
	pendingTankUpdate
	pendingSetpointChange
)

// pendingRecord accumulates fields of the currently-being-decoded data
// record. It is cleared (not reallocated) at every record boundary after
// flush, so field handlers can assume a zeroed scratch area at the start
// of each record.
type pendingRecord struct {
	flags pendingFlag

	// Gasmix
	gasmixIndex  int
	gasmixStatus int
	gasmix       divetypes.GasMix

	// Deco
	decoStopTimeS float64
	decoCeilingM  float64

	// Event
	eventNumber int
	eventType   int
	eventGroup  int
	eventData   uint32

	// DeviceInfo
	deviceIndex int
	firmware    string
	serial      string
	product     string

	// DecoModel
	gfLow  int
	gfHigh int

	// SensorProfile
	sensorType    int
	sensorID      uint32
	sensorProfile sensorSlot

	// TankUpdate
	tankSensor       uint32
	tankPressureCbar int

	// SetpointChange
	setpointActualCbar int
}

func (p *pendingRecord) reset() {
	*p = pendingRecord{}
}

// sensorSlot is one entry of the per-dive sensor table (ANT channel ID to
// tank index mapping), capped at 6 entries per spec.md §3.
type sensorSlot struct {
	ANTChannelID uint32
	SensorType   int
	TankIndex    int
}

const maxSensorSlots = 6

// gpsCorner holds a decoded lat/lon pair in degrees.
type gpsCorner struct {
	Lat, Lon float64
	Set      bool
}

// diveState is the Garmin-specific per-dive decode state (spec.md §3),
// created fresh on every SetData and destroyed with the Decoder.
type diveState struct {
	diveStartTimeFit int64 // seconds since FIT epoch
	haveDiveStart    bool
	utcOffsetSec     int64
	localOffsetSec   int64
	lastEmittedTimeS float64
	haveLastEmitted  bool
	isBigEndian      bool

	firmware string
	serial   string
	product  string
	subSport int

	sensorTable []sensorSlot

	setpointLowCbar   int
	setpointLowDepth  int
	setpointHighCbar  int
	setpointHighDepth int

	gps struct {
		sessionEntry, sessionExit, sessionNE, sessionSW gpsCorner
		lapEntry, lapExit                               gpsCorner
		record                                          gpsCorner
	}
}

func newDiveState() *diveState {
	return &diveState{sensorTable: make([]sensorSlot, 0, maxSensorSlots)}
}

// findSensorByID returns the tank index associated with an ANT channel
// ID, or -1 if unknown.
func (s *diveState) findSensorByID(id uint32) int {
	for _, slot := range s.sensorTable {
		if slot.ANTChannelID == id {
			return slot.TankIndex
		}
	}
	return -1
}

// Result is the outcome of one Run: the populated field cache, the dive
// start time if one was seen, unknown-field counts, and diagnostic info
// about the file-level trailing CRC (spec.md §9 Q1: read but, per the
// source's behavior, not verified). Samples are not collected here; they
// reach the caller only through Run's SampleFunc.
type Result struct {
	Cache          *fieldcache.Cache
	DiveStart      time.Time
	HaveDiveStart  bool
	TrailingCRC    uint16
	CRCVerified    bool
	UnknownFields  int
	UnknownRecords int
}
