package fit

import (
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
)

// filenameFingerprintLen is the fixed 24-byte filename fingerprint
// prefixing every FIT byte stream handed to the decoder by the Garmin
// backend's dive callback (spec.md §4.6).
const filenameFingerprintLen = 24

const fitMagic = ".FIT"

// fitHeader is the fixed 12-byte portion of a FIT file header, per
// spec.md §4.6.
type fitHeader struct {
	HeaderSize int
	Protocol   byte
	Profile    uint16
	DataSize   uint32
}

// SampleFunc is the callback Run invokes per emitted Sample. A nil
// SampleFunc runs the decode purely to prime the field cache (the
// behavior set_data needs); a non-nil one additionally replays samples
// (the behavior samples_foreach needs). Running twice over the same bytes
// is the FIT package's way of satisfying spec.md §4.2's "walk once with
// no callback" then "replay the decode" contract without keeping the
// entire samples list buffered in memory between the two Parser calls.
type SampleFunc func(divetypes.Sample)

// Decoder decodes one dive's FIT byte stream. Each call to Run performs a
// full, independent pass: local state (type table, per-dive state,
// pending record, field cache) is rebuilt from scratch every time.
type Decoder struct {
	raw []byte

	localTypes [numLocalTypes]TypeDescriptor

	dive    *diveState
	pending pendingRecord
	cache   *fieldcache.Cache

	currentTimestamp int64 // FIT-epoch seconds, last value from field 253 or a compressed-timestamp record
	haveTimestamp    bool

	recordHasTime  bool
	recordRelTime  float64
	sampleBuf      []divetypes.Sample
	onSample       SampleFunc

	// pendingStringField holds the trimmed raw bytes of the string field
	// currently being dispatched, for string handlers that want the text
	// instead of a uint64; the DIVE_SETTINGS.name and SENSOR_PROFILE.name
	// handlers do not read it.
	pendingStringField []byte

	unknownFields  int
	unknownRecords int
}

// NewDecoder builds a Decoder bound to data, which must outlive the
// Decoder (spec.md §4.2: "no copy required; the caller guarantees the
// bytes outlive the parser").
func NewDecoder(data []byte) *Decoder {
	return &Decoder{raw: data}
}

// Run performs one full decode pass, optionally invoking onSample for
// every emitted Sample, and returns the resulting Result.
func (d *Decoder) Run(onSample SampleFunc) (*Result, error) {
	d.dive = newDiveState()
	d.pending.reset()
	d.cache = fieldcache.New()
	d.currentTimestamp = 0
	d.haveTimestamp = false
	d.unknownFields = 0
	d.unknownRecords = 0
	d.onSample = onSample
	for i := range d.localTypes {
		d.localTypes[i] = TypeDescriptor{}
	}

	if len(d.raw) < filenameFingerprintLen {
		return nil, dcerr.New("fit.Run", dcerr.Io)
	}
	body := d.raw[filenameFingerprintLen:]

	hdr, headerSize, err := parseHeader(body)
	if err != nil {
		return nil, err
	}

	total := len(body)
	if hdr.HeaderSize+int(hdr.DataSize)+2 > total {
		return nil, dcerr.New("fit.Run", dcerr.Io)
	}

	pos := headerSize
	end := hdr.HeaderSize + int(hdr.DataSize)

	for pos < end {
		n, err := d.decodeRecord(body, pos, end)
		if err != nil {
			return d.result(body, end), err
		}
		pos += n
	}

	var crc uint16
	if end+2 <= total {
		crc = bytesx.U16LE(body[end : end+2])
	}

	res := d.result(body, end)
	res.TrailingCRC = crc
	res.CRCVerified = false // spec.md §9 Q1: read but not verified, by design parity with the source
	return res, nil
}

func (d *Decoder) result(body []byte, _ int) *Result {
	res := &Result{
		Cache:          d.cache,
		UnknownFields:  d.unknownFields,
		UnknownRecords: d.unknownRecords,
	}
	if d.dive.haveDiveStart {
		res.HaveDiveStart = true
		res.DiveStart = time.Unix(d.dive.diveStartTimeFit+FitEpochOffset, 0).UTC()
	}
	return res
}

// parseHeader reads the fixed FIT header from the front of body.
func parseHeader(body []byte) (fitHeader, int, error) {
	if len(body) < 12 {
		return fitHeader{}, 0, dcerr.New("fit.parseHeader", dcerr.Io)
	}
	headerSize := int(body[0])
	if headerSize < 12 {
		return fitHeader{}, 0, dcerr.New("fit.parseHeader", dcerr.Io)
	}
	if len(body) < headerSize {
		return fitHeader{}, 0, dcerr.New("fit.parseHeader", dcerr.Io)
	}
	protocol := body[1]
	profile := bytesx.U16LE(body[2:4])
	dataSize := bytesx.U32LE(body[4:8])
	if string(body[8:12]) != fitMagic {
		return fitHeader{}, 0, dcerr.New("fit.parseHeader", dcerr.Io)
	}
	return fitHeader{
		HeaderSize: headerSize,
		Protocol:   protocol,
		Profile:    profile,
		DataSize:   dataSize,
	}, headerSize, nil
}

// decodeRecord reads one record (compressed-timestamp, definition, or
// data) starting at pos, returning the number of bytes it consumed.
func (d *Decoder) decodeRecord(body []byte, pos, end int) (int, error) {
	if pos >= end || pos >= len(body) {
		return 0, dcerr.New("fit.decodeRecord", dcerr.Io)
	}
	header := body[pos]

	switch {
	case header&0x80 != 0:
		return d.decodeCompressedTimestampRecord(body, pos, header)
	case header&0x40 != 0:
		return d.decodeDefinitionRecord(body, pos, header)
	default:
		localType := header & 0x0F
		return d.decodeDataRecord(body, pos+1, localType, false, 0)
	}
}

// decodeDefinitionRecord installs a TypeDescriptor for the local type
// named by the low 4 bits of header (spec.md §4.6).
func (d *Decoder) decodeDefinitionRecord(body []byte, pos int, header byte) (int, error) {
	localType := header & 0x0F
	if header&0x20 != 0 {
		// Developer field section: not supported, fatal (spec.md §4.6).
		return 0, dcerr.New("fit.decodeDefinitionRecord", dcerr.DataFormat)
	}

	p := pos + 1
	if p+5 > len(body) {
		return 0, dcerr.New("fit.decodeDefinitionRecord", dcerr.Io)
	}
	// reserved, arch
	arch := body[p+1]
	bigEndian := arch != 0
	var globalMessage uint16
	if bigEndian {
		globalMessage = bytesx.U16BE(body[p+2 : p+4])
	} else {
		globalMessage = bytesx.U16LE(body[p+2 : p+4])
	}
	fieldCount := int(body[p+4])
	if fieldCount > 128 {
		return 0, dcerr.New("fit.decodeDefinitionRecord", dcerr.Io)
	}

	q := p + 5
	fields := make([]fieldDef, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		if q+3 > len(body) {
			return 0, dcerr.New("fit.decodeDefinitionRecord", dcerr.Io)
		}
		fieldNum := body[q]
		size := body[q+1]
		bt, _ := lookupBaseType(body[q+2])
		fields = append(fields, fieldDef{FieldNumber: fieldNum, Size: size, BaseType: bt})
		q += 3
	}

	d.localTypes[localType] = TypeDescriptor{
		Defined:       true,
		GlobalMessage: globalMessage,
		MessageName:   lookupMessage(globalMessage).Name,
		BigEndian:     bigEndian,
		Fields:        fields,
		Descriptor:    lookupMessage(globalMessage),
	}

	return q - pos, nil
}

// decodeCompressedTimestampRecord handles a data record whose header byte
// carries a 5-bit delta-seconds offset and a 2-bit local type (spec.md
// §4.6).
func (d *Decoder) decodeCompressedTimestampRecord(body []byte, pos int, header byte) (int, error) {
	delta := int64(header & 0x1F)
	localType := (header >> 5) & 0x03

	prev := d.currentTimestamp
	next := (prev &^ 0x1f) | delta
	if next < prev {
		next += 0x20
	}
	d.currentTimestamp = next
	d.haveTimestamp = true

	return d.decodeDataRecord(body, pos+1, localType, true, next)
}

// decodeDataRecord decodes the fields of one data record according to the
// TypeDescriptor installed for localType, then runs the pending-record
// flush (spec.md §4.7) before returning.
func (d *Decoder) decodeDataRecord(body []byte, pos int, localType byte, compressed bool, compressedTS int64) (int, error) {
	td := d.localTypes[localType]
	if !td.Defined {
		return 0, dcerr.New("fit.decodeDataRecord", dcerr.Io)
	}

	d.pending.reset()
	d.sampleBuf = d.sampleBuf[:0]
	d.recordHasTime = false
	d.recordRelTime = 0

	if compressed {
		d.recordHasTime = d.dive.haveDiveStart
		if d.dive.haveDiveStart {
			d.recordRelTime = float64(compressedTS - d.dive.diveStartTimeFit)
		}
	}

	p := pos
	for _, fd := range td.Fields {
		size := int(fd.Size)
		if p+size > len(body) {
			return 0, dcerr.New("fit.decodeDataRecord", dcerr.Io)
		}
		raw := body[p : p+size]
		p += size

		baseSize := sizeFor(fd.BaseType)
		if fd.BaseType != BaseString && baseSize > 0 && size%baseSize != 0 {
			return 0, dcerr.New("fit.decodeDataRecord", dcerr.Io)
		}

		d.dispatchField(&td, fd, raw)
	}

	d.flushRecordTimeAndSamples()
	d.flushPending()

	return p - pos + 1, nil // +1 for the record header byte just before pos
}

// dispatchField resolves and invokes the field handler for one field of
// a data record, honoring the invalid-sentinel skip rule and the three
// globally fixed field numbers (spec.md §4.6).
func (d *Decoder) dispatchField(td *TypeDescriptor, fd fieldDef, raw []byte) {
	info, ok := baseTypeTable[fd.BaseType]
	if !ok {
		info = baseTypeInfo{size: len(raw)}
	}

	if fd.BaseType == BaseString {
		d.dispatchStringField(td, fd, raw)
		return
	}

	value := bytesx.UintEndian(raw, info.size, td.BigEndian)
	if len(raw) == info.size && value == info.invalidSentinel {
		// B4: invalid-sentinel bytes are skipped silently.
		return
	}

	switch fd.FieldNumber {
	case fieldTimestamp:
		d.handleTimestampField(value)
		return
	case fieldMessageIndex:
		d.handleMessageIndexField(value)
		return
	case fieldPartIndex:
		return
	}

	handler := td.Descriptor.Fields[fd.FieldNumber]
	if handler == nil {
		d.unknownFields++
		return
	}
	handler.Decode(d, value, td.BigEndian)
}

func (d *Decoder) dispatchStringField(td *TypeDescriptor, fd fieldDef, raw []byte) {
	if len(raw) > 0 && raw[0] == 0x00 {
		// B4 applies to strings too: NUL is the invalid sentinel.
		return
	}
	handler := td.Descriptor.Fields[fd.FieldNumber]
	if handler == nil {
		d.unknownFields++
		return
	}
	// String handlers don't need the generic uint64 path; the decoder
	// exposes the raw bytes via pendingStringField instead, for any
	// handler that wants the text.
	d.pendingStringField = trimTrailingNUL(raw)
	handler.Decode(d, 0, td.BigEndian)
	d.pendingStringField = nil
}

func trimTrailingNUL(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0x00 {
		i--
	}
	return b[:i]
}

// handleTimestampField processes field number 253 (ANY.timestamp),
// updating the running current-timestamp, the dive start time if this is
// the first SESSION.start_time seen, and this record's relative-time flag
// (spec.md §4.6).
func (d *Decoder) handleTimestampField(raw uint64) {
	d.currentTimestamp = int64(raw)
	d.haveTimestamp = true

	if !d.dive.haveDiveStart {
		d.dive.diveStartTimeFit = d.currentTimestamp
		d.dive.haveDiveStart = true
	}

	d.recordHasTime = true
	d.recordRelTime = float64(d.currentTimestamp - d.dive.diveStartTimeFit)
}

func (d *Decoder) handleMessageIndexField(raw uint64) {
	d.pending.gasmixIndex = int(raw)
}

// recordGPSComponent stores one half of a lat/long pair for the named
// per-dive GPS corner.
func (d *Decoder) recordGPSComponent(field string, isLat bool, degrees float64) {
	var corner *gpsCorner
	switch field {
	case "session_entry":
		corner = &d.dive.gps.sessionEntry
	case "session_exit":
		corner = &d.dive.gps.sessionExit
	case "session_ne":
		corner = &d.dive.gps.sessionNE
	case "session_sw":
		corner = &d.dive.gps.sessionSW
	case "lap_entry":
		corner = &d.dive.gps.lapEntry
	case "lap_exit":
		corner = &d.dive.gps.lapExit
	case "record":
		corner = &d.dive.gps.record
	default:
		return
	}
	if isLat {
		corner.Lat = degrees
	} else {
		corner.Lon = degrees
	}
	corner.Set = true
}

// emitSample buffers a sample produced while decoding fields of the
// current record; flushRecordTimeAndSamples later drains the buffer after
// emitting this record's Time sample, if any, so Time always precedes
// same-instant samples (spec.md §3's ordering invariant) regardless of
// the order fields were declared in the definition.
func (d *Decoder) emitSample(s divetypes.Sample) {
	d.sampleBuf = append(d.sampleBuf, s)
}

// flushRecordTimeAndSamples emits this record's Time sample (if the
// record carried a timestamp and the relative time has not gone
// backward), then the buffered value samples, in the order spec.md §3
// requires.
func (d *Decoder) flushRecordTimeAndSamples() {
	if d.onSample == nil {
		d.sampleBuf = d.sampleBuf[:0]
		return
	}

	if d.recordHasTime {
		if !d.dive.haveLastEmitted || d.recordRelTime >= d.dive.lastEmittedTimeS {
			d.onSample(sampleTime(d.recordRelTime))
			d.dive.lastEmittedTimeS = d.recordRelTime
			d.dive.haveLastEmitted = true
		}
	}

	for _, s := range d.sampleBuf {
		d.onSample(s)
	}
	d.sampleBuf = d.sampleBuf[:0]
}
