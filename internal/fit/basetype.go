// Package fit implements the Garmin FIT decoder (spec.md §2 C7, §4.6-§4.8):
// a self-describing streaming binary log format where "definition" records
// install local type descriptors later "data" records reference, with
// per-definition endianness and per-base-type invalid-value sentinels.
//
// This is the single most intricate component in the repo. It is
// organized the way the teacher (sixy6e/go-gsf) organizes its own
// record-dispatch decoder: a closed-set numeric ID (RecordID/SubRecordID
// there, global message number/field number here), one decode path per
// ID, and scale-factor/null handling centralized rather than duplicated
// per field.
package fit

// BaseType is the FIT wire base-type code, as declared in a definition
// record's per-field base_type_bits: the low 5 bits are the base type
// number and bit 7 the endian-ability flag, both kept in the code (so
// multi-byte types read 0x83, 0x84, ...); bits 5-6 are reserved and are
// masked off by lookupBaseType.
type BaseType byte

const (
	BaseEnum    BaseType = 0x00
	BaseSint8   BaseType = 0x01
	BaseUint8   BaseType = 0x02
	BaseSint16  BaseType = 0x83
	BaseUint16  BaseType = 0x84
	BaseSint32  BaseType = 0x85
	BaseUint32  BaseType = 0x86
	BaseString  BaseType = 0x07
	BaseFloat32 BaseType = 0x88
	BaseFloat64 BaseType = 0x89
	BaseUint8z  BaseType = 0x0A
	BaseUint16z BaseType = 0x8B
	BaseUint32z BaseType = 0x8C
	BaseByte    BaseType = 0x0D
	BaseSint64  BaseType = 0x8E
	BaseUint64  BaseType = 0x8F
	BaseUint64z BaseType = 0x90
)

// baseTypeInfo describes one base type's wire size and invalid-value
// sentinel, per spec.md §4.6/§9: "Model the base-type table as {name,
// size, invalid_sentinel_u64}; the generic decode does `if raw == sentinel
// { skip }` before the handler runs."
type baseTypeInfo struct {
	name            string
	size            int
	invalidSentinel uint64
	signed          bool
	float           bool
}

var baseTypeTable = map[BaseType]baseTypeInfo{
	BaseEnum:    {"enum", 1, 0xFF, false, false},
	BaseSint8:   {"sint8", 1, 0x7F, true, false},
	BaseUint8:   {"uint8", 1, 0xFF, false, false},
	BaseSint16:  {"sint16", 2, 0x7FFF, true, false},
	BaseUint16:  {"uint16", 2, 0xFFFF, false, false},
	BaseSint32:  {"sint32", 4, 0x7FFFFFFF, true, false},
	BaseUint32:  {"uint32", 4, 0xFFFFFFFF, false, false},
	BaseString:  {"string", 1, 0x00, false, false},
	BaseFloat32: {"float32", 4, 0xFFFFFFFF, false, true},
	BaseFloat64: {"float64", 8, 0xFFFFFFFFFFFFFFFF, false, true},
	BaseUint8z:  {"uint8z", 1, 0x00, false, false},
	BaseUint16z: {"uint16z", 2, 0x0000, false, false},
	BaseUint32z: {"uint32z", 4, 0x00000000, false, false},
	BaseByte:    {"byte", 1, 0xFF, false, false},
	BaseSint64:  {"sint64", 8, 0x7FFFFFFFFFFFFFFF, true, false},
	BaseUint64:  {"uint64", 8, 0xFFFFFFFFFFFFFFFF, false, false},
	BaseUint64z: {"uint64z", 8, 0x0000000000000000, false, false},
}

// lookupBaseType resolves the field-definition base_type byte to its
// table entry, masking off the two reserved/endian-ability bits (0x60) the
// FIT spec sets aside. Unknown codes fall back to a 1-byte opaque type so
// the decoder can still skip over the field's bytes without corrupting
// subsequent field offsets.
func lookupBaseType(raw byte) (BaseType, baseTypeInfo) {
	bt := BaseType(raw &^ 0x60)
	if info, ok := baseTypeTable[bt]; ok {
		return bt, info
	}
	return BaseByte, baseTypeInfo{"unknown", 1, 0xFF, false, false}
}

// sizeFor reports the declared byte size for bt.
func sizeFor(bt BaseType) int {
	if info, ok := baseTypeTable[bt]; ok {
		return info.size
	}
	return 1
}
