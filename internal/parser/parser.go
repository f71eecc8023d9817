// Package parser defines the polymorphic Parser capability (spec.md §3
// ParserHandle, §4.2 C6): set_data primes a field cache from one dive's
// raw bytes, then get_datetime/get_field/samples_foreach replay it.
package parser

import (
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
)

// SampleCallback is the contract produced to the outside by
// SamplesForeach (spec.md §6): the Sample value is copied, no memory
// lifetime is implied.
type SampleCallback func(divetypes.Sample)

// Parser is the polymorphic capability every backend's dive-format reader
// implements.
type Parser interface {
	// SetData binds data (no copy required; the caller guarantees the
	// bytes outlive the parser), walking it once with no callback to
	// prime the field cache. Idempotent: a second call resets state
	// first.
	SetData(data []byte) error

	// GetDateTime writes the dive's wall-clock start time. Timezone is
	// unknown unless the wire format encodes one.
	GetDateTime() (time.Time, error)

	// GetField retrieves a cached scalar or indexed value, returning
	// Unsupported if the corresponding bit is clear in the cache's
	// initialized set. index is ignored for scalar field types.
	GetField(ft divetypes.FieldType, index int) (any, error)

	// SamplesForeach replays the decode, emitting samples this time. Time
	// samples must precede same-instant value samples.
	SamplesForeach(cb SampleCallback) error

	// Cache exposes the field cache directly for typed access beyond the
	// polymorphic GetField dispatch.
	Cache() *fieldcache.Cache

	// Kind reports which backend this Parser decodes for.
	Kind() device.Kind
}

// Base holds the fields common to every backend's Parser (the raw bytes
// borrowed for the handle's lifetime, the backend discriminator, and the
// field cache), mirroring device.Base for the Device side of the
// contract.
type Base struct {
	BackendKind device.Kind
	Data        []byte
	FieldCache  *fieldcache.Cache
}

// NewBase constructs a Base for the given backend kind with a fresh field
// cache.
func NewBase(kind device.Kind) Base {
	return Base{BackendKind: kind, FieldCache: fieldcache.New()}
}

// Kind reports the backend discriminator.
func (b *Base) Kind() device.Kind { return b.BackendKind }

// Cache exposes the field cache.
func (b *Base) Cache() *fieldcache.Cache { return b.FieldCache }

// Reset clears the bound data and installs a fresh field cache, called at
// the top of every SetData implementation so repeated calls are
// idempotent (spec.md §4.2).
func (b *Base) Reset(data []byte) {
	b.Data = data
	b.FieldCache = fieldcache.New()
}

// GetField implements the generic dispatcher described in spec.md §4.3
// over a Base's FieldCache, for backends whose GetField has no
// backend-specific cases beyond the shared field-cache lookup.
func (b *Base) GetField(ft divetypes.FieldType, index int) (any, error) {
	c := b.FieldCache
	switch ft {
	case divetypes.FieldDiveTime:
		return c.GetDiveTime()
	case divetypes.FieldMaxDepth:
		return c.GetMaxDepth()
	case divetypes.FieldAvgDepth:
		return c.GetAvgDepth()
	case divetypes.FieldAtmospheric:
		return c.GetAtmospheric()
	case divetypes.FieldGasMixCount:
		return c.GasMixCount(), nil
	case divetypes.FieldTankCount:
		return c.GetTankCount()
	case divetypes.FieldGasMix:
		return c.GetGasMix(index)
	case divetypes.FieldSalinity:
		return c.GetSalinity()
	case divetypes.FieldDiveMode:
		return c.GetDiveMode()
	default:
		return nil, dcerr.New("parser.GetField", dcerr.Unsupported)
	}
}
