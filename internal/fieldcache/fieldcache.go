// Package fieldcache implements the keyed field-cache capability (spec.md
// §3 FieldCache, §4.3 C4): a get-field dispatcher over a closed set of
// scalar, indexed, and string fields, gated by an "initialized" bitset so
// that reading a field nobody ever set yields Unsupported rather than a
// zero value masquerading as real data.
package fieldcache

import (
	"github.com/samber/lo"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/divetypes"
)

// MaxGases bounds the number of gas mixes a single dive may carry
// (P3 in spec.md §8).
const MaxGases = 16

type initFlag uint16

const (
	flagDiveTime initFlag = 1 << iota
	flagMaxDepth
	flagAvgDepth
	flagAtmospheric
	flagSalinity
	flagDiveMode
	flagTankCount
)

// stringEntry is one (description, value) pair owned by the cache; the
// cache copies the value on insertion so the caller's buffer can be reused
// or discarded immediately (spec.md §3's ownership invariant).
type stringEntry struct {
	description string
	value       string
}

// TankInfo describes one tank slot's cylinder size and working pressure,
// indexed the same way as gas mixes. The `units` tag is read by
// TankFieldUnits and carries no runtime behavior of its own.
type TankInfo struct {
	SizeLiters float64 `units:"liters"`
	WorkingBar float64 `units:"bar"`
}

// Cache is a per-Parser record of parsed dive-summary scalars, per-index
// gas mixes, tank info, and free-form string fields. The zero value is
// ready to use (all fields Unsupported, no gas mixes, no strings).
type Cache struct {
	initialized initFlag

	diveTimeS   float64
	maxDepth    float64
	avgDepth    float64
	atmospheric float64
	salinity    divetypes.Salinity
	diveMode    divetypes.DiveMode

	gasMixes []divetypes.GasMix
	tanks    []TankInfo

	strings []stringEntry
}

// New builds an empty Cache. Provided because a Parser resets its cache on
// every set_data call (spec.md §4.2) rather than reusing a zero value in
// place, which would otherwise require manually zeroing every field.
func New() *Cache {
	return &Cache{}
}

// SetDiveTime records the dive duration in seconds.
func (c *Cache) SetDiveTime(seconds float64) {
	c.diveTimeS = seconds
	c.initialized |= flagDiveTime
}

// SetMaxDepth records the maximum depth in meters.
func (c *Cache) SetMaxDepth(meters float64) {
	c.maxDepth = meters
	c.initialized |= flagMaxDepth
}

// SetAvgDepth records the average depth in meters.
func (c *Cache) SetAvgDepth(meters float64) {
	c.avgDepth = meters
	c.initialized |= flagAvgDepth
}

// SetAtmospheric records the atmospheric pressure in bar.
func (c *Cache) SetAtmospheric(bar float64) {
	c.atmospheric = bar
	c.initialized |= flagAtmospheric
}

// SetSalinity records the water density classification.
func (c *Cache) SetSalinity(s divetypes.Salinity) {
	c.salinity = s
	c.initialized |= flagSalinity
}

// SetDiveMode records the normalized dive mode.
func (c *Cache) SetDiveMode(m divetypes.DiveMode) {
	c.diveMode = m
	c.initialized |= flagDiveMode
}

// growTanks extends c.tanks to length n with zero TankInfo slots, using
// lo.Max the same way qa.go sizes its beam-count summaries from a slice of
// candidate lengths.
func (c *Cache) growTanks(n int) {
	target := lo.Max([]int{len(c.tanks), n})
	for len(c.tanks) < target {
		c.tanks = append(c.tanks, TankInfo{})
	}
}

// SetTankCount grows the tank table to at least n slots and marks the
// tank count as known, for backends that report tank count before tank
// detail. The count GetTankCount reports is the table length, so it never
// drops below a slot already set.
func (c *Cache) SetTankCount(n int) {
	c.growTanks(n)
	c.initialized |= flagTankCount
}

// SetTank records size/working-pressure info for tank index i, growing the
// tank table as needed (mirrors SetGasMix's grow-on-write behavior).
func (c *Cache) SetTank(i int, info TankInfo) {
	c.growTanks(i + 1)
	c.tanks[i] = info
	c.initialized |= flagTankCount
}

// SetGasMix assigns the gas mix at index i, growing the gas-mix table (and
// therefore GasMixCount) to at least i+1 if needed. Indices beyond
// MaxGases-1 are silently dropped, since spec.md §8 P3 requires
// ngasmixes <= MaxGases for every FIT input; a backend that manages to
// declare more than MaxGases mixes has a malformed log, not a new gas.
func (c *Cache) SetGasMix(i int, mix divetypes.GasMix) {
	if i != lo.Clamp(i, 0, MaxGases-1) {
		return
	}
	target := lo.Max([]int{len(c.gasMixes), i + 1})
	for len(c.gasMixes) < target {
		c.gasMixes = append(c.gasMixes, divetypes.GasMix{})
	}
	c.gasMixes[i] = mix
}

// GasMixCount returns the length of the gas-mix table: one past the highest
// index ever assigned via SetGasMix (lower indices may be unset).
func (c *Cache) GasMixCount() int {
	return len(c.gasMixes)
}

// SetString inserts or overwrites the value for description, copying value
// so the cache owns it independent of the caller's buffer.
func (c *Cache) SetString(description, value string) {
	cp := make([]byte, len(value))
	copy(cp, value)
	owned := string(cp)

	for i := range c.strings {
		if c.strings[i].description == description {
			c.strings[i].value = owned
			return
		}
	}
	c.strings = append(c.strings, stringEntry{description: description, value: owned})
}

// GetDiveTime retrieves the dive duration in seconds.
func (c *Cache) GetDiveTime() (float64, error) {
	if c.initialized&flagDiveTime == 0 {
		return 0, dcerr.New("fieldcache.GetDiveTime", dcerr.Unsupported)
	}
	return c.diveTimeS, nil
}

// GetMaxDepth retrieves the maximum depth in meters.
func (c *Cache) GetMaxDepth() (float64, error) {
	if c.initialized&flagMaxDepth == 0 {
		return 0, dcerr.New("fieldcache.GetMaxDepth", dcerr.Unsupported)
	}
	return c.maxDepth, nil
}

// GetAvgDepth retrieves the average depth in meters.
func (c *Cache) GetAvgDepth() (float64, error) {
	if c.initialized&flagAvgDepth == 0 {
		return 0, dcerr.New("fieldcache.GetAvgDepth", dcerr.Unsupported)
	}
	return c.avgDepth, nil
}

// GetAtmospheric retrieves the atmospheric pressure in bar.
func (c *Cache) GetAtmospheric() (float64, error) {
	if c.initialized&flagAtmospheric == 0 {
		return 0, dcerr.New("fieldcache.GetAtmospheric", dcerr.Unsupported)
	}
	return c.atmospheric, nil
}

// GetSalinity retrieves the water density classification.
func (c *Cache) GetSalinity() (divetypes.Salinity, error) {
	if c.initialized&flagSalinity == 0 {
		return divetypes.Salinity{}, dcerr.New("fieldcache.GetSalinity", dcerr.Unsupported)
	}
	return c.salinity, nil
}

// GetDiveMode retrieves the normalized dive mode.
func (c *Cache) GetDiveMode() (divetypes.DiveMode, error) {
	if c.initialized&flagDiveMode == 0 {
		return 0, dcerr.New("fieldcache.GetDiveMode", dcerr.Unsupported)
	}
	return c.diveMode, nil
}

// GetTankCount retrieves the number of tank slots known.
func (c *Cache) GetTankCount() (int, error) {
	if c.initialized&flagTankCount == 0 {
		return 0, dcerr.New("fieldcache.GetTankCount", dcerr.Unsupported)
	}
	return len(c.tanks), nil
}

// GetTank retrieves tank info at index i.
func (c *Cache) GetTank(i int) (TankInfo, error) {
	if i < 0 || i >= len(c.tanks) {
		return TankInfo{}, dcerr.New("fieldcache.GetTank", dcerr.Unsupported)
	}
	return c.tanks[i], nil
}

// GetGasMix retrieves the gas mix at index i. Unsupported if i is outside
// [0, GasMixCount) (spec.md §4.3's invariant).
func (c *Cache) GetGasMix(i int) (divetypes.GasMix, error) {
	if i < 0 || i >= len(c.gasMixes) {
		return divetypes.GasMix{}, dcerr.New("fieldcache.GetGasMix", dcerr.Unsupported)
	}
	return c.gasMixes[i], nil
}

// GetString retrieves the value last set for description.
func (c *Cache) GetString(description string) (string, error) {
	for _, e := range c.strings {
		if e.description == description {
			return e.value, nil
		}
	}
	return "", dcerr.New("fieldcache.GetString", dcerr.Unsupported)
}

// Strings returns a copy of every (description, value) pair set so far, as
// a map keyed by description (so with no defined order).
func (c *Cache) Strings() map[string]string {
	out := make(map[string]string, len(c.strings))
	for _, e := range c.strings {
		out[e.description] = e.value
	}
	return out
}
