package fieldcache

import (
	stgpsr "github.com/yuin/stagparser"
)

// tankFieldUnits maps TankInfo's field names to the unit declared in its
// `units` struct tag, built once from TankInfo{}'s tag definitions the same
// way the teacher's schema.go pulls a field's tiledb/filters definitions
// from stgpsr.ParseStruct before driving CreateAttr.
var tankFieldUnits = buildTankFieldUnits()

func buildTankFieldUnits() map[string]string {
	out := make(map[string]string)

	defs, err := stgpsr.ParseStruct(TankInfo{}, "units")
	if err != nil {
		return out
	}
	for name, fieldDefs := range defs {
		for _, def := range fieldDefs {
			if v, ok := def.Attribute("units"); ok {
				if s, ok := v.(string); ok {
					out[name] = s
				}
			}
		}
	}
	return out
}

// TankFieldUnits reports the measurement unit declared on each TankInfo
// field ("SizeLiters" -> "liters", "WorkingBar" -> "bar"), for callers that
// need to label a tank summary without hardcoding TankInfo's layout.
func TankFieldUnits() map[string]string {
	return tankFieldUnits
}
