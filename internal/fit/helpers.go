package fit

import (
	"math"

	"github.com/divelogio/divecore/internal/divetypes"
)

type diveModeT = divetypes.DiveMode

const (
	diveModeOC       = divetypes.DiveModeOpenCircuit
	diveModeCCR      = divetypes.DiveModeClosedCircuitRebreather
	diveModeGauge    = divetypes.DiveModeGauge
	diveModeFreedive = divetypes.DiveModeFreedive
)

// float32FromBits reinterprets a raw FIT FLOAT32 field (IEEE-754 single,
// honoring the definition's declared endianness when it was read into
// raw) as a Go float32.
func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

// waterTypeToSalinity maps the DIVE_SETTINGS water_type enum to a
// normalized Salinity, keeping any density already observed.
func waterTypeToSalinity(waterType int, density float64) divetypes.Salinity {
	switch waterType {
	case 0:
		return divetypes.Salinity{Kind: divetypes.SalinityFresh, Density: density}
	case 1:
		return divetypes.Salinity{Kind: divetypes.SalinitySalt, Density: density}
	default:
		return divetypes.Salinity{Kind: divetypes.SalinityCustom, Density: density}
	}
}

// decoderGPSTarget names which per-dive GPS corner a lat/lon component
// belongs to, and whether this field is the latitude or longitude half of
// the pair; latLonHandler writes one component at a time into that
// corner slot.
type decoderGPSTarget struct {
	field string
	isLat bool
}

// latLonHandler builds a field handler that records a SINT32 lat/long
// component (units of 180deg/2^31, spec.md §4.8) into the named GPS
// corner slot on the per-dive state.
func latLonHandler(target decoderGPSTarget) func(d *Decoder, raw uint64, be bool) {
	return func(d *Decoder, raw uint64, be bool) {
		degrees := semicirclesToDegrees(int32(raw))
		d.recordGPSComponent(target.field, target.isLat, degrees)
	}
}

const semicircleScale = 180.0 / 2147483648.0 // 180 / 2^31

func semicirclesToDegrees(v int32) float64 {
	return float64(v) * semicircleScale
}

// --- sample constructors -------------------------------------------------

func sampleTime(t float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleTime, TimeS: t}
}

func sampleDepth(m float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleDepth, Depth: m}
}

func sampleTemperature(c float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleTemperature, Temperature: c}
}

func sampleHeartbeat(bpm float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleHeartbeat, Heartbeat: bpm}
}

func sampleCNS(fraction float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleCNS, CNS: fraction}
}

func sampleRBT(minutes float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleRBT, RBT: minutes}
}

func sampleTTS(seconds float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleTTS, TTS: seconds}
}

func sampleDecoNDL(seconds float64) divetypes.Sample {
	return divetypes.Sample{
		Kind: divetypes.SampleDeco,
		Deco: divetypes.Deco{Kind: divetypes.DecoNDL, TimeS: seconds},
	}
}

func samplePPO2(bar float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SamplePPO2, PPO2: bar}
}

func sampleSetpoint(bar float64) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleSetpoint, Setpoint: bar}
}

func sampleGasMix(index int) divetypes.Sample {
	return divetypes.Sample{Kind: divetypes.SampleGasMix, GasMixIndex: index}
}

func samplePressure(tankIndex int, bar float64) divetypes.Sample {
	return divetypes.Sample{
		Kind:     divetypes.SamplePressure,
		Pressure: divetypes.Pressure{TankIndex: tankIndex, Bar: bar},
	}
}

func sampleDecoStop(timeS, depthM float64) divetypes.Sample {
	return divetypes.Sample{
		Kind: divetypes.SampleDeco,
		Deco: divetypes.Deco{Kind: divetypes.DecoStop, TimeS: timeS, Depth: depthM},
	}
}

func sampleEvent(code int, name string, severity divetypes.EventSeverity) divetypes.Sample {
	return divetypes.Sample{
		Kind:  divetypes.SampleEvent,
		Event: divetypes.Event{Kind: code, Name: name, Severity: severity},
	}
}
