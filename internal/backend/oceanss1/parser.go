package oceanss1

import (
	"strconv"
	"strings"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/parser"
)

// defaultSampleIntervalS is the protocol's implicit sample period when no
// per-sample timestamp is transmitted (spec.md §4.9).
const defaultSampleIntervalS = 10.0

// Parser decodes one Oceans S1 dive chunk: a "dive nr,mode,o2,unix_epoch"
// header, zero or more sample/continue lines, and an "enddive
// max_depth_cm,duration_s" trailer (spec.md §4.9).
type Parser struct {
	base parser.Base

	lines     []string
	diveStart time.Time
	haveStart bool
}

func NewParser() *Parser {
	return &Parser{base: parser.NewBase(device.KindOceansS1)}
}

var _ parser.Parser = (*Parser)(nil)

func (p *Parser) Kind() device.Kind             { return p.base.Kind() }
func (p *Parser) Cache() *fieldcache.Cache      { return p.base.Cache() }
func (p *Parser) GetField(ft divetypes.FieldType, index int) (any, error) {
	return p.base.GetField(ft, index)
}

// SetData parses the full dive chunk once to prime the field cache
// (spec.md §4.2).
func (p *Parser) SetData(data []byte) error {
	p.base.Reset(data)
	p.lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	p.haveStart = false

	if len(p.lines) == 0 {
		return dcerr.New("oceanss1.Parser.SetData", dcerr.DataFormat)
	}

	return p.decode(nil)
}

func (p *Parser) GetDateTime() (time.Time, error) {
	if !p.haveStart {
		return time.Time{}, dcerr.New("oceanss1.Parser.GetDateTime", dcerr.Unsupported)
	}
	return p.diveStart, nil
}

func (p *Parser) SamplesForeach(cb parser.SampleCallback) error {
	return p.decode(cb)
}

// decode walks the dive's lines once, installing field-cache values and
// optionally invoking cb with the reconstructed sample stream (spec.md
// §4.9). Time always precedes the value samples it timestamps, since each
// line emits its Time sample before its Depth (and Temperature) samples.
func (p *Parser) decode(cb parser.SampleCallback) error {
	t := 0.0
	for _, raw := range p.lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "dive "):
			if err := p.decodeHeader(line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "continue"):
			p.emitSurfacePair(cb, &t, line)
		case strings.HasPrefix(line, "enddive"):
			if err := p.decodeTrailer(line); err != nil {
				return err
			}
		default:
			if err := p.decodeSample(cb, &t, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Parser) decodeHeader(line string) error {
	fields := strings.SplitN(strings.TrimPrefix(line, "dive "), ",", 4)
	if len(fields) != 4 {
		return dcerr.New("oceanss1.Parser.decodeHeader", dcerr.DataFormat)
	}
	mode, err1 := strconv.Atoi(fields[1])
	o2, err2 := strconv.Atoi(fields[2])
	epoch, err3 := strconv.ParseInt(fields[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return dcerr.New("oceanss1.Parser.decodeHeader", dcerr.DataFormat)
	}

	p.diveStart = time.Unix(epoch, 0).UTC()
	p.haveStart = true

	switch mode {
	case 0:
		p.base.FieldCache.SetDiveMode(divetypes.DiveModeOpenCircuit)
	case 1:
		p.base.FieldCache.SetDiveMode(divetypes.DiveModeGauge)
	default:
		p.base.FieldCache.SetDiveMode(divetypes.DiveModeOpenCircuit)
	}
	p.base.FieldCache.SetGasMix(0, divetypes.NewGasMix(0, float64(o2)))
	return nil
}

func (p *Parser) decodeTrailer(line string) error {
	fields := strings.SplitN(strings.TrimPrefix(line, "enddive "), ",", 2)
	if len(fields) != 2 {
		return dcerr.New("oceanss1.Parser.decodeTrailer", dcerr.DataFormat)
	}
	maxDepthCm, err1 := strconv.Atoi(fields[0])
	durationS, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return dcerr.New("oceanss1.Parser.decodeTrailer", dcerr.DataFormat)
	}
	p.base.FieldCache.SetMaxDepth(float64(maxDepthCm) / 100.0)
	p.base.FieldCache.SetDiveTime(float64(durationS))
	return nil
}

// decodeSample parses a "depth_cm,temperature_c,flags_hex" line, advancing
// the running clock by the default sample interval (spec.md §4.9).
func (p *Parser) decodeSample(cb parser.SampleCallback, t *float64, line string) error {
	fields := strings.SplitN(line, ",", 3)
	if len(fields) < 2 {
		return dcerr.New("oceanss1.Parser.decodeSample", dcerr.DataFormat)
	}
	depthCm, err1 := strconv.Atoi(fields[0])
	tempC, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return dcerr.New("oceanss1.Parser.decodeSample", dcerr.DataFormat)
	}

	if cb != nil {
		cb(divetypes.Sample{Kind: divetypes.SampleTime, TimeS: *t})
		cb(divetypes.Sample{Kind: divetypes.SampleDepth, Depth: float64(depthCm) / 100.0})
		cb(divetypes.Sample{Kind: divetypes.SampleTemperature, Temperature: float64(tempC)})
	}
	*t += defaultSampleIntervalS
	return nil
}

// emitSurfacePair injects the pair of surface samples ("continue
// bottom_depth_cm,surface_seconds" per spec.md §4.9) surrounding a
// surface interval: one at depth 0 marking the ascent, one
// surface_seconds later at bottom_depth_cm marking the descent back in.
func (p *Parser) emitSurfacePair(cb parser.SampleCallback, t *float64, line string) {
	fields := strings.SplitN(strings.TrimPrefix(line, "continue "), ",", 2)
	if len(fields) != 2 {
		return
	}
	bottomDepthCm, err1 := strconv.Atoi(fields[0])
	surfaceS, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return
	}

	if cb != nil {
		cb(divetypes.Sample{Kind: divetypes.SampleTime, TimeS: *t})
		cb(divetypes.Sample{Kind: divetypes.SampleDepth, Depth: 0})
	}
	*t += float64(surfaceS)
	if cb != nil {
		cb(divetypes.Sample{Kind: divetypes.SampleTime, TimeS: *t})
		cb(divetypes.Sample{Kind: divetypes.SampleDepth, Depth: float64(bottomDepthCm) / 100.0})
	}
}
