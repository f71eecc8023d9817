// Package shearwater decodes Shearwater Predator/Petrel dive logs, an
// XML document per dive shaped like the `SWLog`/`SWLogRecord` schema:
// a dive header (number, gradient factors, start/end timestamps, max
// depth/time) followed by an ordered list of timed records (depth,
// PPO2, gas fraction, deco stop state).
package shearwater

import (
	"encoding/xml"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/parser"
)

// logRecord is one timed entry in a dive's XML record list.
type logRecord struct {
	XMLName        xml.Name `xml:"diveLogRecord"`
	TimeS          int      `xml:"currentTime"`
	DepthFt        float64  `xml:"currentDepth"`
	FirstStopDepth int      `xml:"firstStopDepth"`
	FirstStopTime  int      `xml:"firstStopTime"`
	TTSMins        int      `xml:"ttsMins"`
	AveragePPO2    float64  `xml:"averagePPO2"`
	FractionO2     float64  `xml:"fractionO2"`
	FractionHe     float64  `xml:"fractionHe"`
}

type logRecords struct {
	XMLName xml.Name    `xml:"diveLogRecords"`
	Records []logRecord `xml:"diveLogRecord"`
}

// logDocument is one dive's full XML export.
type logDocument struct {
	XMLName   xml.Name   `xml:"diveLog"`
	Number    int        `xml:"number"`
	GFLow     int        `xml:"gfMin"`
	GFHigh    int        `xml:"gfMax"`
	Imperial  bool       `xml:"imperialUnits"`
	StartDate string     `xml:"startDate"`
	MaxDepth  int        `xml:"maxDepth"`
	MaxTime   int        `xml:"maxTime"`
	EndDate   string     `xml:"endDate"`
	Records   logRecords `xml:"diveLogRecords"`
}

type diveEnvelope struct {
	XMLName xml.Name    `xml:"dive"`
	Version int         `xml:"version,attr"`
	Log     logDocument `xml:"diveLog"`
}

const startDateLayout = time.ANSIC + " UTC"

// ftToMeters converts the export's imperial depth unit to meters; the
// field cache and sample stream are always metric regardless of the
// source document's imperialUnits flag (spec.md §3 FieldCache is
// defined in meters).
const ftToMeters = 0.3048

// Parser decodes one Shearwater dive XML document.
type Parser struct {
	base parser.Base

	diveStart time.Time
	haveStart bool
}

func NewParser() *Parser {
	return &Parser{base: parser.NewBase(device.KindShearwater)}
}

var _ parser.Parser = (*Parser)(nil)

func (p *Parser) Kind() device.Kind        { return p.base.Kind() }
func (p *Parser) Cache() *fieldcache.Cache { return p.base.Cache() }
func (p *Parser) GetField(ft divetypes.FieldType, index int) (any, error) {
	return p.base.GetField(ft, index)
}

func (p *Parser) SetData(data []byte) error {
	p.base.Reset(data)
	p.haveStart = false
	return p.decode(nil)
}

func (p *Parser) GetDateTime() (time.Time, error) {
	if !p.haveStart {
		return time.Time{}, dcerr.New("shearwater.Parser.GetDateTime", dcerr.Unsupported)
	}
	return p.diveStart, nil
}

func (p *Parser) SamplesForeach(cb parser.SampleCallback) error {
	return p.decode(cb)
}

func (p *Parser) decode(cb parser.SampleCallback) error {
	var env diveEnvelope
	if err := xml.Unmarshal(p.base.Data, &env); err != nil {
		return dcerr.Wrap("shearwater.Parser.decode", dcerr.DataFormat, err)
	}
	log := env.Log

	t, err := time.Parse(startDateLayout, log.StartDate)
	if err != nil {
		return dcerr.Wrap("shearwater.Parser.decode", dcerr.DataFormat, err)
	}
	p.diveStart = t
	p.haveStart = true

	maxDepth := float64(log.MaxDepth)
	if log.Imperial {
		maxDepth *= ftToMeters
	}
	p.base.FieldCache.SetMaxDepth(maxDepth)
	p.base.FieldCache.SetDiveTime(float64(log.MaxTime))
	p.base.FieldCache.SetDiveMode(divetypes.DiveModeOpenCircuit)
	p.base.FieldCache.SetString("Deco model", gfLabel(log.GFLow, log.GFHigh))

	if len(log.Records.Records) > 0 {
		first := log.Records.Records[0]
		p.base.FieldCache.SetGasMix(0, divetypes.NewGasMix(first.FractionHe, first.FractionO2))
	}

	lastTime := -1.0
	for _, r := range log.Records.Records {
		depth := r.DepthFt
		if log.Imperial {
			depth *= ftToMeters
		}
		timeS := float64(r.TimeS)

		if cb != nil {
			if timeS >= lastTime {
				cb(divetypes.Sample{Kind: divetypes.SampleTime, TimeS: timeS})
				lastTime = timeS
			}
			cb(divetypes.Sample{Kind: divetypes.SampleDepth, Depth: depth})
			cb(divetypes.Sample{Kind: divetypes.SamplePPO2, PPO2: r.AveragePPO2})
			if r.FirstStopTime > 0 {
				stopDepth := float64(r.FirstStopDepth)
				if log.Imperial {
					stopDepth *= ftToMeters
				}
				cb(divetypes.Sample{
					Kind: divetypes.SampleDeco,
					Deco: divetypes.Deco{
						Kind:  divetypes.DecoStop,
						TimeS: float64(r.FirstStopTime),
						Depth: stopDepth,
					},
				})
			}
		}
	}
	return nil
}

func gfLabel(low, high int) string {
	return "Buhlmann ZHL-16C " + itoa(low) + "/" + itoa(high)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
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
