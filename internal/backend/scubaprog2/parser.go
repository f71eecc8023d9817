package scubaprog2

import (
	"time"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/parser"
)

// headerSize is the fixed-width dive-data header: start_epoch(u32le),
// max_depth_cm(u16le), duration_s(u16le), gas_o2_pct(u8). Undocumented
// beyond the outer packet transport, same caveat noted in
// internal/backend/mclean and internal/backend/deepblu.
const headerSize = 9

// sampleSize is one fixed-width sample record: depth_cm(u16le),
// temp_c_x10(i16le).
const sampleSize = 4

const sampleIntervalS = 2.0

// Parser decodes one Scubapro G2 dive-data payload.
type Parser struct {
	base parser.Base

	diveStart time.Time
	haveStart bool
}

func NewParser() *Parser {
	return &Parser{base: parser.NewBase(device.KindScubaproG2)}
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
		return time.Time{}, dcerr.New("scubaprog2.Parser.GetDateTime", dcerr.Unsupported)
	}
	return p.diveStart, nil
}

func (p *Parser) SamplesForeach(cb parser.SampleCallback) error {
	return p.decode(cb)
}

func (p *Parser) decode(cb parser.SampleCallback) error {
	data := p.base.Data
	if len(data) < headerSize {
		return dcerr.New("scubaprog2.Parser.decode", dcerr.DataFormat)
	}

	startEpoch := bytesx.U32LE(data[0:4])
	maxDepthCm := bytesx.U16LE(data[4:6])
	durationS := bytesx.U16LE(data[6:8])
	o2Pct := data[8]

	p.diveStart = time.Unix(int64(startEpoch), 0).UTC()
	p.haveStart = true

	p.base.FieldCache.SetMaxDepth(float64(maxDepthCm) / 100.0)
	p.base.FieldCache.SetDiveTime(float64(durationS))
	p.base.FieldCache.SetGasMix(0, divetypes.NewGasMix(0, float64(o2Pct)))

	samples := data[headerSize:]
	if len(samples)%sampleSize != 0 {
		return dcerr.New("scubaprog2.Parser.decode", dcerr.DataFormat)
	}

	t := 0.0
	for off := 0; off+sampleSize <= len(samples); off += sampleSize {
		depthCm := bytesx.U16LE(samples[off : off+2])
		tempRaw := int16(bytesx.U16LE(samples[off+2 : off+4]))

		if cb != nil {
			cb(divetypes.Sample{Kind: divetypes.SampleTime, TimeS: t})
			cb(divetypes.Sample{Kind: divetypes.SampleDepth, Depth: float64(depthCm) / 100.0})
			cb(divetypes.Sample{Kind: divetypes.SampleTemperature, Temperature: float64(tempRaw) / 10.0})
		}
		t += sampleIntervalS
	}
	return nil
}
