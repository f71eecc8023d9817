package garmin

import (
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/fit"
	"github.com/divelogio/divecore/internal/parser"
)

// Parser decodes one Garmin .fit dive, delegating the wire format entirely
// to internal/fit and exposing it through the Parser capability contract.
type Parser struct {
	base parser.Base

	decoder   *fit.Decoder
	diveStart time.Time
	haveStart bool
}

// NewParser constructs an empty Garmin Parser. Call SetData before any
// other method.
func NewParser() *Parser {
	return &Parser{base: parser.NewBase(device.KindGarmin)}
}

var _ parser.Parser = (*Parser)(nil)

func (p *Parser) Kind() device.Kind { return p.base.Kind() }

func (p *Parser) Cache() *fieldcache.Cache { return p.base.Cache() }

// SetData binds data (the 24-byte fingerprint prefix followed by the raw
// .fit bytes, exactly what garmin.Device.Foreach/Dump produce) and runs
// one decode pass with no sample callback to prime the field cache
// (spec.md §4.2).
func (p *Parser) SetData(data []byte) error {
	p.base.Reset(data)
	p.decoder = fit.NewDecoder(data)

	res, err := p.decoder.Run(nil)
	if err != nil {
		return dcerr.Wrap("garmin.Parser.SetData", dcerr.DataFormat, err)
	}
	p.base.FieldCache = res.Cache

	if res.HaveDiveStart {
		p.diveStart = res.DiveStart
		p.haveStart = true
		return nil
	}
	if len(data) >= fingerprintLen {
		if t, ok := fingerprintTime(data[:fingerprintLen]); ok {
			p.diveStart = t
			p.haveStart = true
		}
	}
	return nil
}

// GetDateTime prefers the FIT stream's own dive-start timestamp, falling
// back to the filename fingerprint's embedded date when the decoded body
// carried none (spec.md §8 S1).
func (p *Parser) GetDateTime() (time.Time, error) {
	if !p.haveStart {
		return time.Time{}, dcerr.New("garmin.Parser.GetDateTime", dcerr.Unsupported)
	}
	return p.diveStart, nil
}

func (p *Parser) GetField(ft divetypes.FieldType, index int) (any, error) {
	return p.base.GetField(ft, index)
}

// SamplesForeach replays the decode with cb installed, so Time samples
// and value samples are emitted in the order internal/fit's decoder
// guarantees (spec.md §3).
func (p *Parser) SamplesForeach(cb parser.SampleCallback) error {
	if p.decoder == nil {
		return dcerr.New("garmin.Parser.SamplesForeach", dcerr.InvalidArgs)
	}
	_, err := p.decoder.Run(func(s divetypes.Sample) { cb(s) })
	if err != nil {
		return dcerr.Wrap("garmin.Parser.SamplesForeach", dcerr.DataFormat, err)
	}
	return nil
}
