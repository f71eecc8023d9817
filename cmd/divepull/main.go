// Command divepull downloads and decodes dives from a named backend,
// mirroring the teacher's cmd/main.go shape: a urfave/cli/v2 app with one
// subcommand per operation, plain log.Printf progress reporting, and a
// small per-backend switch instead of a generic factory (the teacher
// itself never abstracts convert_gsf's single GSF codec behind an
// interface, and this repo's backend list is short enough that a switch
// reads more plainly than a registry).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/divelogio/divecore/internal/archive"
	"github.com/divelogio/divecore/internal/backend/deepblu"
	"github.com/divelogio/divecore/internal/backend/garmin"
	"github.com/divelogio/divecore/internal/backend/mclean"
	"github.com/divelogio/divecore/internal/backend/oceanss1"
	"github.com/divelogio/divecore/internal/backend/scubaprog2"
	"github.com/divelogio/divecore/internal/backend/shearwater"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/parser"
	"github.com/divelogio/divecore/internal/workerpool"
)

var errUnknownBackend = errors.New("unknown backend")

// openDevice builds the Device and matching Parser constructor for a
// named backend, wiring the CLI's transport flags to the right
// iostream.Stream/PacketStream adapter.
func openDevice(backend, transportPath, advertisedName string, packetSize int, bus *events.Bus) (device.Device, func() parser.Parser, error) {
	switch backend {
	case "garmin":
		return garmin.New(transportPath, bus), func() parser.Parser { return garmin.NewParser() }, nil
	case "deepblu":
		s, err := openFileStream(transportPath, true)
		if err != nil {
			return nil, nil, err
		}
		return deepblu.New(s, bus), func() parser.Parser { return deepblu.NewParser() }, nil
	case "oceanss1":
		s, err := openFileStream(transportPath, true)
		if err != nil {
			return nil, nil, err
		}
		return oceanss1.New(s, bus), func() parser.Parser { return oceanss1.NewParser() }, nil
	case "mclean":
		s, err := openFileStream(transportPath, true)
		if err != nil {
			return nil, nil, err
		}
		return mclean.New(s, bus), func() parser.Parser { return mclean.NewParser() }, nil
	case "scubapro_g2":
		s, err := openFilePacketStream(transportPath, true, packetSize)
		if err != nil {
			return nil, nil, err
		}
		return scubaprog2.New(s, advertisedName, bus), func() parser.Parser { return scubaprog2.NewParser() }, nil
	case "shearwater":
		s, err := openFileStream(transportPath, false)
		if err != nil {
			return nil, nil, err
		}
		return shearwater.New(s, bus), func() parser.Parser { return shearwater.NewParser() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnknownBackend, backend)
	}
}

func backendKind(name string) device.Kind {
	switch name {
	case "garmin":
		return device.KindGarmin
	case "deepblu":
		return device.KindDeepblu
	case "oceanss1":
		return device.KindOceansS1
	case "mclean":
		return device.KindMcLean
	case "scubapro_g2":
		return device.KindScubaproG2
	case "shearwater":
		return device.KindShearwater
	default:
		return device.KindGarmin
	}
}

// progressBus builds an events.Bus whose Sink logs progress and devinfo
// events via log.Printf, matching the teacher's plain log.Println
// progress reporting in convert_gsf/convert_gsf_list.
func progressBus() *events.Bus {
	return events.NewBus(func(ev events.Event) {
		switch ev.Kind {
		case events.KindProgress:
			log.Printf("progress: %d/%d", ev.Progress.Current, ev.Progress.Maximum)
		case events.KindDevinfo:
			log.Printf("device: model=%s firmware=%s serial=%s", ev.Devinfo.Model, ev.Devinfo.Firmware, ev.Devinfo.Serial)
		case events.KindClock:
			log.Printf("clock: sys=%s dev=%s", ev.Clock.SysTime, ev.Clock.DevTime)
		}
	})
}

func transportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "backend", Usage: "Backend name: garmin, deepblu, oceanss1, mclean, scubapro_g2, shearwater.", Required: true},
		&cli.StringFlag{Name: "transport", Usage: "Path to the backend's transport: a Garmin Activity directory, or a captured-transcript file for every other backend.", Required: true},
		&cli.StringFlag{Name: "advertised-name", Usage: "BLE advertised name (scubapro_g2 only; its handshake passphrase is derived from this)."},
		&cli.IntFlag{Name: "packet-size", Usage: "Fixed packet size (scubapro_g2 only).", Value: 20},
		&cli.StringFlag{Name: "archive-uri", Usage: "Dive archive root URI (local path or object store); empty disables incremental sync."},
		&cli.StringFlag{Name: "archive-config-uri", Usage: "TileDB config URI for the archive's object-store credentials."},
		&cli.StringFlag{Name: "out-dir", Usage: "Directory to write each dive's raw bytes into.", Value: "."},
	}
}

func pullAction(cCtx *cli.Context) error {
	backend := cCtx.String("backend")
	bus := progressBus()

	dev, newParser, err := openDevice(backend, cCtx.String("transport"), cCtx.String("advertised-name"), cCtx.Int("packet-size"), bus)
	if err != nil {
		return err
	}
	defer dev.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-sigCtx.Done()
		dev.Cancel()
	}()

	kind := backendKind(backend)

	var arc *archive.Archive
	if uri := cCtx.String("archive-uri"); uri != "" {
		arc, err = archive.Open(uri, cCtx.String("archive-config-uri"))
		if err != nil {
			return err
		}
		defer arc.Close()

		if fp, ok, err := arc.Last(kind); err == nil && ok {
			if err := dev.SetFingerprint(fp); err != nil {
				return err
			}
		}
	}

	log.Printf("enumerating dives from backend %s", backend)

	var jobs []workerpool.DecodeJob
	err = dev.Foreach(func(diveBytes, fingerprint []byte) bool {
		jobs = append(jobs, workerpool.DecodeJob{
			BackendID:   kind,
			Fingerprint: append([]byte(nil), fingerprint...),
			DiveBytes:   append([]byte(nil), diveBytes...),
			NewParser:   newParser,
		})
		return true
	})
	if err != nil {
		return err
	}

	log.Printf("decoding %d dives", len(jobs))

	pool := workerpool.New(context.Background())
	defer pool.Stop()
	results := pool.Decode(jobs)

	// results follow Foreach's newest-first order; walk them oldest-first
	// so the last Put leaves the newest dive's fingerprint as the anchor.
	now := time.Now()
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if r.Err != nil {
			log.Printf("dive %d: decode failed: %v", i, r.Err)
			continue
		}

		summary := summarize(r.Cache)
		rawURI := filepath.Join(cCtx.String("out-dir"), fmt.Sprintf("%s-%d.raw", backend, i))
		if err := os.WriteFile(rawURI, jobs[i].DiveBytes, 0o644); err != nil {
			return err
		}

		record := archive.DiveArchiveRecord{
			BackendID:    kind,
			Fingerprint:  r.Fingerprint,
			DownloadedAt: now,
			RawBytesURI:  rawURI,
			Summary:      summary,
		}

		if arc != nil {
			if err := arc.Put(record); err != nil {
				return err
			}
		}
	}

	return nil
}

func summarize(cache *fieldcache.Cache) archive.DiveSummary {
	var s archive.DiveSummary
	if v, err := cache.GetMaxDepth(); err == nil {
		s.MaxDepth = v
	}
	if v, err := cache.GetDiveTime(); err == nil {
		s.DiveTime = v
	}
	for i := 0; i < cache.GasMixCount(); i++ {
		if mix, err := cache.GetGasMix(i); err == nil {
			s.GasMixes = append(s.GasMixes, mix)
		}
	}
	if n, err := cache.GetTankCount(); err == nil && n > 0 {
		for i := 0; i < n; i++ {
			if tank, err := cache.GetTank(i); err == nil {
				s.Tanks = append(s.Tanks, tank)
			}
		}
		logTankUnitsOnce()
	}
	return s
}

var loggedTankUnits bool

// logTankUnitsOnce reports the declared units for a tank summary's fields,
// so an operator reading pull output knows SizeLiters/WorkingBar without
// consulting the fieldcache package.
func logTankUnitsOnce() {
	if loggedTankUnits {
		return
	}
	loggedTankUnits = true
	for field, unit := range fieldcache.TankFieldUnits() {
		log.Printf("tank field %s is in %s", field, unit)
	}
}

func dumpAction(cCtx *cli.Context) error {
	backend := cCtx.String("backend")
	bus := progressBus()

	dev, _, err := openDevice(backend, cCtx.String("transport"), cCtx.String("advertised-name"), cCtx.Int("packet-size"), bus)
	if err != nil {
		return err
	}
	defer dev.Close()

	data, err := dev.Dump()
	if err != nil {
		return err
	}

	out := cCtx.String("out-file")
	if out == "" {
		out = backend + ".dump"
	}
	return os.WriteFile(out, data, 0o644)
}

func main() {
	app := &cli.App{
		Name:  "divepull",
		Usage: "Download and decode dives from a supported dive-computer backend.",
		Commands: []*cli.Command{
			{
				Name:   "pull",
				Usage:  "Enumerate new dives from a backend, decode them, and update the dive archive.",
				Flags:  transportFlags(),
				Action: pullAction,
			},
			{
				Name:  "dump",
				Usage: "Read a backend's full memory image to a file.",
				Flags: append(transportFlags(), &cli.StringFlag{Name: "out-file", Usage: "Output file path."}),
				Action: dumpAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
