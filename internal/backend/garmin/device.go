// Package garmin implements the Garmin USB-storage/MTP filesystem backend
// (spec.md §6: "Read Garmin/Activity/*.fit; filename YYYY-MM-DD-HH-MM-SS.fit
// (24 bytes with terminator) is the fingerprint. Sort newest-first via
// reverse string comparison.") and wraps internal/fit's decoder behind the
// Parser capability contract.
package garmin

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/events"
)

// fingerprintLen is the fixed width of a Garmin Activity filename
// fingerprint: "YYYY-MM-DD-HH-MM-SS" (19) + ".fit" (4) + NUL (1).
const fingerprintLen = 24

const filenameLayout = "2006-01-02-15-04-05"

var _ device.Device = (*Device)(nil)

// Device walks a mounted Garmin Activity directory, treating each .fit
// file's name as its fingerprint (the filesystem stands in for the wire
// transport spec.md §1 calls out of scope).
type Device struct {
	base device.Base

	root string
}

// New opens root as a Garmin Activity directory (typically
// ".../Garmin/Activity" on the mounted USB-storage volume). bus may be
// nil.
func New(root string, bus *events.Bus) *Device {
	return &Device{
		base: device.NewBase(device.KindGarmin, nil, bus),
		root: root,
	}
}

func (d *Device) Kind() device.Kind { return d.base.Kind() }

func (d *Device) Cancel() { d.base.Cancel() }

func (d *Device) Close() error {
	d.base.MarkClosed()
	return nil
}

func (d *Device) SetFingerprint(fp []byte) error {
	return d.base.SetFingerprintBytes("garmin.SetFingerprint", fingerprintLen, fp)
}

// Timesync is a no-op for the filesystem backend: the device clock is the
// host OS clock of whatever wrote the .fit files, not something this
// backend can set after the fact.
func (d *Device) Timesync(t time.Time) error {
	if err := d.base.EnsureOpen("garmin.Timesync"); err != nil {
		return err
	}
	return nil
}

// Dump concatenates every .fit file under root, newest-first, into one
// byte stream. Mirrors the wire backends' Dump for parity, though a
// filesystem backend has no single "device memory image".
func (d *Device) Dump() ([]byte, error) {
	if err := d.base.EnsureOpen("garmin.Dump"); err != nil {
		return nil, err
	}
	files, err := d.listActivities()
	if err != nil {
		return nil, err
	}

	var out []byte
	for i, f := range files {
		if err := d.base.CheckCancelled("garmin.Dump"); err != nil {
			return out, err
		}
		raw, err := d.readActivity(f)
		if err != nil {
			return out, err
		}
		out = append(out, raw...)
		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(i+1), uint64(len(files)))
		}
	}
	return out, nil
}

// Foreach enumerates Activity files newest-first, stopping at the first
// fingerprint matching the stored one (incremental sync), cb returning
// false, or cancellation (spec.md §6).
func (d *Device) Foreach(cb device.DiveCallback) error {
	if err := d.base.EnsureOpen("garmin.Foreach"); err != nil {
		return err
	}
	files, err := d.listActivities()
	if err != nil {
		return err
	}

	for i, f := range files {
		if err := d.base.CheckCancelled("garmin.Foreach"); err != nil {
			return err
		}

		name := filepath.Base(f)
		fp := fingerprintFromName(name)

		if d.base.FingerprintMatches(fp) {
			return nil
		}

		raw, err := d.readActivity(f)
		if err != nil {
			return err
		}

		if d.base.Events != nil {
			d.base.Events.EmitProgress(uint64(i+1), uint64(len(files)))
		}

		if !cb(raw, fp) {
			return nil
		}
	}
	return nil
}

// listActivities returns the .fit files under root, sorted newest-first by
// reverse filename comparison (spec.md §6): the YYYY-MM-DD-HH-MM-SS
// filenames sort lexicographically in time order, so a plain descending
// string sort is a correct reverse-chronological order.
func (d *Device) listActivities() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.root, "*.fit"))
	if err != nil {
		return nil, dcerr.Wrap("garmin.listActivities", dcerr.Io, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// readActivity reads one .fit file and prepends the fixed 24-byte
// filename fingerprint internal/fit's decoder expects at the front of its
// input (spec.md §4.6's "input shape").
func (d *Device) readActivity(path string) ([]byte, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, dcerr.Wrap("garmin.readActivity", dcerr.Io, err)
	}
	fp := fingerprintFromName(filepath.Base(path))
	out := make([]byte, 0, len(fp)+len(body))
	out = append(out, fp...)
	out = append(out, body...)
	return out, nil
}

// fingerprintFromName pads/truncates a filename to the fixed 24-byte
// fingerprint width, NUL-terminated, matching the on-device naming
// convention (spec.md §6).
func fingerprintFromName(name string) []byte {
	fp := make([]byte, fingerprintLen)
	copy(fp, name)
	return fp
}

// fingerprintTime parses the date/time encoded in a Garmin Activity
// fingerprint, for Parser.GetDateTime's fallback when a .fit file's body
// carries no timestamp of its own (spec.md §8 S1: "datetime derived from
// fingerprint parse").
func fingerprintTime(fp []byte) (time.Time, bool) {
	if len(fp) < 19 {
		return time.Time{}, false
	}
	t, err := time.Parse(filenameLayout, string(fp[:19]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
