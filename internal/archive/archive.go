// Package archive persists downloaded dives so a caller does not have to
// re-download dives a previous run already pulled. It wraps
// github.com/TileDB-Inc/TileDB-Go's VFS the way the teacher's file.go
// (OpenGSF) and search.go (FindGsf) use tiledb.VFS/tiledb.Config/
// tiledb.Context for generic local-filesystem or object-store IO: one
// JSON file per dive plus a per-backend fingerprint index, rather than a
// TileDB array schema, since sync bookkeeping is the only requirement
// here (spec.md §10 excludes persistence-as-a-feature).
package archive

import (
	"path"
	"sort"
	"time"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/divelogio/divecore/internal/bytesx"
	"github.com/divelogio/divecore/internal/dcerr"
	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
)

const fingerprintIndexName = "fingerprints.json"

// DiveSummary is the normalized subset of a decoded dive worth keeping
// alongside its raw bytes, enough to browse an archive without
// redecoding every record.
type DiveSummary struct {
	MaxDepth  float64               `json:"max_depth"`
	DiveTime  float64               `json:"dive_time"`
	StartedAt time.Time             `json:"started_at"`
	GasMixes  []divetypes.GasMix    `json:"gas_mixes,omitempty"`
	Tanks     []fieldcache.TankInfo `json:"tanks,omitempty"`
}

// DiveArchiveRecord is one archived dive (spec.md §3 DiveArchive record):
// the backend it came from, its fingerprint, when it was pulled, where
// its raw bytes live, and its decoded summary.
type DiveArchiveRecord struct {
	BackendID    device.Kind `json:"backend_id"`
	Fingerprint  []byte      `json:"fingerprint"`
	DownloadedAt time.Time   `json:"downloaded_at"`
	RawBytesURI  string      `json:"raw_bytes_uri"`
	Summary      DiveSummary `json:"summary"`
}

// Archive is a VFS-addressable root (local filesystem or object store)
// holding DiveArchiveRecords.
type Archive struct {
	ctx    *tiledb.Context
	config *tiledb.Config
	vfs    *tiledb.VFS
	root   string
}

// Open creates an Archive rooted at uri. configURI names a TileDB config
// file for object-store credentials; an empty string uses the default
// config, matching the teacher's OpenGSF/FindGsf fallback.
func Open(uri, configURI string) (*Archive, error) {
	var (
		config *tiledb.Config
		err    error
	)
	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return nil, dcerr.Wrap("archive.Open", dcerr.Io, err)
	}

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		config.Free()
		return nil, dcerr.Wrap("archive.Open", dcerr.Io, err)
	}

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		ctx.Free()
		config.Free()
		return nil, dcerr.Wrap("archive.Open", dcerr.Io, err)
	}

	if isDir, err := vfs.IsDir(uri); err == nil && !isDir {
		_ = vfs.CreateDir(uri)
	}

	return &Archive{ctx: ctx, config: config, vfs: vfs, root: uri}, nil
}

// Close releases the underlying TileDB VFS/context/config handles.
func (a *Archive) Close() {
	if a.vfs != nil {
		a.vfs.Free()
	}
	if a.ctx != nil {
		a.ctx.Free()
	}
	if a.config != nil {
		a.config.Free()
	}
}

// Put writes record as a JSON file under the archive root and advances
// the stored fingerprint for record.BackendID, so a later Last call
// reports it as the incremental-sync anchor.
func (a *Archive) Put(record DiveArchiveRecord) error {
	name := path.Join(a.root, record.BackendID.String(), recordFileName(record))
	if err := writeJSON(a.vfs, name, record); err != nil {
		return dcerr.Wrap("archive.Put", dcerr.Io, err)
	}
	return a.setFingerprint(record.BackendID, record.Fingerprint)
}

// Last returns the most recently stored fingerprint for backendID, or
// ok=false if this archive has never stored a dive from it.
func (a *Archive) Last(backendID device.Kind) (fingerprint []byte, ok bool, err error) {
	idx, err := a.readFingerprintIndex()
	if err != nil {
		return nil, false, err
	}
	hexFp, present := idx[backendID.String()]
	if !present {
		return nil, false, nil
	}
	raw, decoded := bytesx.HexDecodeString(hexFp)
	if !decoded {
		return nil, false, dcerr.New("archive.Last", dcerr.DataFormat)
	}
	return raw, true, nil
}

// List returns every record stored for backendID, newest-first by
// DownloadedAt.
func (a *Archive) List(backendID device.Kind) ([]DiveArchiveRecord, error) {
	dir := path.Join(a.root, backendID.String())
	files, err := trawlJSON(a.vfs, dir)
	if err != nil {
		return nil, dcerr.Wrap("archive.List", dcerr.Io, err)
	}

	records := make([]DiveArchiveRecord, 0, len(files))
	for _, f := range files {
		var rec DiveArchiveRecord
		if err := readJSON(a.vfs, f, &rec); err != nil {
			return nil, dcerr.Wrap("archive.List", dcerr.Io, err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DownloadedAt.After(records[j].DownloadedAt)
	})
	return records, nil
}

// recordFileName derives a stable, sortable-by-time file name for record.
func recordFileName(record DiveArchiveRecord) string {
	ts := record.DownloadedAt.UTC().Format("20060102T150405.000000000Z")
	return ts + "_" + hexEncode(record.Fingerprint) + ".json"
}

func hexEncode(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		pair := bytesx.HexEncodeByte(c)
		out = append(out, pair[0], pair[1])
	}
	return string(out)
}

func (a *Archive) setFingerprint(backendID device.Kind, fp []byte) error {
	idx, err := a.readFingerprintIndex()
	if err != nil {
		return err
	}
	if idx == nil {
		idx = make(map[string]string)
	}
	idx[backendID.String()] = hexEncode(fp)
	return writeJSON(a.vfs, path.Join(a.root, fingerprintIndexName), idx)
}

func (a *Archive) readFingerprintIndex() (map[string]string, error) {
	name := path.Join(a.root, fingerprintIndexName)
	isFile, err := a.vfs.IsFile(name)
	if err != nil || !isFile {
		return map[string]string{}, nil
	}
	var idx map[string]string
	if err := readJSON(a.vfs, name, &idx); err != nil {
		return nil, dcerr.Wrap("archive.readFingerprintIndex", dcerr.Io, err)
	}
	return idx, nil
}
