package archive

import (
	"encoding/json"
	"io"
	"path/filepath"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// writeJSON serialises data and writes it to uri through vfs, grounded on
// the teacher's json.go WriteJson, adapted to reuse an already-open VFS
// handle instead of constructing a fresh config/context/vfs per call.
func writeJSON(vfs *tiledb.VFS, uri string, data any) error {
	jsn, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}

	if isFile, _ := vfs.IsFile(uri); isFile {
		if err := vfs.RemoveFile(uri); err != nil {
			return err
		}
	}

	stream, err := vfs.Open(uri, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return err
	}
	defer stream.Close()

	_, err = stream.Write(jsn)
	return err
}

// readJSON reads uri through vfs and unmarshals it into out.
func readJSON(vfs *tiledb.VFS, uri string, out any) error {
	handler, err := vfs.Open(uri, tiledb.TILEDB_VFS_READ)
	if err != nil {
		return err
	}
	defer handler.Close()

	raw, err := io.ReadAll(handler)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// trawlJSON recursively lists every *.json file under dir, grounded on
// search.go's trawl (the same recursive vfs.List walk FindGsf uses for
// *.gsf files).
func trawlJSON(vfs *tiledb.VFS, dir string) ([]string, error) {
	isDir, err := vfs.IsDir(dir)
	if err != nil || !isDir {
		return nil, nil
	}

	dirs, files, err := vfs.List(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		if match, _ := filepath.Match("*.json", filepath.Base(f)); match {
			out = append(out, f)
		}
	}
	for _, d := range dirs {
		sub, err := trawlJSON(vfs, d)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}
