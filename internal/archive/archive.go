// Package archive locates the files of a shapefile inside a ZIP archive or
// next to a .shp file on disk.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MaxEntrySize bounds the uncompressed size of a single ZIP entry.
const MaxEntrySize = 1 << 31

// ErrNoShapefile is returned when an archive holds no .shp entry, or none
// with the requested layer name.
var ErrNoShapefile = errors.New("no shapefile found")

// Bundle holds the raw files of one shapefile. PRJ and CPG are nil when the
// sidecar is absent.
type Bundle struct {
	Name string // layer name: the .shp base name without extension
	SHP  []byte
	DBF  []byte
	PRJ  []byte
	CPG  []byte
}

// sidecars are the extensions collected into a Bundle.
var sidecars = []string{".shp", ".dbf", ".prj", ".cpg"}

func (b *Bundle) set(ext string, data []byte) {
	switch ext {
	case ".shp":
		b.SHP = data
	case ".dbf":
		b.DBF = data
	case ".prj":
		b.PRJ = data
	case ".cpg":
		b.CPG = data
	}
}

func (b *Bundle) check(where string) error {
	if b.SHP == nil {
		return fmt.Errorf("%s: %w", where, ErrNoShapefile)
	}
	if b.DBF == nil {
		return fmt.Errorf("%s: layer %q has no .dbf", where, b.Name)
	}
	return nil
}

// zipLayer groups the entries of one shapefile inside an archive.
type zipLayer struct {
	name    string
	stem    string
	entries map[string]*zip.File
}

// scanZip groups archive entries by path stem, in archive order of their .shp.
func scanZip(r *zip.Reader) []*zipLayer {
	byStem := make(map[string]*zipLayer)
	var order []*zipLayer

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(path.Base(f.Name), "._") {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		if !isSidecar(ext) {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(f.Name, path.Ext(f.Name)))
		layer, ok := byStem[stem]
		if !ok {
			layer = &zipLayer{
				name:    path.Base(strings.TrimSuffix(f.Name, path.Ext(f.Name))),
				stem:    stem,
				entries: make(map[string]*zip.File),
			}
			byStem[stem] = layer
		}
		if _, dup := layer.entries[ext]; !dup {
			layer.entries[ext] = f
		}
		if ext == ".shp" {
			order = append(order, layer)
		}
	}
	return order
}

// Layers lists the shapefile layer names in a ZIP archive, in archive order.
func Layers(data []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	var names []string
	for _, l := range scanZip(r) {
		names = append(names, l.name)
	}
	return names, nil
}

// OpenZip reads one shapefile from a ZIP archive held in memory. layer picks
// a shapefile by base name (case-insensitive) or by path inside the archive;
// empty means the first .shp in archive order.
func OpenZip(data []byte, layer string) (*Bundle, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	layers := scanZip(r)
	var chosen *zipLayer
	for _, l := range layers {
		if layer == "" || strings.EqualFold(l.name, layer) || l.stem == strings.ToLower(strings.TrimSuffix(layer, path.Ext(layer))) {
			chosen = l
			break
		}
	}
	if chosen == nil {
		if layer == "" {
			return nil, fmt.Errorf("zip: %w", ErrNoShapefile)
		}
		return nil, fmt.Errorf("zip layer %q: %w", layer, ErrNoShapefile)
	}

	bundle := &Bundle{Name: chosen.name}
	for ext, f := range chosen.entries {
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		bundle.set(ext, data)
	}
	if err := bundle.check("zip"); err != nil {
		return nil, err
	}
	return bundle, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("zip entry %s: %d bytes exceeds limit", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	return data, nil
}

// FromDir reads a shapefile from disk given the path of its .shp file. The
// sidecars are discovered in the same directory by base name, ignoring the
// case of both name and extension.
func FromDir(shpPath string) (*Bundle, error) {
	dir := filepath.Dir(shpPath)
	base := filepath.Base(shpPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	bundle := &Bundle{Name: stem}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isSidecar(ext) || !strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), stem) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		bundle.set(ext, data)
	}

	if err := bundle.check(shpPath); err != nil {
		return nil, err
	}
	return bundle, nil
}

// IsZip reports whether data starts with a ZIP local file header.
func IsZip(data []byte) bool {
	return len(data) >= 4 && data[0] == 'P' && data[1] == 'K' && data[2] == 3 && data[3] == 4
}

func isSidecar(ext string) bool {
	for _, s := range sidecars {
		if ext == s {
			return true
		}
	}
	return false
}
