package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/hash"
)

// headerFileName is the literal name the archive header is stored under.
const headerFileName = "_HEADER"

// Directory is a bundle backend that stores one file per asset as
// "<name_hash:016x>.<ext>" inside Dir, with the archive header in a file
// literally named _HEADER. It implements both bundle.UnpackSink (writing
// into Dir) and bundle.PackSource (reading from Dir), reading from or
// writing to the bundle at BundlePath.
//
// Writes go through renameio so a crash mid-write never leaves a
// half-written asset or bundle file behind.
type Directory struct {
	Dir        string
	BundlePath string

	pending *renameio.PendingFile
}

func (d *Directory) BundleReader() (io.Reader, int, error) {
	f, err := os.Open(d.BundlePath)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, int(info.Size()), nil
}

func (d *Directory) WriteHeader(data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(d.Dir, headerFileName), data, 0o644)
}

func (d *Directory) WriteFile(key bundle.FileKey, record []byte) error {
	ext, ok := hash.ExtensionByHash(key.ExtHash)
	if !ok {
		return xerrors.Errorf("%w: %016x", bundle.ErrUnknownExtension, key.ExtHash)
	}
	name := fmt.Sprintf("%016x.%s", key.NameHash, ext)
	return renameio.WriteFile(filepath.Join(d.Dir, name), record, 0o644)
}

// BundleWriter opens BundlePath for atomic replacement. The caller must
// call Commit after a successful bundle.Pack, or Abort otherwise;
// BundlePath is left untouched until Commit runs.
func (d *Directory) BundleWriter() (io.Writer, error) {
	pending, err := renameio.TempFile("", d.BundlePath)
	if err != nil {
		return nil, err
	}
	d.pending = pending
	return pending, nil
}

// Commit finalizes a bundle opened via BundleWriter, atomically replacing
// BundlePath. A no-op if BundleWriter was never called.
func (d *Directory) Commit() error {
	if d.pending == nil {
		return nil
	}
	err := d.pending.CloseAtomicallyReplace()
	d.pending = nil
	return err
}

// Abort discards a bundle writer opened via BundleWriter without touching
// BundlePath. A no-op if BundleWriter was never called.
func (d *Directory) Abort() {
	if d.pending == nil {
		return
	}
	d.pending.Cleanup()
	d.pending = nil
}

func (d *Directory) Files() ([]bundle.FileKey, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var keys []bundle.FileKey
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == headerFileName {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if len(stem) != 16 || ext == "" {
			continue
		}
		nameHash, err := strconv.ParseUint(stem, 16, 64)
		if err != nil {
			continue
		}
		extHash, ok := hash.HashByExtension(ext)
		if !ok {
			continue
		}
		keys = append(keys, bundle.FileKey{NameHash: nameHash, ExtHash: extHash})
	}
	return keys, nil
}

func (d *Directory) ReadFile(key bundle.FileKey) ([]byte, error) {
	ext, ok := hash.ExtensionByHash(key.ExtHash)
	if !ok {
		return nil, xerrors.Errorf("%w: %016x", bundle.ErrUnknownExtension, key.ExtHash)
	}
	name := fmt.Sprintf("%016x.%s", key.NameHash, ext)
	return os.ReadFile(filepath.Join(d.Dir, name))
}

func (d *Directory) ReadHeader() ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Dir, headerFileName))
}
