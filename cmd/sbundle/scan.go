package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/hash"
)

const scanHelp = `sbundle scan [-flags] <bundle>

List a bundle's index table without decompressing any file payloads.
For each entry, prints the name hash, resolved extension (or the raw
ext_hash if it isn't a known extension), the flags word, and the index's
file_size, which is unreliable and not recomputed for this fast path.

Example:
  % sbundle scan assets/levels.bundle
`

func scan(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("scan", flag.ExitOnError)
	fset.Usage = usage(fset, scanHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		return xerrors.Errorf("scan: expected <bundle>, got %d args", fset.NArg())
	}
	bundlePath := fset.Arg(0)

	f, err := os.Open(bundlePath)
	if err != nil {
		return xerrors.Errorf("scan: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return xerrors.Errorf("scan: %w", err)
	}

	format, _, entries, err := bundle.ExtractIndex(f, int(info.Size()))
	if err != nil {
		return xerrors.Errorf("scanning %s: %w", bundlePath, err)
	}

	fmt.Printf("%s: format %s, %d files\n", bundlePath, format, len(entries))
	for _, e := range entries {
		ext, ok := hash.ExtensionByHash(e.Key.ExtHash)
		if !ok {
			ext = fmt.Sprintf("ext:%016x", e.Key.ExtHash)
		}
		fmt.Printf("%016x.%-8s flags=%#04x size=%d\n", e.Key.NameHash, ext, uint32(e.Flags), e.FileSize)
	}
	return nil
}
