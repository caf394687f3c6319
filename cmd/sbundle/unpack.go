package main

import (
	"context"
	"flag"
	"runtime"

	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/storage"
)

const unpackHelp = `sbundle unpack [-flags] <bundle> <outdir>

Unpack a Stingray bundle archive into a directory of loose assets, one
file per "<name_hash>.<ext>", plus a _HEADER file carrying the opaque
256-byte archive header verbatim.

Example:
  % sbundle unpack assets/levels.bundle out/levels
`

func unpack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("unpack", flag.ExitOnError)
	fset.Usage = usage(fset, unpackHelp)
	numThreads := fset.Int("numthreads", runtime.NumCPU(), "number of decompression worker goroutines")
	fset.Parse(args)

	if fset.NArg() != 2 {
		fset.Usage()
		return xerrors.Errorf("unpack: expected <bundle> <outdir>, got %d args", fset.NArg())
	}
	bundlePath, outDir := fset.Arg(0), fset.Arg(1)

	sink := &storage.Directory{Dir: outDir, BundlePath: bundlePath}
	if err := bundle.Unpack(sink, bundle.Options{NumThreads: *numThreads}); err != nil {
		return xerrors.Errorf("unpacking %s: %w", bundlePath, err)
	}
	return nil
}
