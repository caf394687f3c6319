package main

import (
	"context"
	"flag"
	"runtime"

	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/storage"
)

const packHelp = `sbundle pack [-flags] <dir> <bundle>

Repack a directory of loose assets (as produced by "sbundle unpack") back
into a Stingray bundle archive. Live records are sorted by (low 32 bits
of ext_hash, name_hash); tombstoned records are diverted and sorted separately, and
appended after.

Example:
  % sbundle pack out/levels assets/levels.bundle
`

func pack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("pack", flag.ExitOnError)
	fset.Usage = usage(fset, packHelp)
	numThreads := fset.Int("numthreads", runtime.NumCPU(), "number of compression worker goroutines")
	fset.Parse(args)

	if fset.NArg() != 2 {
		fset.Usage()
		return xerrors.Errorf("pack: expected <dir> <bundle>, got %d args", fset.NArg())
	}
	dir, bundlePath := fset.Arg(0), fset.Arg(1)

	source := &storage.Directory{Dir: dir, BundlePath: bundlePath}
	if err := bundle.Pack(source, bundle.Options{NumThreads: *numThreads}); err != nil {
		source.Abort()
		return xerrors.Errorf("packing %s: %w", dir, err)
	}
	if err := source.Commit(); err != nil {
		return xerrors.Errorf("committing %s: %w", bundlePath, err)
	}
	return nil
}
