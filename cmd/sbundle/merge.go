package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/storage"
)

const mergeHelp = `sbundle merge [-flags] <out.bundle> <in1.bundle> [in2.bundle ...]

Combine several bundles into one. Files are merged key-for-key; when the
same asset appears in more than one input, the contents from the last
input listed wins. If the inputs' archive headers disagree, the merged
header is zeroed rather than arbitrarily picking one.

Example:
  % sbundle merge out/levels.bundle base/levels.bundle patch/levels.bundle
`

func merge(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("merge", flag.ExitOnError)
	fset.Usage = usage(fset, mergeHelp)
	fset.Parse(args)

	if fset.NArg() < 2 {
		fset.Usage()
		return xerrors.Errorf("merge: expected <out.bundle> <in.bundle...>, got %d args", fset.NArg())
	}
	outPath := fset.Arg(0)
	inPaths := fset.Args()[1:]

	mg := storage.NewMerge(bundle.Options{})
	for _, inPath := range inPaths {
		if err := mergeOne(mg, inPath); err != nil {
			return xerrors.Errorf("merge: %w", err)
		}
	}

	out, err := renameio.TempFile("", outPath)
	if err != nil {
		return xerrors.Errorf("merge: %w", err)
	}
	defer out.Cleanup()

	if err := mg.RepackTo(out); err != nil {
		return xerrors.Errorf("merge: repacking %s: %w", outPath, err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("merge: %w", err)
	}
	return nil
}

func mergeOne(mg *storage.Merge, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return mg.UnpackFrom(f, int(info.Size()))
}
