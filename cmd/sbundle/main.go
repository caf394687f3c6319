// Command sbundle unpacks, repacks, scans and merges Stingray bundle
// archives (the Vermintide 1/2 asset container format).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func funcmain() error {
	flag.Parse()

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"unpack": {unpack},
		"pack":   {pack},
		"scan":   {scan},
		"merge":  {merge},
	}

	args := flag.Args()
	verb := "scan"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "sbundle [-flags] <command> [-flags] <args>\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "To get help on any command, use sbundle <command> -help or sbundle help <command>.\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "Commands:\n")
			fmt.Fprintf(os.Stderr, "\tunpack - extract a bundle to a directory of loose assets\n")
			fmt.Fprintf(os.Stderr, "\tpack   - repack a directory of loose assets into a bundle\n")
			fmt.Fprintf(os.Stderr, "\tscan   - list a bundle's index without decompressing payloads\n")
			fmt.Fprintf(os.Stderr, "\tmerge  - combine several bundles into one, last writer wins\n")
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}

	ctx, canc := InterruptibleContext()
	defer canc()

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: sbundle <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		return fmt.Errorf("%s: %v", verb, err)
	}
	return RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
