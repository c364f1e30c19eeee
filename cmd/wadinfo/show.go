package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/utils"
	"github.com/jchantrell/wadinfo/internal/wad"
	"github.com/spf13/cobra"
)

var showEntries bool

var showCmd = &cobra.Command{
	Use:   "show FILE...",
	Short: "Print the metadata of each file",
	Long: `Show reads every file given and prints its kind, game, version, maps and
warnings. A file that cannot be read is reported and the others are still shown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newCache()
		out := cmd.OutOrStdout()

		failed := 0
		for i, path := range args {
			if i > 0 {
				fmt.Fprintln(out)
			}
			rec, err := c.Get(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s\n  error: %v (%s)\n", path, err, metadata.KindOf(err))
				continue
			}
			printRecord(out, path, rec, showEntries)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be read", failed, len(args))
		}
		return nil
	},
}

func printRecord(out io.Writer, path string, rec *metadata.Record, entries bool) {
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  kind: %s\n", rec.Kind())
	if t := rec.ArchiveType(); t != metadata.ArchiveNone {
		fmt.Fprintf(out, "  type: %s\n", t)
	}
	if id, ok := rec.GameID(); ok {
		if g, ok := wad.GameByID(id); ok {
			fmt.Fprintf(out, "  game: %s (%s)\n", g.Name, id)
		} else {
			fmt.Fprintf(out, "  game: %s\n", id)
		}
	}

	if rec.Kind() == metadata.KindExecutable {
		if p := rec.Product(); p != "" {
			fmt.Fprintf(out, "  product: %s\n", p)
		}
		if d := rec.Description(); d != "" {
			fmt.Fprintf(out, "  description: %s\n", d)
		}
		v, ok := rec.Version()
		if !ok {
			v = "unknown"
		}
		fmt.Fprintf(out, "  version: %s\n", v)
		fmt.Fprintf(out, "  family: %s\n", rec.Family())
	} else {
		fmt.Fprintf(out, "  entries: %s\n", utils.Number(int64(rec.EntryCount())))
		maps := rec.MapNames()
		fmt.Fprintf(out, "  maps: %d\n", len(maps))
		for _, m := range maps {
			if title := rec.MapTitle(m); title != m {
				fmt.Fprintf(out, "    %-8s %s\n", m, title)
			} else {
				fmt.Fprintf(out, "    %s\n", m)
			}
		}
	}

	hints := rec.Hints()
	if len(hints) > 0 {
		keys := make([]string, 0, len(hints))
		for k := range hints {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		fmt.Fprintln(out, "  hints:")
		for _, k := range keys {
			fmt.Fprintf(out, "    %s = %s\n", k, hints[k])
		}
	}

	for _, w := range rec.Warnings() {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}

	if entries {
		fmt.Fprintln(out, "  directory:")
		for i, e := range rec.Entries() {
			name := e.Name
			if e.Container != "" {
				name = e.Container + ":" + name
			}
			fmt.Fprintf(out, "    %5d  %-8s %10s  @%d\n", i, name, utils.Size(e.Size), e.Offset)
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVarP(&showEntries, "entries", "e", false, "list the archive directory")
}
