package main

import (
	"fmt"
	"runtime"
	"slices"
	"text/tabwriter"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/utils"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type engineVersion struct {
	path    string
	family  string
	product string
	raw     string
	parsed  utils.Version
}

var versionCmd = &cobra.Command{
	Use:   "version [EXECUTABLE...]",
	Short: "Print the wadinfo version, or compare engine executables",
	Long: `Without arguments, version prints the wadinfo build. Given engine executables,
it prints each one's family and version, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintf(out, "wadinfo %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		}

		c := newCache()
		var engines []engineVersion
		for _, path := range args {
			rec, err := c.Get(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				continue
			}
			if rec.Kind() != metadata.KindExecutable {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: not an executable (%s)\n", path, rec.Kind())
				continue
			}
			ev := engineVersion{path: path, family: rec.Family(), product: rec.Product()}
			if v, ok := rec.Version(); ok {
				ev.raw = v
				ev.parsed, _ = utils.ParseVersion(v)
			}
			engines = append(engines, ev)
		}

		slices.SortStableFunc(engines, func(a, b engineVersion) int {
			return b.parsed.Compare(a.parsed)
		})

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tFAMILY\tPRODUCT\tPATH")
		for _, e := range engines {
			raw := e.raw
			if raw == "" {
				raw = "unknown"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", raw, e.family, e.product, e.path)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
