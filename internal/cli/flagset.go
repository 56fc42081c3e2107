package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"parani/internal/version"
)

// NewFlagSet returns a ContinueOnError FlagSet whose usage prints a short
// banner followed by the flag table.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: parallel ANI-like scoring of candidate FASTA files against a reference

Version: %s

Usage: %s --reference REF.fa [flags] CANDIDATE.fa...

Every flag can also be set through the environment as %s_<FLAG>
(upper case, dashes as underscores), e.g. %s_WORKERS=8.

Flags:
`, name, version.Version, name, EnvPrefix, EnvPrefix)
		fs.PrintDefaults()
	}
	return fs
}
