// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"parani/internal/cliutil"
	"parani/internal/dispatch"
	"parani/internal/fasta"
	"parani/internal/writers"
)

// EnvPrefix prefixes every environment variable read by ParseArgs.
const EnvPrefix = "PARANI"

// Options holds all CLI flags and arguments after merging flags, environment
// and the optional config file (in that precedence).
type Options struct {
	// Input
	Reference  string   `mapstructure:"reference" validate:"required"`
	Candidates []string `mapstructure:"candidates" validate:"min=1,dive,required"`

	// Performance
	Workers  int      `mapstructure:"workers" validate:"gte=0"`
	Policies []string `mapstructure:"policy" validate:"min=1,dive,policy"`

	// Output
	Output      string `mapstructure:"output" validate:"format"`
	NoHeader    bool   `mapstructure:"no-header"`
	MetricsFile string `mapstructure:"metrics-file"`
	Trace       bool   `mapstructure:"trace"`

	// Misc
	Debug      bool   `mapstructure:"debug"`
	Quiet      bool   `mapstructure:"quiet"`
	ConfigFile string `mapstructure:"config"`
	Version    bool   `mapstructure:"version"`
}

// Header reports whether tabular output should start with a header row.
func (o Options) Header() bool { return !o.NoHeader }

// DispatchPolicies converts the validated policy names.
func (o Options) DispatchPolicies() []dispatch.Policy {
	out := make([]dispatch.Policy, 0, len(o.Policies))
	for _, s := range o.Policies {
		if p, err := dispatch.ParsePolicy(s); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func defaultPolicies() []string {
	var out []string
	for _, p := range dispatch.AllPolicies() {
		out = append(out, string(p))
	}
	return out
}

// Register wires all flags onto fs.
func Register(fs *pflag.FlagSet) {
	// Input
	fs.StringP("reference", "r", "", "reference FASTA file (exactly one record) [*]")
	fs.StringSliceP("candidates", "c", nil, "candidate FASTA file(s); repeatable, also taken from positionals [*]")

	// Performance
	fs.IntP("workers", "w", 0, "worker pool size for parallel policies (0 = all CPUs)")
	fs.StringSliceP("policy", "p", defaultPolicies(), "dispatch policies to run, in order")

	// Output
	fs.StringP("output", "o", writers.FormatText, "output format: "+strings.Join(writers.Formats(), " | "))
	fs.Bool("no-header", false, "suppress header line in tsv output")
	fs.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	fs.Bool("trace", false, "print OpenTelemetry spans to stderr")

	// Misc
	fs.String("config", "", "config file (yaml, json or toml) with the same keys as the flags")
	fs.Bool("debug", false, "debug logging, one line per scored candidate")
	fs.BoolP("quiet", "q", false, "log warnings and errors only")
	fs.BoolP("version", "v", false, "print version and exit")
}

// ParseArgs registers and parses all flags, merges environment and config
// file values through viper, and validates the result.
func ParseArgs(fs *pflag.FlagSet, argv []string) (Options, error) {
	var opt Options
	Register(fs)
	if err := fs.Parse(argv); err != nil {
		return opt, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return opt, err
	}
	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return opt, fmt.Errorf("read config %s: %w", cfg, err)
		}
	}
	if err := v.Unmarshal(&opt); err != nil {
		return opt, fmt.Errorf("decode options: %w", err)
	}
	if opt.Version {
		return opt, nil
	}

	pos, err := cliutil.ExpandPositionals(fs.Args())
	if err != nil {
		return opt, err
	}
	cands, err := cliutil.ExpandPositionals(trimAll(opt.Candidates))
	if err != nil {
		return opt, err
	}
	opt.Candidates = append(cands, pos...)
	opt.Policies = trimAll(opt.Policies)
	opt.Output = strings.ToLower(strings.TrimSpace(opt.Output))

	if err := validate(opt); err != nil {
		return opt, err
	}
	if n := stdinUses(opt); n > 1 {
		return opt, fmt.Errorf("stdin (%s) can be used for only one input, got %d", fasta.Stdin, n)
	}
	return opt, nil
}

func stdinUses(o Options) int {
	n := 0
	for _, p := range append([]string{o.Reference}, o.Candidates...) {
		if p == fasta.Stdin {
			n++
		}
	}
	return n
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var validate = newValidator()

func newValidator() func(Options) error {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	_ = vd.RegisterValidation("policy", func(fl validator.FieldLevel) bool {
		_, err := dispatch.ParsePolicy(fl.Field().String())
		return err == nil
	})
	_ = vd.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		f := fl.Field().String()
		for _, known := range writers.Formats() {
			if f == known {
				return true
			}
		}
		return false
	})

	return func(o Options) error {
		err := vd.Struct(o)
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func describe(fe validator.FieldError) string {
	// Namespace looks like "Options.candidates[0]"; keep the flag part.
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	switch fe.Tag() {
	case "required":
		if name == "candidates" {
			return "candidate paths must not be empty"
		}
		return fmt.Sprintf("--%s is required", name)
	case "min":
		if name == "candidates" {
			return "at least one candidate FASTA is required (--candidates or positional)"
		}
		return fmt.Sprintf("--%s needs at least %s value(s)", name, fe.Param())
	case "gte":
		return fmt.Sprintf("--%s must be ≥ %s", name, fe.Param())
	case "policy":
		return fmt.Sprintf("invalid --policy %q", fe.Value())
	case "format":
		return fmt.Sprintf("invalid --output %q", fe.Value())
	}
	return fmt.Sprintf("--%s: failed %q validation", name, fe.Tag())
}
