// Package cli implements the dtypes command line: inferring descriptors from
// JSON or YAML documents, checking values against descriptors, merging
// descriptors and tracking their evolution in a history database.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/funvibe/dtypes/internal/config"
	"github.com/funvibe/dtypes/internal/native"
	"github.com/funvibe/dtypes/internal/typesystem"
)

// Exit codes returned by Run.
const (
	ExitOK           = 0
	ExitIncompatible = 1
	ExitUsage        = 2
)

// globalFlags are accepted anywhere on the command line.
type globalFlags struct {
	configPath string
	db         string
	noColor    bool
	debug      bool
}

type app struct {
	args   []string // command and operands, global flags removed
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger log.Logger
	color  bool
	code   int
}

// Run executes one command and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags, rest, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		fmt.Fprint(stderr, usage())
		return ExitUsage
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return ExitIncompatible
	}

	a := &app{
		args:   rest,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: newLogger(stderr, cfg.LogLevel),
		color:  colorEnabled(cfg.Color, stdout),
	}
	level.Debug(a.logger).Log("msg", "starting", "args", strings.Join(rest, " "), "db", cfg.DB)

	handlers := []func() bool{
		a.handleHelp,
		a.handleInfer,
		a.handleCheck,
		a.handleMerge,
		a.handleEvolve,
		a.handleHistory,
	}
	for _, h := range handlers {
		if h() {
			return a.code
		}
	}

	if len(rest) == 0 {
		fmt.Fprint(stderr, usage())
	} else {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, "Use 'dtypes help' to see available commands")
	}
	return ExitUsage
}

func parseFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			rest = append(rest, arg)
			continue
		}
		switch name {
		case "h", "help":
			rest = append(rest, "help")
		case "debug":
			flags.debug = true
		case "no-color":
			flags.noColor = true
		case "config", "db":
			if !hasValue {
				if i+1 >= len(args) {
					return flags, nil, fmt.Errorf("flag --%s needs a value", name)
				}
				i++
				value = args[i]
			}
			if name == "config" {
				flags.configPath = value
			} else {
				flags.db = value
			}
		case "o", "out":
			// command option, handled by infer
			rest = append(rest, arg)
			if !hasValue && i+1 < len(args) {
				i++
				rest = append(rest, args[i])
			}
		default:
			return flags, nil, fmt.Errorf("unknown flag %s", arg)
		}
	}
	return flags, rest, nil
}

// loadConfig reads --config, or the nearest dtypes.yaml, and applies the
// flag overrides. A relative db path is resolved against the config file.
func loadConfig(flags globalFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(cfg.DB) {
			cfg.DB = filepath.Join(filepath.Dir(path), cfg.DB)
		}
	}

	if flags.db != "" {
		cfg.DB = flags.db
	}
	if flags.noColor {
		cfg.Color = config.ColorNever
	}
	if flags.debug {
		cfg.LogLevel = config.LogDebug
	}
	return cfg, nil
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	if !config.IsTestMode {
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	}
	return level.NewFilter(logger, levelOption(lvl))
}

func levelOption(lvl string) level.Option {
	switch lvl {
	case config.LogDebug:
		return level.AllowDebug()
	case config.LogWarn:
		return level.AllowWarn()
	case config.LogError:
		return level.AllowError()
	}
	return level.AllowInfo()
}

func (a *app) command(names ...string) bool {
	if len(a.args) == 0 {
		return false
	}
	for _, n := range names {
		if a.args[0] == n {
			return true
		}
	}
	return false
}

func (a *app) fail(format string, args ...any) {
	fmt.Fprintf(a.stderr, "Error: "+format+"\n", args...)
	a.code = ExitIncompatible
}

func (a *app) usageError(format string, args ...any) {
	fmt.Fprintf(a.stderr, format+"\n", args...)
	a.code = ExitUsage
}

func (a *app) handleHelp() bool {
	if !a.command("help") {
		return false
	}
	fmt.Fprint(a.stdout, usage())
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Registered descriptor types:")
	for _, name := range typesystem.RegisteredNames() {
		v, _ := typesystem.Lookup(name)
		kind := v.Kind.String()
		if kind == name {
			kind = "builtin"
		}
		fmt.Fprintf(a.stdout, "  %-12s %s\n", name, kind)
	}
	return true
}

func usage() string {
	return `Usage: dtypes [flags] <command> [args]

Commands:
  infer [-o out] <file>...     describe JSON or YAML documents ("-" reads stdin)
  check <schema> <file>        assign a document to a descriptor
  merge <schema> <schema>...   assign descriptors to the first one
  evolve <artifact> <file>     record a document's descriptor in the history
  history [artifact]           list artifacts, or the versions of one
  help                         show this help

Flags:
  --config <path>   dtypes.yaml to load (default: nearest in parent directories)
  --db <path>       history database
  --no-color        disable colored output
  --debug           log at debug level
`
}

// readValue decodes a document; "-" reads JSON from stdin.
func (a *app) readValue(path string) (any, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return native.Decode(data, native.FormatJSON)
	}
	return native.DecodeFile(path)
}

// readSchema decodes a descriptor file, YAML or JSON by extension.
func (a *app) readSchema(path string) (typesystem.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t typesystem.Type
	if native.FormatForPath(path) == native.FormatYAML {
		t, err = typesystem.UnmarshalYAML(data, nil)
	} else {
		t, err = typesystem.Unmarshal(data, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (a *app) printType(t typesystem.Type) error {
	data, err := typesystem.MarshalIndent(t, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, a.highlight(string(data)))
	return err
}

func (a *app) printIncompatible() {
	fmt.Fprintln(a.stdout, a.paint(colorRed, "incompatible"))
	a.code = ExitIncompatible
}

func (a *app) handleInfer() bool {
	if !a.command("infer") {
		return false
	}
	out, files, err := outputOption(a.args[1:])
	if err != nil {
		a.usageError("%s", err)
		return true
	}
	if len(files) == 0 {
		a.usageError("Usage: dtypes infer [-o out] <file>...")
		return true
	}

	var t typesystem.Type
	for _, path := range files {
		v, err := a.readValue(path)
		if err != nil {
			a.fail("%s", err)
			return true
		}
		if t == nil {
			t = typesystem.TypeOf(v)
			continue
		}
		t = t.Assign(v)
		if typesystem.IsNever(t) {
			level.Debug(a.logger).Log("msg", "document does not fit the inferred descriptor", "file", path)
			a.printIncompatible()
			return true
		}
	}

	if out != "" {
		if err := writeSchema(out, t); err != nil {
			a.fail("%s", err)
			return true
		}
		level.Info(a.logger).Log("msg", "wrote descriptor", "path", out)
	}
	if err := a.printType(t); err != nil {
		a.fail("%s", err)
	}
	return true
}

// outputOption extracts -o/--out from infer's operands.
func outputOption(args []string) (string, []string, error) {
	var out string
	var rest []string
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		switch name {
		case "-o", "--o", "-out", "--out":
			if !hasValue {
				if i+1 >= len(args) {
					return "", nil, fmt.Errorf("flag %s needs a value", name)
				}
				i++
				value = args[i]
			}
			out = value
		default:
			rest = append(rest, args[i])
		}
	}
	return out, rest, nil
}

// writeSchema stores t as indented JSON. A path without an extension gets
// the descriptor file extension.
func writeSchema(path string, t typesystem.Type) error {
	if filepath.Ext(path) == "" {
		path += config.SchemaFileExt
	}
	data, err := typesystem.MarshalIndent(t, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (a *app) handleCheck() bool {
	if !a.command("check") {
		return false
	}
	if len(a.args) != 3 {
		a.usageError("Usage: dtypes check <schema> <file>")
		return true
	}
	schema, err := a.readSchema(a.args[1])
	if err != nil {
		a.fail("%s", err)
		return true
	}
	v, err := a.readValue(a.args[2])
	if err != nil {
		a.fail("%s", err)
		return true
	}

	result := schema.Assign(v)
	if typesystem.IsNever(result) {
		level.Debug(a.logger).Log("msg", "value rejected", "schema", a.args[1], "file", a.args[2], "descriptor", schema)
		a.printIncompatible()
		return true
	}
	if err := a.printType(result); err != nil {
		a.fail("%s", err)
	}
	return true
}

func (a *app) handleMerge() bool {
	if !a.command("merge") {
		return false
	}
	if len(a.args) < 3 {
		a.usageError("Usage: dtypes merge <schema> <schema>...")
		return true
	}

	var result typesystem.Type
	for _, path := range a.args[1:] {
		t, err := a.readSchema(path)
		if err != nil {
			a.fail("%s", err)
			return true
		}
		if result == nil {
			result = t
			continue
		}
		result = result.AssignType(t)
		if typesystem.IsNever(result) {
			level.Debug(a.logger).Log("msg", "descriptor rejected", "schema", path)
			a.printIncompatible()
			return true
		}
	}
	if err := a.printType(result); err != nil {
		a.fail("%s", err)
	}
	return true
}

func (a *app) handleEvolve() bool {
	if !a.command("evolve") {
		return false
	}
	if len(a.args) != 3 {
		a.usageError("Usage: dtypes evolve <artifact> <file>")
		return true
	}
	artifact := a.args[1]
	v, err := a.readValue(a.args[2])
	if err != nil {
		a.fail("%s", err)
		return true
	}

	ctx := context.Background()
	store, err := a.openStore(ctx)
	if err != nil {
		a.fail("%s", err)
		return true
	}
	defer store.Close()

	version, err := store.Record(ctx, artifact, typesystem.TypeOf(v))
	if err != nil {
		if isIncompatible(err) {
			fmt.Fprintln(a.stderr, err)
			a.printIncompatible()
			return true
		}
		a.fail("%s", err)
		return true
	}
	fmt.Fprintf(a.stdout, "%s version %d (%s)\n", artifact, version.Seq, version.ID)
	if err := a.printType(version.Type); err != nil {
		a.fail("%s", err)
	}
	return true
}

func (a *app) handleHistory() bool {
	if !a.command("history") {
		return false
	}
	if len(a.args) > 2 {
		a.usageError("Usage: dtypes history [artifact]")
		return true
	}

	ctx := context.Background()
	store, err := a.openStore(ctx)
	if err != nil {
		a.fail("%s", err)
		return true
	}
	defer store.Close()

	if len(a.args) == 1 {
		names, err := store.Artifacts(ctx)
		if err != nil {
			a.fail("%s", err)
			return true
		}
		for _, name := range names {
			fmt.Fprintln(a.stdout, name)
		}
		return true
	}

	versions, err := store.History(ctx, a.args[1])
	if err != nil {
		a.fail("%s: %s", a.args[1], err)
		return true
	}
	for _, v := range versions {
		fmt.Fprintf(a.stdout, "%3d  %s  %s  %s\n",
			v.Seq, v.ID, v.CreatedAt.Format("2006-01-02T15:04:05Z"), a.paint(colorCyan, v.Type.String()))
	}
	return true
}
