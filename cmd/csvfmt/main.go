// Command csvfmt converts JSON rows into CSV.
//
//	csvfmt [flags] [file]
//
// Input is JSON Lines, concatenated objects, or one array of objects, read
// from file or stdin. Output goes to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bjaus/csvstream"
)

type options struct {
	configPath   string
	delimiter    string
	enclosure    string
	escape       string
	noHeader     bool
	checkAllRows bool
	nullValue    string
	missingValue string
	columns      []string
	maxMemory    int64
	tempDir      string
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "csvfmt [file]",
		Short:        "Convert JSON rows to CSV",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd, opts, path, stdin, stdout)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.delimiter, "delimiter", ",", "field delimiter")
	flags.StringVar(&opts.enclosure, "enclosure", `"`, "field enclosure")
	flags.StringVar(&opts.escape, "escape", "'", "escape character (empty disables)")
	flags.BoolVar(&opts.noHeader, "no-header", false, "omit the header line")
	flags.BoolVar(&opts.checkAllRows, "check-all-rows", false, "collect columns from every row (requires a file)")
	flags.StringVar(&opts.nullValue, "null", "(null)", "text for null values")
	flags.StringVar(&opts.missingValue, "missing", "(missing)", "text for missing columns")
	flags.StringSliceVar(&opts.columns, "columns", nil, "fixed column list")
	flags.Int64Var(&opts.maxMemory, "max-memory", csvstream.DefaultMaxMemory, "bytes kept in memory before spilling to a temporary file")
	flags.StringVar(&opts.tempDir, "temp-dir", "", "directory for spill files")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	return cmd
}

func run(cmd *cobra.Command, opts options, path string, stdin io.Reader, stdout io.Writer) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}

	var src csvstream.Source
	switch {
	case path != "":
		src = fileRows(path)
	case cfg.CheckAllRows && cfg.IncludeHeader && len(cfg.Columns) == 0:
		return errors.New("--check-all-rows reads the input twice and needs a file argument")
	default:
		src = decodeRows(stdin)
	}

	f, err := csvstream.New(cfg, csvstream.WithLogger(logger))
	if err != nil {
		return err
	}
	buf, err := f.FormatSource(cancelable(cmd.Context(), src))
	if err != nil {
		return err
	}
	defer buf.Close()
	if _, err := buf.WriteTo(stdout); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// buildConfig starts from the config file, or the defaults, and applies the
// flags that were set explicitly.
func buildConfig(cmd *cobra.Command, opts options) (csvstream.Config, error) {
	cfg := csvstream.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := csvstream.LoadConfigFile(opts.configPath)
		if err != nil {
			return csvstream.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	chars := []struct {
		flag string
		val  string
		dst  *csvstream.Char
	}{
		{"delimiter", opts.delimiter, &cfg.Delimiter},
		{"enclosure", opts.enclosure, &cfg.Enclosure},
		{"escape", opts.escape, &cfg.Escape},
	}
	for _, c := range chars {
		if !flags.Changed(c.flag) {
			continue
		}
		ch, err := csvstream.ParseChar(c.val)
		if err != nil {
			return csvstream.Config{}, fmt.Errorf("--%s: %w", c.flag, err)
		}
		*c.dst = ch
	}
	if flags.Changed("no-header") {
		cfg.IncludeHeader = !opts.noHeader
	}
	if flags.Changed("check-all-rows") {
		cfg.CheckAllRows = opts.checkAllRows
	}
	if flags.Changed("null") {
		cfg.NullValue = opts.nullValue
	}
	if flags.Changed("missing") {
		cfg.MissingValue = opts.missingValue
	}
	if flags.Changed("columns") {
		cfg.Columns = opts.columns
	}
	if flags.Changed("max-memory") {
		cfg.MaxMemory = opts.maxMemory
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = opts.tempDir
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
