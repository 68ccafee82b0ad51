package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	csdl "github.com/agentflare-ai/go-csdl"
	"github.com/agentflare-ai/go-csdl/internal/config"
	"github.com/agentflare-ai/go-csdl/internal/watch"
)

var (
	convertConfig      string
	convertTarget      string
	convertOmitString  bool
	convertFormat      string
	convertOutput      string
	convertBaseDir     string
	convertAllowRemote bool
	convertIgnore      []string
	convertWorkers     int
	convertWatch       bool
	convertVerbose     bool
)

func init() {
	flags := convertCmd.Flags()
	flags.StringVar(&convertConfig, "config", "", "Configuration file (default ./edmx2csdl.yaml)")
	flags.StringVar(&convertTarget, "target", "plain", "Output target: plain or library")
	flags.BoolVar(&convertOmitString, "omit-string-type", true, "Omit \"$Type\": \"Edm.String\"")
	flags.StringVar(&convertFormat, "format", "json", "Output format: json or yaml")
	flags.StringVarP(&convertOutput, "output", "o", "", "Output file, or directory when converting several files (default stdout)")
	flags.StringVar(&convertBaseDir, "base-dir", "", "Directory holding referenced documents (default: directory of each input)")
	flags.BoolVar(&convertAllowRemote, "allow-remote", false, "Fetch http(s) references")
	flags.StringSliceVar(&convertIgnore, "ignore", nil, "Elements to skip, e.g. Annotation")
	flags.IntVar(&convertWorkers, "workers", 4, "Number of files converted concurrently")
	flags.BoolVarP(&convertWatch, "watch", "w", false, "Convert again when an input changes")
	flags.BoolVarP(&convertVerbose, "verbose", "v", false, "Log resolution details")
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.xml>...",
	Short: "Convert EDMX documents to CSDL JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(convertConfig)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		logger := zap.NewNop()
		if convertVerbose {
			if logger, err = zap.NewDevelopment(); err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c, err := newConverter(cfg, csdl.NewZapLogger(logger))
		if err != nil {
			return err
		}

		failed := c.run(ctx, args)
		if !convertWatch {
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
			}
			return nil
		}

		watcher, err := watch.NewFileWatcher(args, 200*time.Millisecond,
			func(changed []string) error {
				c.documents.Clear()
				c.run(ctx, changed)
				return nil
			},
			func(err error) {
				fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("watch:"), err)
			})
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, color.CyanString("Watching %d file(s), press Ctrl+C to stop", len(args)))
		<-ctx.Done()
		return watcher.Stop()
	},
}

// applyFlags lets explicitly set flags override the configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = convertTarget
	}
	if flags.Changed("omit-string-type") {
		cfg.OmitStringType = convertOmitString
	}
	if flags.Changed("format") {
		cfg.Format = convertFormat
	}
	if flags.Changed("output") {
		cfg.Output = convertOutput
	}
	if flags.Changed("base-dir") {
		cfg.Metadata.BaseDir = convertBaseDir
	}
	if flags.Changed("allow-remote") {
		cfg.Metadata.AllowRemote = convertAllowRemote
	}
	if flags.Changed("ignore") {
		cfg.Ignore = convertIgnore
	}
	if flags.Changed("workers") {
		cfg.Workers = convertWorkers
	}
}

// converter converts files with one shared document cache
type converter struct {
	cfg       *config.Config
	opts      csdl.Options
	documents *csdl.DocumentCache
}

func newConverter(cfg *config.Config, logger csdl.Logger) (*converter, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	return &converter{cfg: cfg, opts: opts, documents: csdl.NewDocumentCache()}, nil
}

// outcome is the result of converting one file
type outcome struct {
	file   string
	source []byte
	output []byte
	err    error
}

// run converts files concurrently and reports the outcomes in input order.
// It returns the number of files that failed.
func (c *converter) run(ctx context.Context, files []string) int {
	outcomes := make([]outcome, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Workers)
	for i, file := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				outcomes[i] = outcome{file: file, err: ctx.Err()}
			default:
				outcomes[i] = c.convert(ctx, file)
			}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, o := range outcomes {
		if !c.report(o, len(files) > 1) {
			failed++
		}
	}
	return failed
}

// convert converts a single file. Referenced documents are looked up next to it unless a
// base directory is configured.
func (c *converter) convert(ctx context.Context, file string) outcome {
	o := outcome{file: file}
	o.source, o.err = os.ReadFile(file)
	if o.err != nil {
		return o
	}

	baseDir := c.cfg.Metadata.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(file)
	}
	loader := c.cfg.Loader()
	loader.BaseDir = baseDir
	loader.SetCache(c.documents)

	opts := c.opts
	opts.MetadataFactory = loader.Factory()

	res, err := csdl.Convert(ctx, o.source, opts)
	o.err = err
	var missing *csdl.MissingReferencesError
	if err == nil || errors.As(err, &missing) {
		out, encodeErr := encode(res.Document, c.cfg.Format)
		if encodeErr != nil {
			o.err = errors.Join(o.err, encodeErr)
			return o
		}
		o.output = out
	}
	return o
}

// report writes the output of o and prints its diagnostics. It returns false on failure.
func (c *converter) report(o outcome, many bool) bool {
	if o.output != nil {
		if err := c.write(o, many); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("error:"), o.file, err)
			return false
		}
	}
	if o.err == nil {
		if c.cfg.Output != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.GreenString("converted"), o.file)
		}
		return true
	}

	formatter := &csdl.ErrorFormatter{Color: !color.NoColor, ContextLines: 2}
	diagnostics := csdl.NewDiagnosticConverter(o.file, string(o.source)).Convert(o.err)
	for _, diag := range diagnostics {
		fmt.Fprint(os.Stderr, formatter.Format(diag, string(o.source)))
	}
	return false
}

// write stores the output of o on stdout, in the output file or in the output directory
func (c *converter) write(o outcome, many bool) error {
	if c.cfg.Output == "" {
		_, err := os.Stdout.Write(o.output)
		return err
	}

	path := c.cfg.Output
	info, err := os.Stat(path)
	if many || (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(o.file), filepath.Ext(o.file))
		path = filepath.Join(path, name+"."+c.cfg.Format)
	}
	return os.WriteFile(path, o.output, 0o644)
}

// encode renders a document as indented JSON or YAML
func encode(doc any, format string) ([]byte, error) {
	if format == "yaml" {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(out, '\n'), nil
}
