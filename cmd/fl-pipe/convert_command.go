package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/weak-head/fl-pipe/internal/config"
	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/engine"
	"github.com/weak-head/fl-pipe/internal/logger"
	"github.com/weak-head/fl-pipe/internal/metrics"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var mimeType string
	var outputDir string
	var engineName string
	var lockFile string
	var keepSource bool

	cmd := &cobra.Command{
		Use:   "convert <file.dm>...",
		Short: "Convert DRM message files into forward-lock files",
		Long: "Convert each file into a forward-lock file next to it, or into --output.\n" +
			"The source file is removed once it has been converted, unless --keep-source is set.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			convConf := cfg.ConverterConfig()
			if cmd.Flags().Changed("engine") {
				convConf.Engine = engineName
			}
			if cmd.Flags().Changed("keep-source") {
				convConf.KeepSource = keepSource
			}
			lockPath := cfg.Converter.LockFile
			if cmd.Flags().Changed("lock-file") {
				lockPath = lockFile
			}

			registry := engine.DefaultRegistry()
			converter, err := newConverter(registry, cfg, convConf, lockPath, log)
			if err != nil {
				return err
			}
			if err := checkMimeType(registry, convConf.Engine, mimeType); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			headers := []string{"Source", "Output", "Chunks", "Size", "Took"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}

			rows := make([][]string, 0, len(args))
			for _, src := range args {
				dst := outputPath(src, outputDir)

				started := time.Now()
				res, err := converter.ConvertFile(cmd.Context(), src, dst, mimeType)
				if err != nil {
					rows = append(rows, []string{src, "failed: " + convert.KindOf(err), "-", "-", "-"})
					fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
					return fmt.Errorf("convert %s: %w", src, err)
				}

				rows = append(rows, []string{
					src,
					dst,
					strconv.Itoa(res.ChunkCount),
					humanize.IBytes(uint64(res.Size)),
					time.Since(started).Round(time.Millisecond).String(),
				})
			}

			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", convert.MimeTypeDM, "MIME type of the source files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the converted files (default: next to the source)")
	cmd.Flags().StringVar(&engineName, "engine", "", "Conversion engine, overrides converter.engine")
	cmd.Flags().StringVar(&lockFile, "lock-file", "", "Lock file shared with other processes, overrides converter.lock_file")
	cmd.Flags().BoolVar(&keepSource, "keep-source", false, "Keep the source files after a successful conversion")

	return cmd
}

// newConverter creates a converter over the configured engine,
// allowing a single open session at a time.
func newConverter(
	registry *engine.Registry,
	cfg *config.Config,
	conf convert.Config,
	lockPath string,
	log logger.Log,
) (*convert.Converter, error) {
	if !registry.IsLoaded(conf.Engine) {
		return nil, fmt.Errorf("%w: %s (available: %s)",
			engine.ErrUnknownEngine, conf.Engine, strings.Join(registry.Available(), ", "))
	}

	eng, err := registry.New(conf.Engine, engine.Options{Key: []byte(cfg.Converter.Key)})
	if err != nil {
		return nil, err
	}

	exclusive, err := engine.NewExclusive(eng, lockPath, log)
	if err != nil {
		return nil, err
	}

	reporter, err := metrics.NewReporter(metrics.ServiceInfo{Engine: conf.Engine})
	if err != nil {
		return nil, err
	}

	return convert.NewConverter(conf, exclusive, reporter, log)
}

// checkMimeType fails when the engine does not convert mimeType.
func checkMimeType(registry *engine.Registry, name, mimeType string) error {
	if !slices.Contains(registry.CanHandle(mimeType), name) {
		return fmt.Errorf("%w: engine %s does not convert %q", engine.ErrUnsupportedMimeType, name, mimeType)
	}
	return nil
}

func outputPath(src, outputDir string) string {
	dst := convert.OutputName(src)
	if outputDir == "" {
		return dst
	}
	return filepath.Join(outputDir, filepath.Base(dst))
}
