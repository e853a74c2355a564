package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/JuanMarchetto/truss/pkg/config"
	"github.com/JuanMarchetto/truss/pkg/console"
	"github.com/JuanMarchetto/truss/pkg/constants"
	"github.com/JuanMarchetto/truss/pkg/engine"
	"github.com/JuanMarchetto/truss/pkg/fileutil"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/tty"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/workflow"
)

var validateLog = logger.New("cli:validate")

// DefaultWorkflowDir is validated when no path is given.
var DefaultWorkflowDir = constants.GetWorkflowDir()

// stdinName labels standard input in reports.
const stdinName = "<stdin>"

// ValidateOptions holds the validate command's flags and streams.
type ValidateOptions struct {
	Paths      []string
	Quiet      bool
	JSON       bool
	Severity   string
	ConfigPath string
	NoConfig   bool
	Sequential bool
	Stats      bool
	Watch      bool
	Actionlint bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// FileResult is the outcome of validating one file.
type FileResult struct {
	Path     string
	Source   string
	Result   validation.AnalysisResult
	Duration time.Duration
	// Err is set when the file could not be read.
	Err error

	index int
}

// Valid reports whether the file was read and has no Error diagnostic.
func (r FileResult) Valid() bool {
	return r.Err == nil && r.Result.IsOK()
}

// validator holds everything resolved once per invocation.
type validator struct {
	opts      ValidateOptions
	engine    *engine.Engine
	cfg       *config.Config
	threshold validation.Severity
}

// RunValidate validates the files named by opts and reports the results.
// It returns an *ExitError whose code reflects the outcome.
func RunValidate(ctx context.Context, opts ValidateOptions) error {
	v, files, err := prepare(opts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if !opts.Quiet && !opts.JSON {
			fmt.Fprintln(v.opts.Stderr, console.FormatInfoMessage("No files to validate"))
		}
		if !opts.Watch {
			return nil
		}
	}

	results := v.validateFiles(ctx, files)
	if err := v.report(results); err != nil {
		return err
	}
	if opts.Watch {
		return v.watch(ctx, files)
	}
	return outcome(results)
}

// prepare checks options, expands paths and loads the configuration.
func prepare(opts ValidateOptions) (*validator, []string, error) {
	interactive := false
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
		interactive = tty.IsStdinTerminal()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	threshold := validation.Info
	if opts.Severity != "" {
		s, err := validation.ParseSeverity(opts.Severity)
		if err != nil {
			return nil, nil, usageError(err)
		}
		threshold = s
	}
	if opts.NoConfig && opts.ConfigPath != "" {
		return nil, nil, usageError(errors.New("--config and --no-config cannot be used together"))
	}

	paths := opts.Paths
	if len(paths) == 0 {
		if !fileutil.DirExists(DefaultWorkflowDir) {
			return nil, nil, usageError(fmt.Errorf("no paths given and %s does not exist", DefaultWorkflowDir))
		}
		paths = []string{DefaultWorkflowDir}
	}
	if opts.Watch && slices.Contains(paths, fileutil.StdinPath) {
		return nil, nil, usageError(errors.New("--watch cannot be used with standard input"))
	}

	files, err := fileutil.ExpandPaths(paths)
	if err != nil {
		return nil, nil, ioError(err)
	}

	cfg, err := config.Resolve(config.Options{
		Path:     opts.ConfigPath,
		Disabled: opts.NoConfig,
		StartDir: discoveryStart(files),
	})
	if err != nil {
		return nil, nil, usageError(err)
	}
	if cfg.Path != "" && !opts.Quiet && !opts.JSON {
		fmt.Fprintln(opts.Stderr, console.FormatVerboseMessage("Using configuration "+console.ToRelativePath(cfg.Path)))
	}

	kept := files[:0:0]
	for _, f := range files {
		if f != fileutil.StdinPath && cfg.IsIgnored(f) {
			validateLog.Printf("Skipping ignored file %s", f)
			continue
		}
		kept = append(kept, f)
	}
	if interactive && !opts.Quiet && slices.Contains(kept, fileutil.StdinPath) {
		fmt.Fprintln(opts.Stderr, console.FormatInfoMessage("Reading workflow from standard input (press Ctrl+D to finish)"))
	}

	engineOpts := []engine.Option{engine.WithOverrides(cfg)}
	if opts.Sequential {
		engineOpts = append(engineOpts, engine.WithSequential())
	}
	if opts.Actionlint {
		engineOpts = append(engineOpts, engine.WithExtraRules(workflow.NewActionlintRule()))
	}

	validateLog.Printf("Validating %d files (ignored %d), threshold=%s", len(kept), len(files)-len(kept), threshold)
	return &validator{
		opts:      opts,
		engine:    engine.New(engineOpts...),
		cfg:       cfg,
		threshold: threshold,
	}, kept, nil
}

// discoveryStart is the directory configuration discovery begins in: the
// directory of the first file, or the working directory for stdin.
func discoveryStart(files []string) string {
	for _, f := range files {
		if f != fileutil.StdinPath {
			return filepath.Dir(f)
		}
	}
	return ""
}

// validateFiles reads and analyzes files concurrently. Results keep the
// order of files.
func (v *validator) validateFiles(ctx context.Context, files []string) []FileResult {
	workers := runtime.GOMAXPROCS(0)
	if v.opts.Sequential {
		workers = 1
	}
	p := pool.NewWithResults[FileResult]().WithMaxGoroutines(workers)
	for i, path := range files {
		p.Go(func() FileResult {
			r := v.validateFile(ctx, path)
			r.index = i
			return r
		})
	}
	results := p.Wait()
	slices.SortFunc(results, func(a, b FileResult) int { return cmp.Compare(a.index, b.index) })
	return results
}

func (v *validator) validateFile(ctx context.Context, path string) FileResult {
	result := FileResult{Path: path}
	var data []byte
	var err error
	if path == fileutil.StdinPath {
		result.Path = stdinName
		data, err = io.ReadAll(v.opts.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		result.Err = fmt.Errorf("failed to read %s: %w", result.Path, err)
		return result
	}

	result.Source = string(data)
	start := time.Now()
	result.Result = v.engine.AnalyzeContext(ctx, result.Source)
	result.Duration = time.Since(start)
	validateLog.Printf("Validated %s: %d diagnostics in %s", result.Path, len(result.Result.Diagnostics), result.Duration)
	return result
}

// report writes results in the selected format.
func (v *validator) report(results []FileResult) error {
	var err error
	if v.opts.JSON {
		err = writeJSON(v.opts.Stdout, results, v.threshold)
	} else {
		err = writeText(v.opts.Stdout, v.opts.Stderr, results, v.threshold, v.opts.Quiet)
	}
	if err != nil {
		return ioError(fmt.Errorf("failed to write report: %w", err))
	}
	if v.opts.Stats {
		// Keep stdout parseable in JSON mode.
		out := v.opts.Stdout
		if v.opts.JSON {
			out = v.opts.Stderr
		}
		fmt.Fprint(out, renderStats(results))
	}
	return nil
}

// outcome maps results to the command's error: I/O failures first, then
// Error diagnostics. The severity threshold only filters output.
func outcome(results []FileResult) error {
	var readErrs []error
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			readErrs = append(readErrs, r.Err)
		case !r.Result.IsOK():
			failed++
		}
	}
	if len(readErrs) > 0 {
		return ioError(errors.Join(readErrs...))
	}
	if failed > 0 {
		return &ExitError{
			Code: ExitValidationFailed,
			Err:  fmt.Errorf("%w: %s with errors", ErrValidationFailed, console.FormatCount(failed, "file")),
		}
	}
	return nil
}

// displayName is the path shown for a file in reports.
func displayName(path string) string {
	if path == stdinName {
		return path
	}
	return strings.TrimPrefix(console.ToRelativePath(path), "./")
}
