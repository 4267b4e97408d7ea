// Package main implements the CLI driver for the jshrink analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/jshrink/internal/classfile"
	"github.com/715d/jshrink/keep"
	"github.com/715d/jshrink/optimize"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Inputs      []string // class dirs, class files or jars to analyze
	LibraryJars []string // reference-only classes (hierarchy, signatures)
	Rules       string   // keep-rule YAML file
	Verbose     bool     // enables detailed output and statistics
	JSON        bool     // enables JSON output format
	Profile     bool     // enables CPU and memory profiling
}

const (
	exitRemovableFound = 1
	exitError          = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "jshrink [inputs...]",
		Short: "Find removable classes, members and parameters in compiled class pools",
		Long: `jshrink loads a pool of compiled class files, applies keep rules to
determine which classes and members are required, and analyzes which method
parameters are never read.

It reports:
- Classes not covered by any keep rule
- Members of kept classes not covered by any keep rule
- Method parameter slots that are provably unused`,
		Example: `  jshrink build/classes                   # Analyze a class directory
  jshrink app.jar --rules keep.yaml       # Jar input with keep rules
  jshrink app.jar --library rt.jar        # Resolve hierarchy against a library
  jshrink -json app.jar > report.json     # JSON output to file`,
		Args:               cobra.ArbitraryArgs,
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("jshrink version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	rootCmd.PersistentFlags().StringVar(&cfg.Rules, "rules", "", "Keep-rule YAML file")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.LibraryJars, "library", []string{}, "Library jars or class dirs (hierarchy only, never removable)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr *codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errWithCode(fmt.Errorf("no inputs given"), exitError)
	}
	cfg.Inputs = args

	slog.Info("starting shrink analysis", "inputs", cfg.Inputs)

	result, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(result, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	if len(result.RemovableClasses) > 0 || len(result.ShrinkableMethods) > 0 {
		return errWithCode(nil, exitRemovableFound)
	}
	return nil
}

// Result represents the analysis output: removable entities and execution
// statistics.
type Result struct {
	RemovableClasses  []RemovableClass   `json:"removable_classes"`
	ShrinkableMethods []ShrinkableMethod `json:"shrinkable_methods"`
	Stats             struct {
		TotalClasses      int           `json:"total_classes"`
		LibraryClasses    int           `json:"library_classes"`
		KeptClasses       int           `json:"kept_classes"`
		TotalMethods      int           `json:"total_methods"`
		AnalysisDuration  time.Duration `json:"analysis_duration"`
		KeepRuleCount     int           `json:"keep_rule_count"`
		UninstantiatedSet int           `json:"uninstantiated_classes"`
	} `json:"stats"`
}

// RemovableClass is a program class no keep rule covers.
type RemovableClass struct {
	Name         string `json:"name"`
	Instantiated bool   `json:"instantiated"`
}

// ShrinkableMethod is a method with provably unused parameter slots.
type ShrinkableMethod struct {
	Class         string `json:"class"`
	Method        string `json:"method"`
	ParameterSize int    `json:"parameter_size"`
	UnusedSlots   []int  `json:"unused_slots"`
}

// marker records which entities the compiled keep plan visited. Plan
// execution is single-threaded, so plain maps suffice.
type marker struct {
	classes map[*classfile.Class]bool
	fields  map[*classfile.Field]bool
	methods map[*classfile.Method]bool
}

func newMarker() *marker {
	return &marker{
		classes: make(map[*classfile.Class]bool),
		fields:  make(map[*classfile.Field]bool),
		methods: make(map[*classfile.Method]bool),
	}
}

func (m *marker) VisitClass(c *classfile.Class) { m.classes[c] = true }

func (m *marker) VisitField(c *classfile.Class, f *classfile.Field) {
	m.classes[c] = true
	m.fields[f] = true
}

func (m *marker) VisitMethod(c *classfile.Class, mt *classfile.Method) {
	m.classes[c] = true
	m.methods[mt] = true
}

func runAnalysis(ctx context.Context, cfg *Config) (*Result, error) {
	start := time.Now()

	slog.Info("loading class pool", "inputs", cfg.Inputs, "library", cfg.LibraryJars)
	pool, err := classfile.LoadPool(ctx, classfile.LoaderOptions{
		Inputs:        cfg.Inputs,
		LibraryInputs: cfg.LibraryJars,
	})
	if err != nil {
		return nil, fmt.Errorf("loading class pool: %w", err)
	}

	var rules []keep.KeepSpecification
	if cfg.Rules != "" {
		rules, err = keep.LoadRules(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("loading keep rules: %w", err)
		}
		slog.Info("loaded keep rules", "rules", len(rules))
	}

	// The marker serves as both callbacks: a kept member also pins its class.
	kept := newMarker()
	plan, err := keep.CompileKeep(rules, keep.PhaseShrink, kept, kept)
	if err != nil {
		return nil, fmt.Errorf("compiling keep rules: %w", err)
	}
	slog.Info("running keep pass")
	plan.VisitPool(pool)

	slog.Info("running parameter usage analysis")
	usage := optimize.NewParameterUsage()
	if err := usage.AnalyzePool(pool); err != nil {
		return nil, fmt.Errorf("parameter usage analysis: %w", err)
	}

	slog.Info("running class usage analysis")
	classUsage := optimize.NewClassUsage()
	classUsage.MarkPool(pool)

	duration := time.Since(start)
	slog.Info("analysis completed", "dur", duration)

	return buildResult(pool, rules, kept, usage, classUsage, duration), nil
}

func buildResult(pool *classfile.Pool, rules []keep.KeepSpecification, kept *marker,
	usage *optimize.ParameterUsage, classUsage *optimize.ClassUsage, dur time.Duration) *Result {

	var r Result
	r.Stats.AnalysisDuration = dur
	r.Stats.KeepRuleCount = len(rules)
	r.Stats.TotalClasses = pool.Size()

	for _, c := range pool.Classes() {
		if c.Library {
			r.Stats.LibraryClasses++
			continue
		}
		r.Stats.TotalMethods += len(c.Methods)

		if kept.classes[c] {
			r.Stats.KeptClasses++
		} else {
			r.RemovableClasses = append(r.RemovableClasses, RemovableClass{
				Name:         c.Name,
				Instantiated: classUsage.IsInstantiated(c),
			})
		}
		if !classUsage.IsInstantiated(c) {
			r.Stats.UninstantiatedSet++
		}

		for _, m := range c.Methods {
			size := usage.ParameterSize(m)
			if size == 0 || kept.methods[m] {
				continue
			}
			var unused []int
			for slot := range size {
				if !usage.IsParameterUsed(m, slot) {
					unused = append(unused, slot)
				}
			}
			if len(unused) > 0 {
				r.ShrinkableMethods = append(r.ShrinkableMethods, ShrinkableMethod{
					Class:         c.Name,
					Method:        m.Name + m.Descriptor,
					ParameterSize: size,
					UnusedSlots:   unused,
				})
			}
		}
	}

	return &r
}

func writeResults(result *Result, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(result)
	} else {
		output = formatTextOutput(result, cfg)
	}

	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}

func formatJSONOutput(result *Result) (string, error) {
	data, err := json.MarshalIndent(struct {
		*Result
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}{
		Result:    result,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data), nil
}

func formatTextOutput(result *Result, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"total_classes", result.Stats.TotalClasses,
			"library_classes", result.Stats.LibraryClasses,
			"kept_classes", result.Stats.KeptClasses,
			"total_methods", result.Stats.TotalMethods,
			"analysis_duration", result.Stats.AnalysisDuration.String())
	}

	if len(result.RemovableClasses) == 0 && len(result.ShrinkableMethods) == 0 {
		slog.Info("nothing removable found")
		return output.String()
	}

	for _, c := range result.RemovableClasses {
		if cfg.Verbose && c.Instantiated {
			output.WriteString(fmt.Sprintf("class %s (instantiated)\n", c.Name))
		} else {
			output.WriteString(fmt.Sprintf("class %s\n", c.Name))
		}
	}
	for _, m := range result.ShrinkableMethods {
		output.WriteString(fmt.Sprintf("method %s.%s unused parameter slots %v\n",
			m.Class, m.Method, m.UnusedSlots))
	}

	return output.String()
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
