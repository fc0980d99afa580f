package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/codegen"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/config"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/diag"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/intrinsics"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/irio"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/trace"
	"github.com/Maher4Ever/emscripten-fastcomp/internal/ui"
)

var (
	emitConfigPath string
	emitOutPath    string
	emitUI         string
	emitPreciseF32 bool
	emitPthreads   bool
)

func init() {
	emitCmd.Flags().StringVar(&emitConfigPath, "config", "", "path to an asmgen.toml configuration file")
	emitCmd.Flags().StringVar(&emitOutPath, "out", "", "output path (default: stdout; %s substituted with the input's base name for multiple inputs)")
	emitCmd.Flags().StringVar(&emitUI, "ui", "auto", "progress display (auto|on|off)")
	emitCmd.Flags().BoolVar(&emitPreciseF32, "precise-f32", false, "override precise_f32 from the config file")
	emitCmd.Flags().BoolVar(&emitPthreads, "enable-pthreads", false, "override enable_pthreads from the config file")
}

var emitCmd = &cobra.Command{
	Use:   "emit <ir-file>...",
	Short: "Emit asm.js-style JS for one or more serialized IR module fixtures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadEmitConfig(cmd)
		if err != nil {
			return err
		}

		jobs := make([]codegen.AsmjsJob, len(args))
		for i, p := range args {
			jobs[i] = codegen.AsmjsJob{Path: p}
		}

		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		mode, err := readUIMode(emitUI)
		if err != nil {
			return err
		}
		useTUI := !quiet && shouldUseTUI(mode)

		var results []codegen.AsmjsJobResult
		if useTUI {
			results, err = runEmitWithTUI(jobs, cfg)
		} else {
			results, err = codegen.RunAsmjsModules(jobs, cfg, intrinsics.Default(), trace.Nop)
		}
		if err != nil {
			return err
		}

		return writeEmitResults(cmd, args, results, quiet)
	},
}

func loadEmitConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if emitConfigPath != "" {
		loaded, err := config.Load(emitConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("precise-f32") {
		cfg.PreciseF32 = emitPreciseF32
	}
	if cmd.Flags().Changed("enable-pthreads") {
		cfg.EnablePthreads = emitPthreads
	}
	return cfg, nil
}

func runEmitWithTUI(jobs []codegen.AsmjsJob, cfg config.Config) ([]codegen.AsmjsJobResult, error) {
	events := make(chan ui.AsmjsFuncEvent, 256)
	var results []codegen.AsmjsJobResult

	go func() {
		defer close(events)
		for i, job := range jobs {
			mod, err := irio.LoadModule(job.Path)
			if err != nil {
				results = append(results, codegen.AsmjsJobResult{Job: job, Err: err})
				continue
			}
			res, err := codegen.EmitModuleObserved(mod, cfg, intrinsics.Default(), trace.Nop,
				func(name string, index, total int, ferr error) {
					events <- ui.AsmjsFuncEvent{Name: fmt.Sprintf("%s (%d/%d)", name, i+1, len(jobs)), Index: index, Total: total, Err: ferr}
				})
			results = append(results, codegen.AsmjsJobResult{Job: job, Result: res, Err: err})
		}
	}()

	totalFuncs := 0 // refined live as events arrive; the model tolerates total==0
	program := tea.NewProgram(ui.NewAsmjsProgressModel(totalFuncs, events), tea.WithOutput(os.Stdout))
	if _, err := program.Run(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeEmitResults(cmd *cobra.Command, paths []string, results []codegen.AsmjsJobResult, quiet bool) error {
	exitErr := false
	for i, res := range results {
		if res.Err != nil {
			exitErr = true
			printEmitError(cmd, paths[i], res.Err)
			continue
		}
		if err := writeOutput(paths[i], res.Result.Output); err != nil {
			return err
		}
		if !quiet {
			for _, d := range res.Result.Diagnostics() {
				printDiagnostic(cmd, d)
			}
		}
	}
	if exitErr {
		return fmt.Errorf("one or more modules failed to emit")
	}
	return nil
}

func writeOutput(inputPath, output string) error {
	if emitOutPath == "" {
		_, err := fmt.Println(output)
		return err
	}
	out := emitOutPath
	if strings.Contains(out, "%s") {
		base := filepath.Base(strings.TrimSuffix(inputPath, ".ir"))
		out = strings.ReplaceAll(out, "%s", base)
	}
	return os.WriteFile(out, []byte(output), 0o644)
}

func printDiagnostic(cmd *cobra.Command, d diag.Diagnostic) {
	msg := fmt.Sprintf("warning[%s]: %s", d.Code, d.Message)
	if colorEnabled(cmd) {
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), msg)
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
}

func printEmitError(cmd *cobra.Command, path string, err error) {
	msg := fmt.Sprintf("error: %s: %v", path, err)
	if colorEnabled(cmd) {
		color.New(color.FgRed, color.Bold).Fprintln(cmd.ErrOrStderr(), msg)
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
}

func colorEnabled(cmd *cobra.Command) bool {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
