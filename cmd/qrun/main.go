// Command qrun builds a circuit module, prints or exports its program and
// runs it on the state-vector simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/qcircuit/config"
	_ "github.com/wippyai/qcircuit/examples/circuits"
	"github.com/wippyai/qcircuit/plugin"
	"github.com/wippyai/qcircuit/qasm"
)

func main() {
	var (
		moduleName  = flag.String("module", "", "Registered or plugin directory module to run")
		wasmFile    = flag.String("wasm", "", "Path to a wasm circuit plugin")
		configPath  = flag.String("config", "", "YAML config file")
		pluginDir   = flag.String("dir", "", "Plugin directory (overrides config)")
		shots       = flag.Int("shots", 0, "Number of shots (overrides config)")
		seed        = flag.Uint64("seed", 0, "Simulator seed (overrides config)")
		format      = flag.String("format", "", "Output format: text, json or msgpack (overrides config)")
		outFile     = flag.String("out", "", "Write the report to a file instead of stdout")
		printQASM   = flag.Bool("qasm", false, "Print the OpenQASM 3 program and exit")
		list        = flag.Bool("list", false, "List available modules and exit")
		watch       = flag.Bool("watch", false, "Watch the plugin directory and log reloads")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.PluginDir = *pluginDir
		case "shots":
			cfg.Shots = *shots
		case "seed":
			cfg.Seed = *seed
		case "format":
			cfg.Format = *format
		case "watch":
			cfg.Watch = *watch
		case "v":
			if *verbose {
				cfg.LogLevel = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*list && !cfg.Watch && !*interactive && *moduleName == "" && *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: qrun -module <name> [-shots n] [-seed n] [-format text|json|msgpack] [-out file]")
		fmt.Fprintln(os.Stderr, "       qrun -wasm <file.wasm> [-qasm]")
		fmt.Fprintln(os.Stderr, "       qrun -list [-dir plugins]")
		fmt.Fprintln(os.Stderr, "       qrun -dir plugins -watch")
		fmt.Fprintln(os.Stderr, "       qrun -i  (interactive mode)")
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	qasm.SetLogger(log.Named("qasm"))
	plugin.SetLogger(log.Named("plugin"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close(context.Background())

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			err = fmt.Errorf("interactive mode needs a terminal")
			break
		}
		err = runInteractive(ctx, r)
	case *list:
		err = listSources(r)
	case cfg.Watch:
		err = watchDir(ctx, r)
	default:
		err = runOnce(ctx, r, *moduleName, *wasmFile, *printQASM, *outFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a console logger for terminals and a JSON logger otherwise.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func listSources(r *runner) error {
	fmt.Printf("Modules:\n")
	for _, s := range r.sources() {
		req := ""
		if len(s.Requires) > 0 {
			req = " requires " + strings.Join(s.Requires, ", ")
		}
		fmt.Printf("  %-12s %-6s%s\n", s.Name, s.Kind, req)
	}
	return nil
}

func runOnce(ctx context.Context, r *runner, name, wasmFile string, printQASM bool, outFile string) error {
	var (
		inst *plugin.Instance
		err  error
	)
	if wasmFile != "" {
		inst, err = r.openFile(ctx, wasmFile)
	} else {
		inst, err = r.open(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if printQASM {
		defer inst.Release(ctx)
		p, err := inst.Build(ctx, nil)
		if err != nil {
			return fmt.Errorf("build %s: %w", inst.Name(), err)
		}
		fmt.Print(p.QASM())
		return nil
	}

	rep, err := r.run(ctx, inst)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := r.write(out, rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func watchDir(ctx context.Context, r *runner) error {
	if r.dir == nil {
		return fmt.Errorf("watch requires a plugin directory")
	}
	err := r.dir.Watch(ctx, func(name string, mod *plugin.WasmModule, err error) {
		switch {
		case err != nil:
			r.log.Error("plugin failed to compile", zap.String("module", name), zap.Error(err))
		case mod == nil:
			r.log.Info("plugin removed", zap.String("module", name))
		default:
			r.log.Info("plugin loaded", zap.String("module", name), zap.Strings("requires", mod.Requires()))
		}
	})
	if err != nil {
		return err
	}
	r.log.Info("watching plugins", zap.String("dir", r.dir.Path()), zap.Strings("modules", r.dir.Names()))
	<-ctx.Done()
	return nil
}
