package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/config"
	"github.com/wippyai/qcircuit/plugin"
	"github.com/wippyai/qcircuit/qasm"
	"github.com/wippyai/qcircuit/sim"
)

// runner resolves modules from the native registry, a plugin directory or a
// single wasm file, and runs them on the configured backend.
type runner struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *plugin.Registry
	loader   *plugin.WasmLoader
	dir      *plugin.Dir
	backend  *sim.Simulator
}

func newRunner(ctx context.Context, cfg *config.Config, log *zap.Logger) (*runner, error) {
	r := &runner{
		cfg:      cfg,
		log:      log,
		registry: plugin.Default,
	}
	if cfg.Backend == config.BackendSim {
		opts := []sim.Option{sim.WithMaxQubits(cfg.MaxQubits)}
		if cfg.Seed != 0 {
			opts = append(opts, sim.WithSeed(cfg.Seed))
		}
		r.backend = sim.New(opts...)
	}

	loader, err := plugin.NewWasmLoader(ctx, cfg.WasmConfig())
	if err != nil {
		return nil, fmt.Errorf("create wasm loader: %w", err)
	}
	r.loader = loader

	if cfg.PluginDir != "" {
		r.dir = plugin.NewDir(loader, cfg.PluginDir)
		if err := r.dir.Scan(ctx); err != nil {
			// Broken plugins are reported but do not hide the good ones.
			log.Warn("plugin directory has errors", zap.String("dir", cfg.PluginDir), zap.Error(err))
		}
	}
	return r, nil
}

func (r *runner) Close(ctx context.Context) error {
	if r.dir != nil {
		_ = r.dir.Close()
	}
	return r.loader.Close(ctx)
}

// source describes one runnable module.
type source struct {
	Name     string
	Kind     string
	Requires []string
}

// sources lists native modules then plugin directory modules.
func (r *runner) sources() []source {
	var out []source
	for _, n := range r.registry.Names() {
		s := source{Name: n, Kind: "native"}
		if f, ok := r.registry.Lookup(n); ok {
			m := f()
			if req, ok := m.(qasm.Requirer); ok {
				s.Requires = req.Requires()
			}
			if rel, ok := m.(plugin.Releaser); ok {
				_ = rel.Release(context.Background())
			}
		}
		out = append(out, s)
	}
	if r.dir != nil {
		for _, n := range r.dir.Names() {
			s := source{Name: n, Kind: "wasm"}
			if m, ok := r.dir.Lookup(n); ok {
				s.Requires = m.Requires()
			}
			out = append(out, s)
		}
	}
	return out
}

// open loads a module by name. Plugin directory modules shadow native ones.
func (r *runner) open(ctx context.Context, name string) (*plugin.Instance, error) {
	if r.dir != nil {
		if _, ok := r.dir.Lookup(name); ok {
			return r.dir.Load(ctx, name)
		}
	}
	return r.registry.Load(name, nil)
}

// openFile loads a single wasm plugin. Its module name is the file name
// without extension.
func (r *runner) openFile(ctx context.Context, path string) (*plugin.Instance, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.loader.Load(ctx, name, bin)
}

// report is the result of one qrun invocation.
type report struct {
	Counts    map[string]int    `msgpack:"counts,omitempty" json:"counts,omitempty"`
	Registers map[string]string `msgpack:"registers,omitempty" json:"registers,omitempty"`
	Program   *qasm.Program     `msgpack:"program" json:"program"`
	RunID     string            `msgpack:"run_id" json:"run_id"`
	Module    string            `msgpack:"module" json:"module"`
	Instance  string            `msgpack:"instance" json:"instance"`
	Backend   string            `msgpack:"backend" json:"backend"`
	Shots     int               `msgpack:"shots" json:"shots"`
	Duration  time.Duration     `msgpack:"duration_ns" json:"duration_ns"`
}

// run builds inst and executes it. With one shot the delivered registers are
// reported; with more, the outcome histogram. The instance is released.
func (r *runner) run(ctx context.Context, inst *plugin.Instance) (rep *report, err error) {
	defer func() {
		if rerr := inst.Release(ctx); rerr != nil && err == nil {
			err = fmt.Errorf("release %s: %w", inst.Name(), rerr)
		}
	}()

	rep = &report{
		RunID:    uuid.NewString(),
		Module:   inst.Name(),
		Instance: inst.ID(),
		Backend:  r.cfg.Backend,
		Shots:    r.cfg.Shots,
	}
	log := r.log.With(zap.String("run", rep.RunID), zap.String("module", inst.Name()))
	start := time.Now()

	c := qasm.NewCircuit(qasm.WithLibrary(inst.Library()), qasm.WithName(inst.Name()))
	p, err := inst.Build(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", inst.Name(), err)
	}
	rep.Program = p
	log.Info("circuit built",
		zap.Int("qubits", p.NumQubits),
		zap.Int("clbits", p.NumClbits()),
		zap.Int("instructions", len(p.Instructions)))

	switch {
	case r.backend == nil:
		rep.Shots = 0
	case r.cfg.Shots == 1:
		res, err := qasm.Execute(ctx, c, r.backend)
		if err != nil {
			return nil, fmt.Errorf("execute %s: %w", inst.Name(), err)
		}
		rep.Registers = make(map[string]string, len(res.Registers))
		for name, b := range res.Registers {
			rep.Registers[name] = b.String()
		}
	default:
		counts, err := r.backend.Sample(ctx, p, r.cfg.Shots)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", inst.Name(), err)
		}
		rep.Counts = counts
	}
	rep.Duration = time.Since(start)
	log.Info("run finished", zap.Duration("duration", rep.Duration), zap.Int("shots", rep.Shots))
	return rep, nil
}

// write encodes rep to w in the configured format.
func (r *runner) write(w io.Writer, rep *report) error {
	switch r.cfg.Format {
	case config.FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(rep)
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return writeText(w, rep)
}

func writeText(w io.Writer, rep *report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s (run %s)\n", rep.Module, rep.RunID)
	fmt.Fprintf(&b, "Qubits: %d  Clbits: %d  Instructions: %d\n",
		rep.Program.NumQubits, rep.Program.NumClbits(), len(rep.Program.Instructions))

	if len(rep.Registers) > 0 {
		b.WriteString("\nRegisters:\n")
		names := make([]string, 0, len(rep.Registers))
		for n := range rep.Registers {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(&b, "  %s = %s\n", n, rep.Registers[n])
		}
	}
	if len(rep.Counts) > 0 {
		counts := sim.Counts(rep.Counts)
		fmt.Fprintf(&b, "\nCounts (%d shots):\n", counts.Total())
		for _, k := range counts.Keys() {
			fmt.Fprintf(&b, "  %s  %d\n", k, counts[k])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
