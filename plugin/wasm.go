package plugin

import (
	"context"
	"crypto/sha256"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// DefaultCacheSize is the number of compiled modules kept by a WasmLoader.
const DefaultCacheSize = 32

// WasmConfig configures a WasmLoader.
type WasmConfig struct {
	// Library is the gate library guests resolve against. Nil means
	// qasm.StdLibrary().
	Library *qasm.Library

	// ABIConstraint is a semver constraint the guest's ABI version must
	// satisfy. Empty means DefaultABIConstraint.
	ABIConstraint string

	// CacheSize bounds the compiled module cache. 0 means DefaultCacheSize.
	CacheSize int

	// MemoryLimitPages caps guest linear memory in 64KiB pages. 0 means the
	// wazero default.
	MemoryLimitPages uint32
}

// WasmLoader compiles and instantiates wasm circuit modules. Compiled
// modules are cached by content digest.
type WasmLoader struct {
	runtime    wazero.Runtime
	lib        *qasm.Library
	constraint *semver.Constraints
	cache      *lru.Cache[[32]byte, wazero.CompiledModule]
	host       map[string]hostFunc
	log        *zap.Logger
	mu         sync.Mutex
	closed     bool
}

// NewWasmLoader creates a loader with its own wazero runtime and registers
// the host module. A nil cfg uses defaults.
func NewWasmLoader(ctx context.Context, cfg *WasmConfig) (*WasmLoader, error) {
	if cfg == nil {
		cfg = &WasmConfig{}
	}
	lib := cfg.Library
	if lib == nil {
		lib = qasm.StdLibrary()
	}
	expr := cfg.ABIConstraint
	if expr == "" {
		expr = DefaultABIConstraint
	}
	constraint, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(expr).
			Cause(err).
			Detail("invalid ABI constraint").
			Build()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	funcs, err := hostFuncs(lib)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	if _, err := instantiateHost(ctx, r, funcs); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	l := &WasmLoader{
		runtime:    r,
		lib:        lib,
		constraint: constraint,
		host:       funcs,
		log:        Logger().With(zap.String("loader", "wasm")),
	}
	l.cache, err = lru.NewWithEvict[[32]byte, wazero.CompiledModule](size, func(_ [32]byte, cm wazero.CompiledModule) {
		_ = cm.Close(context.Background())
	})
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "create module cache")
	}
	return l, nil
}

// Library returns the gate library guests are resolved against.
func (l *WasmLoader) Library() *qasm.Library { return l.lib }

// CacheLen returns the number of cached compiled modules.
func (l *WasmLoader) CacheLen() int { return l.cache.Len() }

// Close releases the runtime and every compiled module.
func (l *WasmLoader) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.cache.Purge()
	return l.runtime.Close(ctx)
}

// WasmModule is a validated wasm circuit module. It can be instantiated any
// number of times; each instance runs its entry method at most once.
type WasmModule struct {
	loader  *WasmLoader
	name    string
	bin     []byte
	gates   []string
	digest  [32]byte
	release bool
}

func (m *WasmModule) Name() string { return m.name }

// Requires returns the library gates the module imports.
func (m *WasmModule) Requires() []string { return slices.Clone(m.gates) }

// Digest returns the SHA-256 of the module binary.
func (m *WasmModule) Digest() [32]byte { return m.digest }

// compiled returns the cached compiled form of bin, compiling on a miss.
// The caller holds l.mu.
func (l *WasmLoader) compiled(ctx context.Context, name string, digest [32]byte, bin []byte) (wazero.CompiledModule, error) {
	if cm, ok := l.cache.Get(digest); ok {
		return cm, nil
	}
	cm, err := l.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Module(name).
			Cause(err).
			Detail("compile wasm module").
			Build()
	}
	l.cache.Add(digest, cm)
	l.log.Debug("compiled", zap.String("module", name), zap.Int("bytes", len(bin)))
	return cm, nil
}

// Compile validates bin as a circuit module: every import must resolve to a
// host function or a library gate with a matching signature, and the
// constructor and entry exports must be present.
func (l *WasmLoader) Compile(ctx context.Context, name string, bin []byte) (*WasmModule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errors.Lifecycle(name, "loader closed")
	}

	digest := sha256.Sum256(bin)
	cm, err := l.compiled(ctx, name, digest, bin)
	if err != nil {
		return nil, err
	}

	m := &WasmModule{
		loader: l,
		name:   name,
		bin:    bin,
		digest: digest,
	}

	var missing []string
	for _, def := range cm.ImportedFunctions() {
		ns, fn, _ := def.Import()
		hf, ok := l.host[fn]
		if ns != Namespace || !ok {
			missing = append(missing, ns+"#"+fn)
			continue
		}
		if !slices.Equal(def.ParamTypes(), hf.params) || !slices.Equal(def.ResultTypes(), hf.results) {
			return nil, errors.New(errors.PhaseLink, errors.KindArity).
				Module(name).
				Gate(fn).
				Detail("import signature %s does not match host %s",
					sigString(def.ParamTypes(), def.ResultTypes()), sigString(hf.params, hf.results)).
				Build()
		}
		if _, isGate := l.lib.Lookup(fn); isGate {
			m.gates = append(m.gates, fn)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		l.log.Debug("unresolved imports", zap.String("module", name), zap.Strings("imports", missing))
		return nil, errors.NewMissingImportsError(name, missing)
	}

	exports := cm.ExportedFunctions()
	guest, err := ParseSignatures(GuestABI)
	if err != nil {
		return nil, err
	}
	for _, sig := range guest {
		export := strings.ReplaceAll(sig.Name, "-", "_")
		def, ok := exports[export]
		if !ok {
			switch export {
			case ExportRelease:
				continue
			case ExportABIVersion:
				return nil, errors.New(errors.PhaseLoad, errors.KindVersion).
					Module(name).
					Detail("module does not export %s", export).
					Build()
			}
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Module(name).
				Detail("module does not export %s", export).
				Build()
		}
		params, results, err := sig.Core()
		if err != nil {
			return nil, err
		}
		if !slices.Equal(def.ParamTypes(), params) || !slices.Equal(def.ResultTypes(), results) {
			return nil, errors.New(errors.PhaseLoad, errors.KindArity).
				Module(name).
				Detail("export %s has signature %s, want %s", export,
					sigString(def.ParamTypes(), def.ResultTypes()), sigString(params, results)).
				Build()
		}
		if export == ExportRelease {
			m.release = true
		}
	}
	return m, nil
}

func sigString(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteString(") -> (")
	for i, r := range results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

// Load compiles bin and instantiates it.
func (l *WasmLoader) Load(ctx context.Context, name string, bin []byte) (*Instance, error) {
	m, err := l.Compile(ctx, name, bin)
	if err != nil {
		return nil, err
	}
	return m.Instantiate(ctx)
}

// Instantiate creates a guest instance, checks its ABI version and calls its
// constructor. The returned Instance owns the guest.
func (m *WasmModule) Instantiate(ctx context.Context) (*Instance, error) {
	l := m.loader
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, errors.Lifecycle(m.name, "loader closed")
	}
	cm, err := l.compiled(ctx, m.name, m.digest, m.bin)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	// Anonymous instances can coexist in one runtime.
	mod, err := l.runtime.InstantiateModule(ctx, cm, wazero.NewModuleConfig().WithName(""))
	l.mu.Unlock()
	if err != nil {
		return nil, errors.Instantiation(m.name, err)
	}

	fail := func(err error) (*Instance, error) {
		_ = mod.Close(ctx)
		return nil, err
	}

	res, err := mod.ExportedFunction(ExportABIVersion).Call(ctx)
	if err != nil {
		return fail(errors.Instantiation(m.name, err))
	}
	v := UnpackVersion(api.DecodeU32(res[0]))
	if ok, reasons := l.constraint.Validate(v); !ok {
		cause := error(nil)
		if len(reasons) > 0 {
			cause = reasons[0]
		}
		return fail(errors.New(errors.PhaseLoad, errors.KindVersion).
			Module(m.name).
			Value(v.String()).
			Cause(cause).
			Detail("guest ABI %s does not satisfy %s", v, l.constraint).
			Build())
	}

	res, err = mod.ExportedFunction(ExportConstructor).Call(ctx)
	if err != nil {
		return fail(errors.Instantiation(m.name, err))
	}

	g := &guest{
		name:    m.name,
		mod:     mod,
		self:    res[0],
		gates:   m.gates,
		circuit: mod.ExportedFunction(ExportCircuit),
	}
	if m.release {
		g.release = mod.ExportedFunction(ExportRelease)
	}
	l.log.Debug("instantiated", zap.String("module", m.name), zap.String("abi", v.String()))
	return newInstance(m.name, g, l.lib, g.close), nil
}

// guest adapts an instantiated wasm module to qasm.Module.
type guest struct {
	ctx     context.Context
	mod     api.Module
	circuit api.Function
	release api.Function
	name    string
	gates   []string
	self    uint64
}

func (g *guest) bind(ctx context.Context) { g.ctx = ctx }

func (g *guest) Requires() []string { return g.gates }

func (g *guest) Circuit(c *qasm.Circuit) error {
	ctx := g.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSession(c)
	_, err := g.circuit.Call(withSession(ctx, s), g.self)
	if s.err != nil {
		return s.err
	}
	if err != nil {
		return errors.New(errors.PhaseCircuit, errors.KindInvalidData).
			Module(g.name).
			Cause(err).
			Detail("guest entry trapped").
			Build()
	}
	return nil
}

func (g *guest) close(ctx context.Context) error {
	var err error
	if g.release != nil {
		if _, rerr := g.release.Call(ctx, g.self); rerr != nil {
			err = errors.New(errors.PhaseHost, errors.KindLifecycle).
				Module(g.name).
				Cause(rerr).
				Detail("guest release trapped").
				Build()
		}
	}
	if cerr := g.mod.Close(ctx); cerr != nil && err == nil {
		err = errors.Wrap(errors.PhaseHost, errors.KindLifecycle, cerr, "close guest module")
	}
	return err
}
