package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
)

// WasmExt is the file extension of circuit modules in a plugin directory.
const WasmExt = ".wasm"

// ChangeFunc is called after a watched module is compiled or removed. mod is
// nil when the module was removed or failed to compile.
type ChangeFunc func(name string, mod *WasmModule, err error)

// Dir is a directory of wasm circuit modules. Each file name without its
// extension is the module name.
type Dir struct {
	loader  *WasmLoader
	modules map[string]*WasmModule
	watcher *fsnotify.Watcher
	done    chan struct{}
	path    string
	mu      sync.RWMutex
}

// NewDir creates a catalogue of path compiled with loader.
func NewDir(loader *WasmLoader, path string) *Dir {
	return &Dir{
		loader:  loader,
		path:    path,
		modules: make(map[string]*WasmModule),
	}
}

// Path returns the watched directory.
func (d *Dir) Path() string { return d.path }

func moduleName(file string) (string, bool) {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, WasmExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, WasmExt), true
}

// Scan compiles every module in the directory. Modules that fail are left
// out and their errors are combined into the result.
func (d *Dir) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return errors.Load("read plugin directory "+d.path, err)
	}

	var errs error
	found := make(map[string]*WasmModule)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := moduleName(e.Name())
		if !ok {
			continue
		}
		mod, err := d.compile(ctx, name, filepath.Join(d.path, e.Name()))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		found[name] = mod
	}

	d.mu.Lock()
	d.modules = found
	d.mu.Unlock()

	Logger().Debug("plugin directory scanned",
		zap.String("path", d.path),
		zap.Int("modules", len(found)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

func (d *Dir) compile(ctx context.Context, name, file string) (*WasmModule, error) {
	bin, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Load("read module "+file, err)
	}
	return d.loader.Compile(ctx, name, bin)
}

// Lookup returns the compiled module called name.
func (d *Dir) Lookup(name string) (*WasmModule, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.modules[name]
	return m, ok
}

// Names returns the module names in sorted order.
func (d *Dir) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.modules))
	for n := range d.modules {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Load instantiates the module called name.
func (d *Dir) Load(ctx context.Context, name string) (*Instance, error) {
	m, ok := d.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "wasm module", name)
	}
	return m.Instantiate(ctx)
}

// Watch recompiles modules as their files change until ctx is done or Close
// is called. onChange may be nil.
func (d *Dir) Watch(ctx context.Context, onChange ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindInstantiation, err, "create watcher")
	}
	if err := w.Add(d.path); err != nil {
		_ = w.Close()
		return errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "watch "+d.path)
	}

	d.mu.Lock()
	if d.watcher != nil {
		d.mu.Unlock()
		_ = w.Close()
		return errors.Lifecycle(d.path, "directory already watched")
	}
	d.watcher = w
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	if onChange == nil {
		onChange = func(string, *WasmModule, error) {}
	}
	go d.loop(ctx, w, done, onChange)
	return nil
}

func (d *Dir) loop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}, onChange ChangeFunc) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			name, ok := moduleName(ev.Name)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				d.mu.Lock()
				delete(d.modules, name)
				d.mu.Unlock()
				Logger().Debug("module removed", zap.String("module", name))
				onChange(name, nil, nil)
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				mod, err := d.compile(ctx, name, ev.Name)
				d.mu.Lock()
				if err != nil {
					delete(d.modules, name)
				} else {
					d.modules[name] = mod
				}
				d.mu.Unlock()
				Logger().Debug("module reloaded", zap.String("module", name), zap.Error(err))
				onChange(name, mod, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			Logger().Warn("plugin watcher error", zap.String("path", d.path), zap.Error(err))
		}
	}
}

// Close stops watching. It is safe to call without Watch.
func (d *Dir) Close() error {
	d.mu.Lock()
	w, done := d.watcher, d.done
	d.watcher, d.done = nil, nil
	d.mu.Unlock()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
