// Package vm runs wasm contract code against a hostfn.Host. The engine
// serves the seal0/seal1/seal2 host modules through wazero; every deploy
// or call instantiates the guest afresh and invokes its deploy or call
// export.
package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/govm-net/guestenv/types"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCode is returned when loading an empty code blob.
	ErrEmptyCode = errors.New("contract code cannot be empty")
	// ErrCodeTooLarge is returned when code exceeds Config.MaxCodeSize.
	ErrCodeTooLarge = errors.New("contract code too large")
	// ErrMissingExport is returned for code lacking a required export.
	ErrMissingExport = errors.New("missing export")
	// ErrGuestTrap wraps every failure of a guest execution.
	ErrGuestTrap = errors.New("guest trapped")
)

var logger = zap.NewNop()

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger
}

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// initializeExport is run before deploy or call when the guest is a
// reactor built with a wasi toolchain.
const initializeExport = "_initialize"

// Engine compiles contract code and runs it. It is safe for concurrent
// use; the hosts it runs code against may not be.
type Engine struct {
	cfg     Config
	runtime wazero.Runtime
	cache   wazero.CompilationCache
}

// NewEngine creates a runtime with the host modules registered.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	cache := wazero.NewCompilationCache()
	rc := wazero.NewRuntimeConfig().
		WithCompilationCache(cache).
		WithCloseOnContextDone(cfg.Timeout > 0)
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}
	if err := instantiateImports(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return &Engine{cfg: cfg, runtime: rt, cache: cache}, nil
}

// Close releases the runtime and every compiled module.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if cerr := e.cache.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// Load compiles code and checks it exports what a contract needs.
func (e *Engine) Load(ctx context.Context, code []byte) (*WasmContract, error) {
	if len(code) == 0 {
		return nil, ErrEmptyCode
	}
	if e.cfg.MaxCodeSize > 0 && len(code) > e.cfg.MaxCodeSize {
		return nil, fmt.Errorf("%w: %d bytes, at most %d", ErrCodeTooLarge, len(code), e.cfg.MaxCodeSize)
	}
	compiled, err := e.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("compile contract: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		compiled.Close(ctx)
		return nil, err
	}
	c := &WasmContract{
		engine:   e,
		compiled: compiled,
		hash:     hostsim.CodeHashOf(code),
	}
	logger.Debug("contract loaded", zap.Stringer("code_hash", c.hash), zap.Int("size", len(code)))
	return c, nil
}

func checkExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	for _, name := range []string{types.ExportDeploy, types.ExportCall} {
		def, ok := funcs[name]
		if !ok {
			return fmt.Errorf("%w: function %q", ErrMissingExport, name)
		}
		if len(def.ParamTypes()) != 0 || len(def.ResultTypes()) != 0 {
			return fmt.Errorf("%w: %q must take and return nothing", ErrMissingExport, name)
		}
	}
	if _, ok := compiled.ExportedMemories()[types.ExportMemory]; !ok {
		return fmt.Errorf("%w: memory %q", ErrMissingExport, types.ExportMemory)
	}
	return nil
}

// WasmContract is loaded contract code. It runs on whatever host the
// deploy or call is made against.
type WasmContract struct {
	engine   *Engine
	compiled wazero.CompiledModule
	hash     core.Hash
}

var _ hostsim.Contract = (*WasmContract)(nil)

// CodeHash returns the Blake2x256 hash of the code.
func (c *WasmContract) CodeHash() core.Hash {
	return c.hash
}

func (c *WasmContract) Deploy(h hostfn.Host) error {
	return c.run(h, types.ExportDeploy)
}

func (c *WasmContract) Call(h hostfn.Host) error {
	return c.run(h, types.ExportCall)
}

// run instantiates the guest and calls export. A guest that returned or
// terminated yields the *core.Terminated it ended with.
func (c *WasmContract) run(h hostfn.Host, export string) error {
	ctx := context.Background()
	if c.engine.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.engine.cfg.Timeout)
		defer cancel()
	}
	inv := &invocation{host: h}
	ctx = withInvocation(ctx, inv)

	mod, err := c.engine.runtime.InstantiateModule(ctx, c.compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return fmt.Errorf("%w: instantiate: %w", ErrGuestTrap, err)
	}
	defer mod.Close(ctx)

	if initFn := mod.ExportedFunction(initializeExport); initFn != nil {
		if err := c.invoke(ctx, inv, initFn); err != nil {
			return err
		}
	}
	return c.invoke(ctx, inv, mod.ExportedFunction(export))
}

func (c *WasmContract) invoke(ctx context.Context, inv *invocation, fn api.Function) error {
	_, err := fn.Call(ctx)
	if inv.terminated != nil {
		return inv.terminated
	}
	if err != nil {
		logger.Debug("guest trapped", zap.Stringer("code_hash", c.hash), zap.String("function", fn.Definition().Name()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrGuestTrap, err)
	}
	return nil
}
