// Package compiler checks contract sources and builds them to wasm with
// TinyGo.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNoSources is returned for a directory without Go files.
	ErrNoSources = errors.New("no contract sources")
	// ErrSourceTooLarge is returned when the sources exceed Config.MaxSourceSize.
	ErrSourceTooLarge = errors.New("contract sources too large")
	// ErrImportNotAllowed is returned for an import outside Config.AllowedImports.
	ErrImportNotAllowed = errors.New("import not allowed")
	// ErrRestricted is returned for a restricted statement or directive.
	ErrRestricted = errors.New("restricted construct")
	// ErrToolchainMissing is returned when the TinyGo binary cannot be found.
	ErrToolchainMissing = errors.New("tinygo not found")
)

var logger = zap.NewNop()

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Config controls validation and the TinyGo invocation.
type Config struct {
	TinyGo string `yaml:"tinygo"`
	Target string `yaml:"target"`
	Opt    string `yaml:"opt"`
	// MaxSourceSize bounds the total size of the package's Go files.
	MaxSourceSize int `yaml:"max_source_size"`
	// AllowedImports lists import paths; an entry also allows its subpackages.
	AllowedImports []string `yaml:"allowed_imports"`
}

// DefaultConfig allows the guest side packages of this module and a
// deterministic subset of the standard library.
func DefaultConfig() Config {
	return Config{
		TinyGo:        "tinygo",
		Target:        "wasm-unknown",
		Opt:           "z",
		MaxSourceSize: 1024 * 1024,
		AllowedImports: []string{
			"github.com/govm-net/guestenv/codec",
			"github.com/govm-net/guestenv/core",
			"github.com/govm-net/guestenv/dispatch",
			"github.com/govm-net/guestenv/env",
			"github.com/govm-net/guestenv/examples",
			"github.com/govm-net/guestenv/hostfn",
			"github.com/govm-net/guestenv/types",
			"bytes",
			"encoding/binary",
			"encoding/hex",
			"errors",
			"fmt",
			"io",
			"math",
			"sort",
			"strconv",
			"strings",
			"unicode/utf8",
		},
	}
}

// restrictedDirectives bypass the host ABI.
var restrictedDirectives = []string{
	"go:wasmimport",
	"go:linkname",
	"go:embed",
	"go:cgo_",
	"extern",
}

// Builder validates and compiles contract packages.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Validate checks the non-test Go files of the package in dir.
func (b *Builder) Validate(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return err
	}
	fset := token.NewFileSet()
	total, files := 0, 0
	for _, path := range paths {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		total += len(src)
		if b.cfg.MaxSourceSize > 0 && total > b.cfg.MaxSourceSize {
			return fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, b.cfg.MaxSourceSize)
		}
		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			return fmt.Errorf("failed to parse contract: %w", err)
		}
		if err := b.validateFile(fset, file); err != nil {
			return err
		}
		files++
	}
	if files == 0 {
		return fmt.Errorf("%w: %s", ErrNoSources, dir)
	}
	return nil
}

func (b *Builder) validateFile(fset *token.FileSet, file *ast.File) error {
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if !b.importAllowed(path) {
			return fmt.Errorf("%w: %s at %s", ErrImportNotAllowed, path, fset.Position(imp.Pos()))
		}
	}

	var found error
	ast.Inspect(file, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.GoStmt:
			found = fmt.Errorf("%w: go statement at %s", ErrRestricted, fset.Position(n.Pos()))
		case *ast.SelectStmt:
			found = fmt.Errorf("%w: select statement at %s", ErrRestricted, fset.Position(n.Pos()))
		case *ast.CallExpr:
			if ident, ok := n.Fun.(*ast.Ident); ok && ident.Name == "recover" {
				found = fmt.Errorf("%w: recover at %s", ErrRestricted, fset.Position(n.Pos()))
			}
		}
		return true
	})
	if found != nil {
		return found
	}

	for _, group := range file.Comments {
		for _, c := range group.List {
			text := strings.TrimPrefix(c.Text, "//")
			for _, d := range restrictedDirectives {
				if strings.HasPrefix(text, d) {
					return fmt.Errorf("%w: //%s directive at %s", ErrRestricted, d, fset.Position(c.Pos()))
				}
			}
		}
	}
	return nil
}

func (b *Builder) importAllowed(path string) bool {
	for _, allowed := range b.cfg.AllowedImports {
		if path == allowed || strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}

// Build validates the main package in dir and compiles it with TinyGo.
func (b *Builder) Build(ctx context.Context, dir string) ([]byte, error) {
	if err := b.Validate(dir); err != nil {
		return nil, err
	}
	tinygo, err := exec.LookPath(b.cfg.TinyGo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrToolchainMissing, err)
	}

	tmpDir, err := os.MkdirTemp("", "guestenv-build-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	out := filepath.Join(tmpDir, "contract.wasm")

	args := []string{"build", "-o", out, "-target", b.cfg.Target, "-no-debug"}
	if b.cfg.Opt != "" {
		args = append(args, "-opt", b.cfg.Opt)
	}
	args = append(args, ".")

	cmd := exec.CommandContext(ctx, tinygo, args...)
	cmd.Dir = dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	logger.Debug("building contract", zap.String("dir", dir), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tinygo build failed: %w\nOutput: %s", err, output.String())
	}

	code, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled wasm: %w", err)
	}
	logger.Info("contract built", zap.String("dir", dir), zap.Int("size", len(code)))
	return code, nil
}
