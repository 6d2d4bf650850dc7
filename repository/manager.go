// Package repository keeps uploaded contract code on disk, one directory
// per code hash holding the wasm blob and its metadata.
package repository

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostsim"
	"go.uber.org/zap"
)

const (
	codeFile     = "code.wasm"
	metadataFile = "metadata.json"
)

var (
	// ErrCodeExists is returned when registering code that is already stored.
	ErrCodeExists = errors.New("code already registered")
	// ErrCodeNotFound is returned for unknown code hashes.
	ErrCodeNotFound = errors.New("code not found")
	// ErrHashMismatch is returned when stored code no longer matches its hash.
	ErrHashMismatch = errors.New("stored code does not match its hash")
)

var logger = zap.NewNop()

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Manager stores contract code below a root directory.
type Manager struct {
	rootDir string
}

// Code is stored contract code.
type Code struct {
	Hash       core.Hash
	Name       string
	Wasm       []byte
	UploadTime time.Time
}

// Metadata is what metadata.json holds.
type Metadata struct {
	Hash       string    `json:"hash"`
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	UploadTime time.Time `json:"upload_time"`
}

// NewManager creates rootDir if needed.
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		logger.Error("failed to create root directory", zap.String("dir", rootDir), zap.Error(err))
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &Manager{rootDir: rootDir}, nil
}

func (m *Manager) codeDir(hash core.Hash) string {
	return filepath.Join(m.rootDir, hash.String())
}

// RegisterCode stores code under its Blake2x256 hash.
func (m *Manager) RegisterCode(name string, code []byte) (core.Hash, error) {
	hash := hostsim.CodeHashOf(code)
	dir := m.codeDir(hash)
	if _, err := os.Stat(dir); err == nil {
		return hash, fmt.Errorf("%w: %s", ErrCodeExists, hash)
	} else if !os.IsNotExist(err) {
		return hash, fmt.Errorf("failed to check code directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return hash, fmt.Errorf("failed to create code directory: %w", err)
	}

	c := &Code{
		Hash:       hash,
		Name:       name,
		Wasm:       code,
		UploadTime: time.Now().UTC(),
	}
	if err := m.saveCodeFiles(c); err != nil {
		os.RemoveAll(dir)
		return hash, fmt.Errorf("failed to save code files: %w", err)
	}
	logger.Info("code registered", zap.Stringer("code_hash", hash), zap.String("name", name), zap.Int("size", len(code)))
	return hash, nil
}

// HasCode reports whether code is stored under hash.
func (m *Manager) HasCode(hash core.Hash) bool {
	_, err := os.Stat(filepath.Join(m.codeDir(hash), codeFile))
	return err == nil
}

// GetCode loads the code stored under hash and verifies it.
func (m *Manager) GetCode(hash core.Hash) (*Code, error) {
	dir := m.codeDir(hash)
	wasm, err := os.ReadFile(filepath.Join(dir, codeFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrCodeNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	if hostsim.CodeHashOf(wasm) != hash {
		return nil, fmt.Errorf("%w: %s", ErrHashMismatch, hash)
	}
	md, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}
	return &Code{
		Hash:       hash,
		Name:       md.Name,
		Wasm:       wasm,
		UploadTime: md.UploadTime,
	}, nil
}

// List returns the metadata of every stored code, ordered by name.
func (m *Manager) List() ([]Metadata, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	var out []Metadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := hex.DecodeString(e.Name()); err != nil {
			continue
		}
		md, err := readMetadata(filepath.Join(m.rootDir, e.Name()))
		if err != nil {
			logger.Warn("skipping unreadable code directory", zap.String("dir", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

func (m *Manager) saveCodeFiles(c *Code) error {
	dir := m.codeDir(c.Hash)
	if err := os.WriteFile(filepath.Join(dir, codeFile), c.Wasm, 0644); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	md := Metadata{
		Hash:       c.Hash.String(),
		Name:       c.Name,
		Size:       len(c.Wasm),
		UploadTime: c.UploadTime,
	}
	b, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), b, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func readMetadata(dir string) (Metadata, error) {
	var md Metadata
	b, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return md, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(b, &md); err != nil {
		return md, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return md, nil
}
