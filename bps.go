/*
Package bps is a library for rendering retro-style graphics from indexed
color tile sheets.

Sheets are imported into a bank backed by an sqlite database, sliced into
tiles, and drawn onto the layers of a framebuffer.FrameBuffer which composes
them into one frame.
*/
package bps

import (
	"fmt"
	"sync"

	"github.com/bodgit/bps/sheet"
	"go.uber.org/zap"
)

// BPS ties a sheet bank to a cache of decoded sheets. It is safe for
// concurrent use. Cached sheets share their tiles between callers, so Draw
// calls are serialized and tiles taken from a sheet returned by Sheet must
// not be blitted while a Draw is running.
type BPS struct {
	bank   *Bank
	logger *zap.Logger

	mu     sync.Mutex
	sheets map[string]*sheet.Sheet

	// Held while resolving and blitting shared tiles
	drawMu sync.Mutex
}

// New opens the bank in file. A nil logger discards everything.
func New(file string, logger *zap.Logger) (*BPS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bank, err := NewBank(file)
	if err != nil {
		return nil, err
	}

	return &BPS{
		bank:   bank,
		logger: logger,
		sheets: make(map[string]*sheet.Sheet),
	}, nil
}

// Close closes the underlying bank.
func (b *BPS) Close() error {
	return b.bank.Close()
}

// Names returns the names of all sheets in the bank.
func (b *BPS) Names() ([]string, error) {
	return b.bank.Names()
}

// Add imports a single image file under name.
func (b *BPS) Add(name, file string, opts ...sheet.Option) error {
	if err := b.bank.AddFile(name, file, opts...); err != nil {
		return fmt.Errorf("bps: %s: %w", file, err)
	}

	b.mu.Lock()
	delete(b.sheets, name)
	b.mu.Unlock()

	b.logger.Debug("added sheet", zap.String("name", name), zap.String("file", file))

	return nil
}

// Delete removes the named sheet from the bank and the cache.
func (b *BPS) Delete(name string) error {
	b.mu.Lock()
	delete(b.sheets, name)
	b.mu.Unlock()

	return b.bank.Delete(name)
}

// Sheet returns the named sheet, loading it from the bank on first use.
// Subsequent calls return the same *sheet.Sheet until Unset is called.
func (b *BPS) Sheet(name string) (*sheet.Sheet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sheets[name]; ok {
		return s, nil
	}

	s, err := b.bank.Find(name)
	if err != nil {
		return nil, err
	}
	b.sheets[name] = s

	b.logger.Debug("loaded sheet",
		zap.String("name", name),
		zap.Int("width", s.Size().X),
		zap.Int("height", s.Size().Y),
		zap.Int("tiles", s.Len()))

	return s, nil
}

// Unset drops the named sheet from the cache.
func (b *BPS) Unset(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sheets[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotLoaded, name)
	}
	delete(b.sheets, name)

	return nil
}

// Loaded returns the number of cached sheets.
func (b *BPS) Loaded() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sheets)
}
