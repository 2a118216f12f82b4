// Package universe manages the scannable symbol list: a YAML file of
// sector-grouped tickers with an exclusion list and per-scan selection.
package universe

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Entry is one universe member.
type Entry struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Sector string `yaml:"sector,omitempty" json:"sector,omitempty"`
}

// File mirrors config/universe.yaml.
type File struct {
	Universe struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		LastUpdated string `yaml:"last_updated"`
		Benchmark   string `yaml:"benchmark"`
	} `yaml:"universe"`

	Sectors map[string][]Entry `yaml:"sectors"`

	Exclusions []string `yaml:"exclusions"`
}

// Manager holds a loaded universe and answers symbol queries.
type Manager struct {
	file     File
	excluded map[string]bool
}

// Load reads and validates a universe file.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	return Parse(data)
}

// Parse builds a manager from raw YAML.
func Parse(data []byte) (*Manager, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse universe YAML: %w", err)
	}

	m := &Manager{file: file, excluded: make(map[string]bool)}
	for _, symbol := range file.Exclusions {
		m.excluded[normalize(symbol)] = true
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) validate() error {
	seen := make(map[string]string)
	for sector, entries := range m.file.Sectors {
		for _, entry := range entries {
			symbol := normalize(entry.Symbol)
			if symbol == "" {
				return fmt.Errorf("sector %s contains an entry without a symbol", sector)
			}
			if prev, dup := seen[symbol]; dup && prev != sector {
				return fmt.Errorf("symbol %s appears in both %s and %s", symbol, prev, sector)
			}
			seen[symbol] = sector
		}
	}
	if len(seen) == 0 {
		return fmt.Errorf("universe %q contains no symbols", m.file.Universe.Name)
	}
	return nil
}

// Name returns the universe's display name.
func (m *Manager) Name() string { return m.file.Universe.Name }

// Benchmark returns the index symbol used for relative strength, empty
// when the file does not name one.
func (m *Manager) Benchmark() string { return m.file.Universe.Benchmark }

// Symbols returns every non-excluded symbol, deduplicated and sorted.
func (m *Manager) Symbols() []string {
	set := make(map[string]bool)
	for _, entries := range m.file.Sectors {
		for _, entry := range entries {
			symbol := normalize(entry.Symbol)
			if !m.excluded[symbol] {
				set[symbol] = true
			}
		}
	}
	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// SectorSymbols returns the non-excluded symbols of one sector, sorted.
// Unknown sectors yield an empty slice.
func (m *Manager) SectorSymbols(sector string) []string {
	var symbols []string
	for _, entry := range m.file.Sectors[sector] {
		symbol := normalize(entry.Symbol)
		if !m.excluded[symbol] {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// Sectors returns the sector names, sorted.
func (m *Manager) Sectors() []string {
	sectors := make([]string, 0, len(m.file.Sectors))
	for sector := range m.file.Sectors {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)
	return sectors
}

// Contains reports whether a symbol is in the universe and not excluded.
func (m *Manager) Contains(symbol string) bool {
	symbol = normalize(symbol)
	if m.excluded[symbol] {
		return false
	}
	for _, entries := range m.file.Sectors {
		for _, entry := range entries {
			if normalize(entry.Symbol) == symbol {
				return true
			}
		}
	}
	return false
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
