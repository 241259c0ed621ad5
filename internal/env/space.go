package env

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Space is the process-wide environment a table can be installed into.
// Implementations are not safe for concurrent use.
type Space interface {
	// Current returns the active table. Callers compare it by identity.
	Current() *Table
	// Install makes t the active table.
	Install(t *Table) error
	// Clear installs an empty table.
	Clear()
}

// MemorySpace keeps the active table in memory. It backs tests and dry runs.
type MemorySpace struct {
	current *Table
}

// NewMemorySpace starts with initial as the active table, or an empty one.
func NewMemorySpace(initial *Table) *MemorySpace {
	if initial == nil {
		initial = NewTable(0)
	}
	return &MemorySpace{current: initial}
}

func (m *MemorySpace) Current() *Table { return m.current }

func (m *MemorySpace) Install(t *Table) error {
	m.current = t
	return nil
}

func (m *MemorySpace) Clear() { m.current = NewTable(0) }

// ProcessSpace is the real environment of this process.
//
// The OS has no notion of table identity, so Current reports the table this
// space installed only while the live environment still matches it exactly.
// Once anything else sets or unsets a variable, Current hands back a foreign
// snapshot instead.
type ProcessSpace struct {
	installed *Table
}

func NewProcessSpace() *ProcessSpace { return &ProcessSpace{} }

func (p *ProcessSpace) Current() *Table {
	live := os.Environ()
	if p.installed != nil && !p.installed.Released() && sameEnviron(live, p.installed.Environ()) {
		return p.installed
	}
	return FromEnviron(live)
}

// Install replaces the whole process environment with t. If the OS rejects a
// variable the environment is left empty.
func (p *ProcessSpace) Install(t *Table) error {
	os.Clearenv()
	p.installed = nil
	for _, kv := range t.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if err := os.Setenv(name, value); err != nil {
			os.Clearenv()
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	p.installed = t
	return nil
}

func (p *ProcessSpace) Clear() {
	os.Clearenv()
	p.installed = nil
}

func sameEnviron(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
