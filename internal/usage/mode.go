package usage

import (
	"fmt"
	"strings"

	"github.com/sdpower/agentusage/internal/types"
)

// Mode selects which providers a query reads.
type Mode string

const (
	ModeClaude Mode = "claude"
	ModeCodex  Mode = "codex"
	ModeBoth   Mode = "both"
	ModeAuto   Mode = "auto"
)

// ParseMode is case-insensitive. Anything unrecognized selects no provider.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, _, ok := m.providers(); !ok {
		return "", fmt.Errorf("%w: mode %q", types.ErrNoProviderSelected, s)
	}
	return m, nil
}

func (m Mode) providers() (claude, codex, ok bool) {
	switch m {
	case ModeClaude:
		return true, false, true
	case ModeCodex:
		return false, true, true
	case ModeBoth, ModeAuto:
		return true, true, true
	}
	return false, false, false
}
