package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ClaudeConfigDirEnv lists Claude data directories, comma separated. When any
	// listed directory exists the defaults are ignored.
	ClaudeConfigDirEnv = "CLAUDE_CONFIG_DIR"
	// CodexHomeEnv points at a Codex home whose sessions directory is searched in
	// addition to the default one.
	CodexHomeEnv = "CODEX_HOME"
)

// Environment is the process state path resolution depends on.
type Environment struct {
	Getenv  func(string) string
	HomeDir func() (string, error)
}

func DefaultEnvironment() Environment {
	return Environment{
		Getenv:  os.Getenv,
		HomeDir: os.UserHomeDir,
	}
}

// Resolution is the outcome of resolving a provider's log roots. Missing holds
// candidates that were considered but do not exist; it is diagnostic only.
type Resolution struct {
	Roots   []string
	Missing []string
}

// ResolveClaudeRoots returns the Claude data directories. A set override
// replaces the defaults as long as at least one of its entries exists.
func ResolveClaudeRoots(env Environment) (Resolution, error) {
	var res Resolution

	if override := strings.TrimSpace(env.getenv(ClaudeConfigDirEnv)); override != "" {
		seen := make(map[string]bool)
		for _, segment := range strings.Split(override, ",") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			abs, err := filepath.Abs(segment)
			if err != nil {
				res.Missing = append(res.Missing, segment)
				continue
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			if isDir(abs) {
				res.Roots = append(res.Roots, abs)
			} else {
				res.Missing = append(res.Missing, abs)
			}
		}
		if len(res.Roots) > 0 {
			return res, nil
		}
	}

	home, err := env.homeDir()
	if err != nil {
		return res, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	for _, candidate := range []string{
		filepath.Join(home, ".config", "claude"),
		filepath.Join(home, ".claude"),
	} {
		if isDir(candidate) {
			res.Roots = append(res.Roots, candidate)
		} else {
			res.Missing = append(res.Missing, candidate)
		}
	}

	return res, nil
}

// ResolveCodexRoots returns the Codex session directories. The override is
// added to the default location, never substituted for it.
func ResolveCodexRoots(env Environment) (Resolution, error) {
	var candidates []string

	if codexHome := strings.TrimSpace(env.getenv(CodexHomeEnv)); codexHome != "" {
		abs, err := filepath.Abs(codexHome)
		if err != nil {
			return Resolution{}, fmt.Errorf("invalid %s %q: %w", CodexHomeEnv, codexHome, err)
		}
		candidates = append(candidates, filepath.Join(abs, "sessions"))
	}

	home, err := env.homeDir()
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	candidates = append(candidates, filepath.Join(home, ".codex", "sessions"))

	var res Resolution
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		candidate = filepath.Clean(candidate)
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		if isDir(candidate) {
			res.Roots = append(res.Roots, candidate)
		} else {
			res.Missing = append(res.Missing, candidate)
		}
	}

	return res, nil
}

func (e Environment) getenv(key string) string {
	if e.Getenv == nil {
		return os.Getenv(key)
	}
	return e.Getenv(key)
}

func (e Environment) homeDir() (string, error) {
	if e.HomeDir == nil {
		return os.UserHomeDir()
	}
	return e.HomeDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ClaudeTranscriptDirs narrows each Claude root to its projects directory when
// one exists, leaving settings and todo files out of the scan.
func ClaudeTranscriptDirs(roots []string) []string {
	dirs := make([]string, 0, len(roots))
	for _, root := range roots {
		projects := filepath.Join(root, "projects")
		if isDir(projects) {
			dirs = append(dirs, projects)
		} else {
			dirs = append(dirs, root)
		}
	}
	return dirs
}
