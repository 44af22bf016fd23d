package media

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed viewers.toml
var viewersTOML []byte

// ViewerDefinition describes how to invoke an image viewer.
type ViewerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	// Command overrides the executable; the viewer name is used otherwise.
	Command     string   `toml:"command,omitempty"`
	Args        []string `toml:"args,omitempty"`
	AcceptsURLs bool     `toml:"accepts_urls"`
}

type viewersFile struct {
	Viewers map[string]ViewerDefinition `toml:"viewers"`
}

// Registry holds the known viewer definitions.
type Registry struct {
	viewers map[string]ViewerDefinition
}

// NewRegistry loads the built-in definitions and merges any user file
// found at the given paths. Missing user files are ignored.
func NewRegistry(userPaths ...string) (*Registry, error) {
	var builtin viewersFile
	if err := toml.Unmarshal(viewersTOML, &builtin); err != nil {
		return nil, fmt.Errorf("parsing viewers.toml: %w", err)
	}
	r := &Registry{viewers: builtin.Viewers}
	if r.viewers == nil {
		r.viewers = make(map[string]ViewerDefinition)
	}

	for _, path := range userPaths {
		if err := r.merge(path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultUserPath is ~/.config/vsearch/viewers.toml.
func DefaultUserPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vsearch", "viewers.toml")
}

func (r *Registry) merge(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var user viewersFile
	if err := toml.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, def := range user.Viewers {
		r.viewers[name] = def
	}
	return nil
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (ViewerDefinition, bool) {
	def, ok := r.viewers[name]
	return def, ok
}

// Command builds the executable and arguments for opening target with the
// named viewer. Unknown viewers are invoked with target as sole argument.
func (r *Registry) Command(name, target string, isURL bool) (string, []string, error) {
	def, ok := r.viewers[name]
	if !ok {
		return name, []string{target}, nil
	}
	if len(def.Platforms) > 0 && !slices.Contains(def.Platforms, runtime.GOOS) {
		return "", nil, fmt.Errorf("%s not supported on %s", name, runtime.GOOS)
	}
	if isURL && !def.AcceptsURLs {
		return "", nil, fmt.Errorf("%s cannot open URLs", name)
	}

	exe := def.Command
	if exe == "" {
		exe = name
	}
	args := append(slices.Clone(def.Args), target)
	return exe, args, nil
}
