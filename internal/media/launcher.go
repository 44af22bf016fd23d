// Package media opens product images in an external viewer.
package media

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/debuglog"
)

// Runner starts a detached process.
type Runner func(name string, args ...string) error

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

type Launcher struct {
	viewers       []string
	defaultOpener string
	registry      *Registry
	run           Runner
	lookPath      func(string) (string, error)
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewRegistry(DefaultUserPath())
	if err != nil {
		debuglog.Warnf("loading viewer definitions: %v", err)
		registry = &Registry{viewers: make(map[string]ViewerDefinition)}
	}
	return newLauncher(cfg.Media, registry, startDetached, exec.LookPath)
}

func newLauncher(cfg config.MediaConfig, registry *Registry, run Runner, lookPath func(string) (string, error)) *Launcher {
	var players config.MediaPlayers
	switch runtime.GOOS {
	case "darwin":
		players = cfg.Darwin
	case "linux":
		players = cfg.Linux
	case "windows":
		players = cfg.Windows
	default:
		players = cfg.Darwin
	}

	l := &Launcher{
		defaultOpener: cfg.DefaultOpener,
		registry:      registry,
		run:           run,
		lookPath:      lookPath,
	}
	if l.defaultOpener == "" {
		l.defaultOpener = "open"
	}
	for _, v := range players.Image {
		if l.available(v) {
			l.viewers = append(l.viewers, v)
		}
	}
	return l
}

func (l *Launcher) available(name string) bool {
	exe := name
	if def, ok := l.registry.Lookup(name); ok && def.Command != "" {
		exe = def.Command
	}
	_, err := l.lookPath(exe)
	return err == nil
}

// Open shows target, an image URL or local file, in the first configured
// viewer that can handle it, falling back to the system opener.
func (l *Launcher) Open(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("nothing to open")
	}
	lower := strings.ToLower(target)
	isURL := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")

	for _, v := range l.viewers {
		exe, args, err := l.registry.Command(v, target, isURL)
		if err != nil {
			continue
		}
		if err := l.run(exe, args...); err != nil {
			debuglog.Warnf("viewer %s failed: %v", v, err)
			continue
		}
		return nil
	}

	exe, args, err := l.registry.Command(l.defaultOpener, target, isURL)
	if err != nil {
		exe, args = l.defaultOpener, []string{target}
	}
	if err := l.run(exe, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.defaultOpener, err)
	}
	return nil
}
