package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/pders01/vsearch/internal/config"
)

// keyMap holds the configurable bindings. It also feeds the help view.
type keyMap struct {
	Submit        key.Binding
	Focus         key.Binding
	Upload        key.Binding
	URL           key.Binding
	Demo          key.Binding
	Browse        key.Binding
	ThresholdUp   key.Binding
	ThresholdDown key.Binding
	CountUp       key.Binding
	CountDown     key.Binding
	History       key.Binding
	Find          key.Binding
	Open          key.Binding
	Delete        key.Binding
	Back          key.Binding
	Help          key.Binding
	Quit          key.Binding
	ForceQuit     key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	mod := cfg.Modifier + "+"
	b := cfg.Bindings
	bind := func(desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], desc))
	}
	return keyMap{
		Submit:        bind("search", "enter"),
		Focus:         bind("switch focus", "tab", "shift+tab"),
		Upload:        bind("upload", mod+b.UploadMode),
		URL:           bind("image url", mod+b.URLMode),
		Demo:          bind("demo images", mod+b.DemoMode),
		Browse:        bind("browse files", mod+b.Browse),
		ThresholdUp:   bind("threshold +", b.ThresholdUp),
		ThresholdDown: bind("threshold -", b.ThresholdDown),
		CountUp:       bind("results +", b.CountUp),
		CountDown:     bind("results -", b.CountDown),
		History:       bind("history", mod+b.History),
		Find:          bind("find seen", mod+b.Find),
		Open:          bind("open image", mod+b.OpenImage),
		Delete:        bind("delete", mod+b.Delete),
		Back:          bind("back", b.Back),
		Help:          bind("help", b.Help),
		Quit:          bind("quit", b.Quit),
		ForceQuit:     bind("quit", "ctrl+c"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Upload, k.URL, k.Demo, k.Browse},
		{k.ThresholdUp, k.ThresholdDown, k.CountUp, k.CountDown},
		{k.Submit, k.Focus, k.Open, k.Delete},
		{k.History, k.Find, k.Back, k.Help, k.Quit},
	}
}
