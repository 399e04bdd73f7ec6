package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	toggleHelp  key.Binding
	cancelDrag  key.Binding
	resetOrder  key.Binding
	copyLayout  key.Binding
	history     key.Binding
	closeDialog key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		cancelDrag:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		resetOrder:  key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "reset order")),
		copyLayout:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy layout")),
		history:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "swap history")),
		closeDialog: key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "close")),
	}
}

// applyConfig rebinds configurable actions.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.cancelDrag, cfg.Cancel, "esc", "cancel drag")
	configureBinding(&k.resetOrder, cfg.Reset, "R", "reset order")
	configureBinding(&k.copyLayout, cfg.CopyLayout, "y", "copy layout")
	configureBinding(&k.history, cfg.History, "g", "swap history")
}

// configureBinding replaces a binding's keys and help from a configured value.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys converts one configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.cancelDrag, k.resetOrder, k.copyLayout, k.history, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.cancelDrag, k.resetOrder},
		{k.copyLayout, k.history},
		{k.toggleHelp, k.quit},
	}
}
