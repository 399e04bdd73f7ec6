// Package script decodes YAML gesture scripts and replays them headlessly.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evanschultz/blockpush/internal/app"
	"github.com/evanschultz/blockpush/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrNoEvents is returned for scripts without any events.
var ErrNoEvents = errors.New("script has no events")

// Script is a decoded gesture script.
type Script struct {
	Row    *RowSpec    `yaml:"row,omitempty"`
	Events []EventSpec `yaml:"events"`
}

// RowSpec declares an inline row.
type RowSpec struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name,omitempty"`
	Blocks []BlockSpec `yaml:"blocks"`
}

// BlockSpec declares one block of an inline row.
type BlockSpec struct {
	ID    string  `yaml:"id"`
	Label string  `yaml:"label,omitempty"`
	Width float64 `yaml:"width"`
}

// EventSpec is one scripted gesture event.
type EventSpec struct {
	Kind        string  `yaml:"kind"`
	Block       string  `yaml:"block,omitempty"`
	Translation float64 `yaml:"translation,omitempty"`
}

// Load reads and decodes the script at path.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	return Decode(data)
}

// Decode strictly decodes a YAML script. Unknown keys are rejected.
func Decode(data []byte) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Events) == 0 {
		return Script{}, ErrNoEvents
	}
	return s, nil
}

// Definition returns the inline row definition, if the script declares one.
func (s Script) Definition() (app.RowDefinition, bool) {
	if s.Row == nil {
		return app.RowDefinition{}, false
	}
	def := app.RowDefinition{
		ID:     s.Row.ID,
		Name:   s.Row.Name,
		Blocks: make([]domain.BlockInput, 0, len(s.Row.Blocks)),
	}
	for _, b := range s.Row.Blocks {
		def.Blocks = append(def.Blocks, domain.BlockInput{ID: b.ID, Label: b.Label, Width: b.Width})
	}
	return def, true
}

// AppEvents converts scripted events into controller events.
func (s Script) AppEvents() ([]app.Event, error) {
	out := make([]app.Event, 0, len(s.Events))
	for i, spec := range s.Events {
		kind, err := app.ParseEventKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		switch kind {
		case app.EventBegin:
			block := strings.TrimSpace(spec.Block)
			if block == "" {
				return nil, fmt.Errorf("events[%d]: begin requires a block", i)
			}
			out = append(out, app.BeginEvent(block, spec.Translation))
		case app.EventChange:
			out = append(out, app.ChangeEvent(spec.Translation))
		case app.EventEnd:
			out = append(out, app.EndEvent())
		case app.EventCancel:
			out = append(out, app.CancelEvent())
		}
	}
	return out, nil
}
