package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Row      RowConfig      `toml:"row"`
	Drag     DragConfig     `toml:"drag"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds runtime log sink settings.
type LoggingConfig struct {
	Level   string               `toml:"level"`
	DevFile LoggingDevFileConfig `toml:"dev_file"`
}

// LoggingDevFileConfig controls the workspace-local dev log file.
type LoggingDevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type RowConfig struct {
	ID     string        `toml:"id"`
	Name   string        `toml:"name"`
	Blocks []BlockConfig `toml:"blocks"`
}

type BlockConfig struct {
	ID    string  `toml:"id"`
	Label string  `toml:"label"`
	Width float64 `toml:"width"`
}

type DragConfig struct {
	PointsPerCell float64 `toml:"points_per_cell"`
	PersistOrder  bool    `toml:"persist_order"`
	RecordHistory bool    `toml:"record_history"`
}

type UIConfig struct {
	BlockHeight int  `toml:"block_height"`
	ShowOffsets bool `toml:"show_offsets"`
}

type KeyConfig struct {
	Cancel     string `toml:"cancel"`
	Reset      string `toml:"reset"`
	CopyLayout string `toml:"copy_layout"`
	History    string `toml:"history"`
}

func defaultBlocks() []BlockConfig {
	return []BlockConfig{
		{ID: "a", Label: "A", Width: 12},
		{ID: "b", Label: "B", Width: 8},
		{ID: "c", Label: "C", Width: 16},
		{ID: "d", Label: "D", Width: 10},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: LoggingDevFileConfig{
				Enabled: true,
				Dir:     ".blockpush/log",
			},
		},
		Row: RowConfig{
			ID:     "default",
			Name:   "Blocks",
			Blocks: defaultBlocks(),
		},
		Drag: DragConfig{
			PointsPerCell: 1,
			PersistOrder:  true,
			RecordHistory: true,
		},
		UI: UIConfig{
			BlockHeight: 3,
			ShowOffsets: true,
		},
		Keys: KeyConfig{
			Cancel:     "esc",
			Reset:      "R",
			CopyLayout: "y",
			History:    "g",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// A configured block list replaces the default one instead of merging by index.
	cfg.Row.Blocks = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Row.Blocks) == 0 {
		cfg.Row.Blocks = append([]BlockConfig(nil), defaults.Row.Blocks...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if len(c.Row.Blocks) == 0 {
		return errors.New("row.blocks must include at least one block")
	}
	seen := map[string]struct{}{}
	for idx, block := range c.Row.Blocks {
		id := strings.TrimSpace(block.ID)
		if id == "" {
			return fmt.Errorf("row.blocks[%d].id is required", idx)
		}
		if block.Width <= 0 {
			return fmt.Errorf("row.blocks[%d].width must be > 0", idx)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("row.blocks[%d].id is duplicated: %s", idx, id)
		}
		seen[id] = struct{}{}
	}

	if c.Drag.PointsPerCell <= 0 {
		return fmt.Errorf("drag.points_per_cell must be > 0, got %v", c.Drag.PointsPerCell)
	}
	if c.UI.BlockHeight < 3 {
		return fmt.Errorf("ui.block_height must be >= 3, got %d", c.UI.BlockHeight)
	}

	keys := map[string]string{
		"keys.cancel":      c.Keys.Cancel,
		"keys.reset":       c.Keys.Reset,
		"keys.copy_layout": c.Keys.CopyLayout,
		"keys.history":     c.Keys.History,
	}
	for name, value := range keys {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	return nil
}

// LogLevel returns the normalized logging level.
func (c Config) LogLevel() string {
	return strings.TrimSpace(strings.ToLower(c.Logging.Level))
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
