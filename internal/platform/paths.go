// Package platform resolves where blockpush keeps its config file and row database.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName is used when no application name is configured.
const DefaultAppName = "blockpush"

// configFileName is the config file inside the app config dir.
const configFileName = "config.toml"

// Paths holds the resolved locations for one app name.
type Paths struct {
	AppName    string
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options selects the app name and dev-mode suffix.
type Options struct {
	AppName string
	DevMode bool
}

// baseOverride names the env vars that replace the user config/data dirs on one OS.
type baseOverride struct {
	configVar string
	dataVar   string
}

// overridesByOS lists env overrides; macOS keeps the os package defaults.
var overridesByOS = map[string]baseOverride{
	"linux":   {configVar: "XDG_CONFIG_HOME", dataVar: "XDG_DATA_HOME"},
	"windows": {configVar: "APPDATA", dataVar: "LOCALAPPDATA"},
}

// DefaultPaths returns paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the current OS and environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir, err := userDataDir(runtime.GOOS, configDir)
	if err != nil {
		return Paths{}, err
	}

	env := make(map[string]string, 4)
	for _, o := range overridesByOS {
		env[o.configVar] = os.Getenv(o.configVar)
		env[o.dataVar] = os.Getenv(o.dataVar)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, ResolveAppName(opts))
}

// userDataDir picks the per-user data base before env overrides apply.
func userDataDir(goos, configDir string) (string, error) {
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("user home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			return v, nil
		}
	}
	return configDir, nil
}

// ResolveAppName returns the directory name used for config and data paths.
func ResolveAppName(opts Options) string {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}
	return appName
}

// PathsFor builds paths from explicit inputs so every OS can be tested anywhere.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := overridesByOS[goos]; ok {
		if v := env[o.configVar]; v != "" {
			configBase = v
		}
		if v := env[o.dataVar]; v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		AppName:    appName,
		ConfigPath: filepath.Join(configBase, appName, configFileName),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}
