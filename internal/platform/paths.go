package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName is the directory name under the user's config and data roots.
const DefaultAppName = "mailkan"

const (
	configFile = "config.toml"
	envFile    = ".env"
)

// Paths is where mailkan keeps its settings file, secrets file and sqlite cache.
type Paths struct {
	ConfigPath string
	EnvPath    string
	DataDir    string
	DBPath     string
}

// Options tweaks path resolution. DevMode appends "-dev" so a development
// build never touches the real token and cache database.
type Options struct {
	AppName string
	DevMode bool
}

var (
	errNoBaseDir = errors.New("config or data base dir is empty")
	errNoAppName = errors.New("app name is empty")
)

// rootOverrides names the env vars that relocate the config and data roots.
// Platforms missing from the table use the base dirs as given.
var rootOverrides = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves the release locations.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions reads the running OS and process environment and
// hands them to PathsFor.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}

	configRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	dataRoot, err := userDataRoot(runtime.GOOS, configRoot)
	if err != nil {
		return Paths{}, err
	}

	env := map[string]string{}
	if vars, ok := rootOverrides[runtime.GOOS]; ok {
		env[vars.config] = os.Getenv(vars.config)
		env[vars.data] = os.Getenv(vars.data)
	}
	return PathsFor(runtime.GOOS, env, configRoot, dataRoot, name)
}

// userDataRoot picks the base for the sqlite cache before env overrides apply.
func userDataRoot(goos, configRoot string) (string, error) {
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if local := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); local != "" {
			return local, nil
		}
	}
	return configRoot, nil
}

// PathsFor is the pure half of path resolution: goos and env stand in for
// the process so every platform can be tested from any host.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errNoBaseDir
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errNoAppName
	}

	configRoot, dataRoot := userConfigDir, userDataDir
	if vars, ok := rootOverrides[goos]; ok {
		if v := env[vars.config]; v != "" {
			configRoot = v
		}
		if v := env[vars.data]; v != "" {
			dataRoot = v
		}
	}

	configDir := filepath.Join(configRoot, appName)
	dataDir := filepath.Join(dataRoot, appName)
	return Paths{
		ConfigPath: filepath.Join(configDir, configFile),
		EnvPath:    filepath.Join(configDir, envFile),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}
