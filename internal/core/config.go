// Package core provides the ambient configuration and logging seams shared
// across every subsystem, mirroring the teacher's internal/core package:
// a thin wrapper over go.uber.org/config plus an fx module for each.
package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	uberconfig "go.uber.org/config"
	"go.uber.org/fx"
)

// ConfigModule provides a config.Provider built from the environment
// variables of spec.md §6, rather than the teacher's on-disk meta.yaml plus
// per-environment files: a single deployable proxy has no multi-file
// environment layering need, but every component still reaches its settings
// through the same Config.Get(path).Populate(&v) idiom the teacher uses.
var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

// Env holds the raw environment-variable inputs of spec.md §6, after
// defaulting. It exists only to build the in-memory YAML document consumed
// by go.uber.org/config; callers should read settings back out through the
// config.Provider, not this struct.
type Env struct {
	Port          int
	WorkspaceRoot string
	GoplsPath     string
	TSServerPath  string
	LogLevel      string
	CORSOrigin    string
}

// LoadEnv reads spec.md §6's configuration table from the process
// environment, applying the documented defaults.
func LoadEnv() Env {
	return Env{
		Port:          envInt("PORT", 3001),
		WorkspaceRoot: envString("WORKSPACE_ROOT", "/tmp/online-editor"),
		GoplsPath:     envString("GOPLS_PATH", "gopls"),
		TSServerPath:  envString("TS_SERVER_PATH", "typescript-language-server"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		CORSOrigin:    envString("CORS_ORIGIN", "http://localhost:3000"),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// NewConfig renders Env as an in-memory YAML document and wraps it as a
// go.uber.org/config provider, the same Get/Populate surface the teacher's
// NewConfig exposes, so every downstream package is agnostic to the fact
// that the source is environment variables rather than files on disk.
func NewConfig() (uberconfig.Provider, error) {
	env := LoadEnv()
	doc := renderYAML(env)
	provider, err := uberconfig.NewYAML(uberconfig.Source(strings.NewReader(doc)))
	if err != nil {
		return nil, fmt.Errorf("building config provider from environment: %w", err)
	}
	return provider, nil
}

// renderYAML lays out the configuration tree every package's Get(path)
// calls address: server.*, workspace.*, analyzer.<languageId>.*, logging.*.
func renderYAML(env Env) string {
	var b strings.Builder
	fmt.Fprintf(&b, "server:\n")
	fmt.Fprintf(&b, "  port: %d\n", env.Port)
	fmt.Fprintf(&b, "  wsPath: /lsp\n")
	fmt.Fprintf(&b, "  corsOrigin: %q\n", env.CORSOrigin)
	fmt.Fprintf(&b, "workspace:\n")
	fmt.Fprintf(&b, "  root: %q\n", env.WorkspaceRoot)
	fmt.Fprintf(&b, "analyzer:\n")
	fmt.Fprintf(&b, "  go:\n")
	fmt.Fprintf(&b, "    command: %q\n", env.GoplsPath)
	fmt.Fprintf(&b, "    args: []\n")
	fmt.Fprintf(&b, "  typescript:\n")
	fmt.Fprintf(&b, "    command: %q\n", env.TSServerPath)
	fmt.Fprintf(&b, "    args: [%q]\n", "--stdio")
	fmt.Fprintf(&b, "logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", env.LogLevel)
	fmt.Fprintf(&b, "  development: false\n")
	fmt.Fprintf(&b, "  encoding: json\n")
	return b.String()
}
