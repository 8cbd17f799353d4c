package workspace

import (
	"fmt"

	"go.uber.org/config"
	"go.uber.org/fx"

	"github.com/opencanvas/lsp-proxy/internal/fs"
)

// Module provides a *Store rooted at the "workspace.root" config value, the
// same Get(path).Populate(&v) seam every other package reads its settings
// through.
var Module = fx.Provide(NewStore)

// workspaceConfig mirrors the "workspace" section core.NewConfig renders.
type workspaceConfig struct {
	Root string `yaml:"root"`
}

// Params is the Fx input for NewStore.
type Params struct {
	fx.In

	FS     fs.FS
	Config config.Provider
}

// NewStore returns a Store rooted at the configured workspace root.
func NewStore(p Params) (*Store, error) {
	var cfg workspaceConfig
	if err := p.Config.Get("workspace").Populate(&cfg); err != nil {
		return nil, fmt.Errorf("loading workspace config: %w", err)
	}
	return New(p.FS, cfg.Root), nil
}
