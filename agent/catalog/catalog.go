package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

//go:embed definitions/*.yaml
var definitionsFS embed.FS

// Catalog is the static agent registry. It is built once at process start
// and read-only afterwards.
type Catalog struct {
	defs map[string]*AgentDefinition
}

// Load builds the catalog from the embedded definition files.
func Load() (*Catalog, error) {
	paths, err := fs.Glob(definitionsFS, "definitions/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob agent definitions: %w", err)
	}

	defs := make([]*AgentDefinition, 0, len(paths))
	for _, path := range paths {
		raw, err := definitionsFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read agent definition %s: %w", path, err)
		}
		var def AgentDefinition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse agent definition %s: %w", path, err)
		}
		defs = append(defs, &def)
	}

	return New(defs...)
}

// New builds a catalog from explicit definitions, validating each once.
func New(defs ...*AgentDefinition) (*Catalog, error) {
	byID := make(map[string]*AgentDefinition, len(defs))
	for _, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("%w: nil agent definition", contractx.ErrValidation)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := byID[def.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate agent id %s", contractx.ErrValidation, def.ID)
		}
		byID[def.ID] = def
	}
	return &Catalog{defs: byID}, nil
}

// DefinitionFor is a pure lookup. An unregistered id is a client-input
// error, not a system fault.
func (c *Catalog) DefinitionFor(agentID string) (*AgentDefinition, error) {
	def, ok := c.defs[strings.TrimSpace(agentID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, agentID)
	}
	return def, nil
}

// AgentIDs lists the registered agents in stable order.
func (c *Catalog) AgentIDs() []string {
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
