package positions

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mtlprog/positions/internal/domain"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

// RegistryFile is the YAML shape of a protocol registry.
type RegistryFile struct {
	Aliases      map[string]string `yaml:"aliases"`
	Concentrated struct {
		Versions  []string `yaml:"versions"`
		Versioned []string `yaml:"versioned"`
		Always    []string `yaml:"always"`
	} `yaml:"concentrated"`
	TokenPreferred []string `yaml:"tokenPreferred"`
	Unsupported    []string `yaml:"unsupported"`
}

// Registry holds protocol knowledge the transform needs: aliases, concentrated-liquidity
// protocols, token-preferred symbols and unsupported position kinds.
// A Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	aliases               map[string]string
	concentratedVersions  map[string]bool
	concentratedVersioned map[string]bool
	concentratedAlways    map[string]bool
	tokenPreferred        map[string]bool
	unsupported           map[domain.PositionName]bool
}

// DefaultRegistry returns the registry embedded in the binary.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRegistryYAML)
	if err != nil {
		panic(fmt.Sprintf("positions: embedded registry is invalid: %v", err))
	}
	return r
}

// LoadRegistry reads a registry from a YAML file. An empty path yields the default registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// ParseRegistry builds a Registry from YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var f RegistryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing registry YAML: %w", err)
	}
	return NewRegistry(f), nil
}

// NewRegistry normalizes a RegistryFile into lookup sets.
func NewRegistry(f RegistryFile) *Registry {
	lower := func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) }
	toSet := func(items []string) map[string]bool {
		return lo.SliceToMap(lo.Map(items, lower), func(s string) (string, bool) { return s, true })
	}

	aliases := make(map[string]string, len(f.Aliases))
	for from, to := range f.Aliases {
		aliases[normalizeProtocolKey(from)] = normalizeProtocolKey(to)
	}

	return &Registry{
		aliases:               aliases,
		concentratedVersions:  toSet(f.Concentrated.Versions),
		concentratedVersioned: toSet(f.Concentrated.Versioned),
		concentratedAlways:    toSet(f.Concentrated.Always),
		tokenPreferred:        toSet(f.TokenPreferred),
		unsupported: lo.SliceToMap(f.Unsupported, func(s string) (domain.PositionName, bool) {
			return domain.ParsePositionName(s), true
		}),
	}
}

// IsConcentrated reports whether pools of the given canonical protocol and version use
// concentrated liquidity.
func (r *Registry) IsConcentrated(protocolID, version string) bool {
	if r.concentratedAlways[protocolID] {
		return true
	}
	return r.concentratedVersions[strings.ToLower(strings.TrimSpace(version))] && r.concentratedVersioned[protocolID]
}

// IsTokenPreferred reports whether a token symbol is displayed as a wallet token instead
// of a protocol position.
func (r *Registry) IsTokenPreferred(symbol string) bool {
	return r.tokenPreferred[strings.ToLower(strings.TrimSpace(symbol))]
}

// IsUnsupported reports whether a position kind is excluded from the portfolio view.
func (r *Registry) IsUnsupported(name domain.PositionName) bool {
	return r.unsupported[name]
}
