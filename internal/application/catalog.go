package application

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"ethtracker/internal/domain"

	"gopkg.in/yaml.v2"
)

//go:embed assets/catalog.yaml
var defaultCatalogYAML []byte

type ContractInfo struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type catalogFile struct {
	Contracts map[string]ContractInfo `yaml:"contracts"`
	Methods   map[string]string       `yaml:"methods"`
}

// Catalog holds the known-contract directory and the method-signature table.
// It is read-only once built.
type Catalog struct {
	contracts map[string]ContractInfo
	methods   map[string]string
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() *Catalog {
	catalog, err := parseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return catalog
}

// LoadCatalog layers the YAML file at path over the default catalog. An empty
// path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if strings.TrimSpace(path) == "" {
		return catalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog file: %v", domain.ErrConfiguration, err)
	}
	extra, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}
	return catalog.Merge(extra), nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", domain.ErrConfiguration, err)
	}
	catalog := &Catalog{
		contracts: make(map[string]ContractInfo, len(file.Contracts)),
		methods:   make(map[string]string, len(file.Methods)),
	}
	for address, info := range file.Contracts {
		catalog.contracts[strings.ToLower(strings.TrimSpace(address))] = info
	}
	for selector, signature := range file.Methods {
		catalog.methods[strings.ToLower(strings.TrimSpace(selector))] = signature
	}
	return catalog, nil
}

// Merge returns a new catalog with the entries of other taking precedence.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := &Catalog{
		contracts: make(map[string]ContractInfo, len(c.contracts)+len(other.contracts)),
		methods:   make(map[string]string, len(c.methods)+len(other.methods)),
	}
	for _, src := range []*Catalog{c, other} {
		for address, info := range src.contracts {
			merged.contracts[address] = info
		}
		for selector, signature := range src.methods {
			merged.methods[selector] = signature
		}
	}
	return merged
}

func (c *Catalog) Contract(address string) (ContractInfo, bool) {
	info, ok := c.contracts[strings.ToLower(address)]
	return info, ok
}

func (c *Catalog) Method(selector string) (string, bool) {
	signature, ok := c.methods[strings.ToLower(selector)]
	return signature, ok
}

func (c *Catalog) Len() (contracts, methods int) {
	return len(c.contracts), len(c.methods)
}
