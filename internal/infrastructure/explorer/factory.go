package explorer

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ethtracker/internal/domain"
)

// Provider names a block explorer backend.
type Provider string

const (
	ProviderEtherscan  Provider = "etherscan"
	ProviderAlchemy    Provider = "alchemy"
	ProviderBlockscout Provider = "blockscout"
	ProviderInfura     Provider = "infura"
)

// ParseProvider accepts a case-insensitive provider name.
func ParseProvider(name string) (Provider, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch provider {
	case ProviderEtherscan, ProviderAlchemy, ProviderBlockscout, ProviderInfura:
		return provider, nil
	case "":
		return ProviderEtherscan, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, name)
	}
}

// Options configures a client. Limiter is shared by every call the client makes.
type Options struct {
	APIKey     string
	BaseURL    string
	ChainID    uint64
	Timeout    time.Duration
	Limiter    Waiter
	HTTPClient *http.Client
}

// NewClient builds the client for provider. Only Etherscan compatible APIs are
// implemented; the other recognised providers report a configuration error.
func NewClient(provider Provider, opts Options) (*EtherscanClient, error) {
	switch provider {
	case ProviderEtherscan:
		return newEtherscanClient(opts)
	case ProviderAlchemy, ProviderBlockscout, ProviderInfura:
		return nil, fmt.Errorf("%w: provider %s is not supported yet", domain.ErrConfiguration, provider)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, provider)
	}
}
