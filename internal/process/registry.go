package process

import (
	"errors"
	"fmt"
	"sort"

	"priceops/gateway/internal/domain"
)

var ErrUnknownProcess = errors.New("unknown process")

// definitions is the compiled-in chain registry. Step order matters: later
// steps assume earlier ones completed (pricing sync reads what the parse
// steps populated), which is why chains are fail-fast.
var definitions = map[string]domain.ProcessDefinition{
	"Sale": {
		Name:    "Sale",
		Parsers: []string{"PackageIdSaleInfo", "BundleIdSaleInfo"},
		SyncSteps: []domain.SyncStep{
			{Method: "set_final_price"},
			{Method: "set_delivery_region"},
			{Method: "set_shop_price", Args: []string{"main"}},
		},
	},
	"CurrencyInfo": {
		Name:    "CurrencyInfo",
		Parsers: []string{"CurrencyInfo"},
		SyncSteps: []domain.SyncStep{
			{Method: "set_delivery_region"},
			{Method: "set_shop_price", Args: []string{"main"}},
		},
	},
	"PackageIdPrice": {
		Name:    "PackageIdPrice",
		Parsers: []string{"PackageIdPrice"},
		SyncSteps: []domain.SyncStep{
			{Method: "set_final_price"},
			{Method: "set_delivery_region"},
			{Method: "set_shop_price", Args: []string{"main"}},
		},
	},
}

// Get resolves a process name. Unknown names are a data-validation error for
// the caller to report, not a code path.
func Get(name string) (domain.ProcessDefinition, error) {
	def, ok := definitions[name]
	if !ok {
		return domain.ProcessDefinition{}, fmt.Errorf("%w: %q", ErrUnknownProcess, name)
	}
	return def, nil
}

func Known(name string) bool {
	_, ok := definitions[name]
	return ok
}

func Names() []string {
	out := make([]string, 0, len(definitions))
	for name := range definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParserNames lists every parser referenced by any chain, for the parser
// listing endpoint.
func ParserNames() []string {
	seen := map[string]struct{}{}
	for _, def := range definitions {
		for _, parser := range def.Parsers {
			seen[parser] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for parser := range seen {
		out = append(out, parser)
	}
	sort.Strings(out)
	return out
}

func KnownParser(name string) bool {
	for _, def := range definitions {
		for _, parser := range def.Parsers {
			if parser == name {
				return true
			}
		}
	}
	return false
}
