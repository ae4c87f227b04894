package conversion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable maps a crypto ticker to the amount of that crypto one credit buys.
type RateTable map[CryptoType]decimal.Decimal

// DefaultRates is used when no rate configuration is supplied.
var DefaultRates = RateTable{
	BTC:  decimal.RequireFromString("0.0000002"),
	ETH:  decimal.RequireFromString("0.000004"),
	USDT: decimal.RequireFromString("0.01"),
	BNB:  decimal.RequireFromString("0.00003"),
}

// Rate looks up the rate of a ticker.
func (t RateTable) Rate(c CryptoType) (decimal.Decimal, bool) {
	r, ok := t[c]
	return r, ok
}

// Codes returns the supported tickers in lexical order.
func (t RateTable) Codes() []CryptoType {
	codes := make([]CryptoType, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Merge returns a copy of t with every entry of overrides applied on top.
func (t RateTable) Merge(overrides RateTable) RateTable {
	out := make(RateTable, len(t)+len(overrides))
	for c, r := range t {
		out[c] = r
	}
	for c, r := range overrides {
		out[c] = r
	}
	return out
}

// Strings renders the table as ticker -> decimal string, the wire form used by the API and Redis.
func (t RateTable) Strings() map[string]string {
	out := make(map[string]string, len(t))
	for c, r := range t {
		out[string(c)] = r.String()
	}
	return out
}

// ParseRate parses a positive decimal rate.
func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate %q must be positive", s)
	}
	return r, nil
}

// RatesFromStrings builds a table from ticker -> decimal string pairs.
func RatesFromStrings(m map[string]string) (RateTable, error) {
	out := make(RateTable, len(m))
	for k, v := range m {
		code := Normalize(k)
		if code == "" {
			return nil, fmt.Errorf("empty crypto ticker")
		}
		r, err := ParseRate(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		out[code] = r
	}
	return out, nil
}

// ParseRateTable parses "BTC:0.0000002,ETH:0.000004" style configuration.
// An empty string yields DefaultRates.
func ParseRateTable(s string) (RateTable, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRates.Merge(nil), nil
	}
	pairs := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, rate, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid rate entry %q, want TICKER:RATE", part)
		}
		pairs[code] = rate
	}
	return RatesFromStrings(pairs)
}
