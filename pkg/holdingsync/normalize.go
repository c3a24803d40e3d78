package holdingsync

import "strings"

// VenueRule maps a venue to the quote-provider convention. A symbol matches
// when it ends with Suffix or the export's exchange equals Exchange.
type VenueRule struct {
	Exchange    string
	Suffix      string
	QuotePrefix string
}

// DefaultVenues holds the Canadian listing rule. US venues and anything
// unknown pass through unchanged.
var DefaultVenues = []VenueRule{
	{Exchange: "TSX", Suffix: ".TO", QuotePrefix: "TSE"},
}

// QuoteSymbol derives the venue-qualified lookup key, e.g. ("ABC.TO", "")
// -> "TSE:ABC". It is total: no rule match returns symbol unchanged.
func QuoteSymbol(symbol, exchange string, rules []VenueRule) string {
	exchange = strings.TrimSpace(exchange)
	for _, rule := range rules {
		hasSuffix := hasSuffixFold(symbol, rule.Suffix)
		onVenue := rule.Exchange != "" && strings.EqualFold(exchange, rule.Exchange)
		if !hasSuffix && !onVenue {
			continue
		}
		base := symbol
		if hasSuffix {
			base = symbol[:len(symbol)-len(rule.Suffix)]
		}
		return rule.QuotePrefix + ":" + base
	}
	return symbol
}

func hasSuffixFold(s, suffix string) bool {
	return suffix != "" && len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// Normalizer turns raw export records into holdings.
type Normalizer struct {
	Venues []VenueRule
}

// Normalize parses one record. Records without a symbol return a
// SKIPPED_RECORD error wrapping ErrMissingSymbol.
func (n Normalizer) Normalize(rec RawRecord) (Holding, error) {
	symbol := strings.TrimSpace(rec[FieldSymbol])
	if symbol == "" {
		return Holding{}, WrapError(ErrCodeSkippedRecord, "missing symbol", ErrMissingSymbol)
	}
	venues := n.Venues
	if venues == nil {
		venues = DefaultVenues
	}
	qty := ParseAmount(rec[FieldQuantity])
	book := ParseAmount(rec[FieldBookValue])
	exchange := strings.TrimSpace(rec[FieldExchange])
	return Holding{
		Symbol:         symbol,
		Name:           strings.TrimSpace(rec[FieldName]),
		Account:        strings.TrimSpace(rec[FieldAccount]),
		Quantity:       qty,
		BookValue:      book,
		AvgPrice:       AveragePrice(book, qty),
		UnrealizedGain: strings.TrimSpace(rec[FieldUnrealizedGain]),
		Exchange:       exchange,
		QuoteSymbol:    QuoteSymbol(symbol, exchange, venues),
	}, nil
}

// SkippedRecord is a record NormalizeAll left out, by its index in the
// input.
type SkippedRecord struct {
	Index int
	Err   error
}

// NormalizeAll keeps valid holdings in input order and reports the records
// it skipped.
func (n Normalizer) NormalizeAll(records []RawRecord) ([]Holding, []SkippedRecord) {
	holdings := make([]Holding, 0, len(records))
	var skipped []SkippedRecord
	for i, rec := range records {
		h, err := n.Normalize(rec)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, skipped
}
