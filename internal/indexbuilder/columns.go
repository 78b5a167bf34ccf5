package indexbuilder

import "strings"

// Canonical column names the header probes resolve against.
const (
	ColMatnr       = "matnr"
	ColMPN         = "mpn"
	ColEAN         = "ean"
	ColDescription = "description"
	ColStock       = "stock"
	ColListPrice   = "listprice"
	ColBestPrice   = "bestprice"
	ColSurcharge   = "surcharge"
	ColLocationID  = "locationid"
)

// aliases lists, per canonical column name, the case-folded header
// spellings that should resolve to it. Matching tries an exact
// normalized match first, then substring containment.
var aliases = map[string][]string{
	ColMatnr:       {"matnr", "material_number", "materialnumber", "material", "matnum", "artnr"},
	ColMPN:         {"mpn", "manufacturerpartnumber", "manufacturer_part_number", "partnumber"},
	ColEAN:         {"ean", "ean13", "gtin", "barcode"},
	ColDescription: {"description", "desc", "productdescription", "bezeichnung"},
	ColStock:       {"stock", "quantity", "qty", "bestand"},
	ColListPrice:   {"listprice", "list_price", "uvp", "rrp"},
	ColBestPrice:   {"bestprice", "best_price", "price", "nettoprice"},
	ColSurcharge:   {"surcharge", "zuschlag", "fee"},
	ColLocationID:  {"locationid", "location_id", "location", "werk"},
}

// normalize lower-cases, trims, and strips spaces and hyphens for
// case-folded alias comparison. Underscores are kept.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// ResolveColumn finds the index of canonical among header, trying an
// exact normalized alias match first, then substring containment. ok
// is false if no header cell matches.
func ResolveColumn(header []string, canonical string) (idx int, ok bool) {
	candidates := aliases[canonical]

	normalizedHeader := make([]string, len(header))
	for i, h := range header {
		normalizedHeader[i] = normalize(h)
	}

	for i, h := range normalizedHeader {
		for _, alias := range candidates {
			if h == alias {
				return i, true
			}
		}
	}

	for i, h := range normalizedHeader {
		for _, alias := range candidates {
			if strings.Contains(h, alias) {
				return i, true
			}
		}
	}

	return -1, false
}
