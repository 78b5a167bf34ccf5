package schema

// Delimiter is one of the four candidates the header prober scores
// against each other (spec.md §4.2).
type Delimiter byte

const (
	DelimiterTab       Delimiter = '\t'
	DelimiterSemicolon Delimiter = ';'
	DelimiterComma     Delimiter = ','
	DelimiterPipe      Delimiter = '|'
)

// CandidateDelimiters lists the four candidates in the fixed tie-break
// order spec.md §4.2 requires: whichever has the highest occurrence
// count wins, ties broken by this order.
var CandidateDelimiters = []Delimiter{DelimiterTab, DelimiterSemicolon, DelimiterComma, DelimiterPipe}

func (d Delimiter) String() string { return string(rune(d)) }

// MaterialMeta is the per-run record written once at end of the header
// probe (spec.md §3, §4.2).
type MaterialMeta struct {
	Delimiter Delimiter `json:"delimiter"`

	ColMatnr int `json:"colMatnr"`
	ColMPN   int `json:"colMpn"`
	ColEAN   int `json:"colEan"`
	ColDesc  int `json:"colDesc"`

	HeaderEndOffset int64 `json:"headerEndOffset"`
	TotalBytes      int64 `json:"totalBytes"`

	SourceBucket string `json:"sourceBucket"`
	SourcePath   string `json:"sourcePath"`

	// RangeSupported is false when the header probe detected the
	// origin ignores byte-range requests (spec.md §4.2's
	// range-support probe); the chunker then falls back to
	// whole-object fetches bounded the same way.
	RangeSupported bool `json:"rangeSupported"`
}

// StockIndex maps material-number to non-negative quantity.
type StockIndex map[string]int64

// PriceTriple is the ordered (list_price, best_price, surcharge) triple
// from spec.md §3. All three are non-negative rationals represented as
// float64 cents-free decimal values (the feeds themselves carry at
// most two fractional digits).
type PriceTriple struct {
	ListPrice float64 `json:"listPrice"`
	BestPrice float64 `json:"bestPrice"`
	Surcharge float64 `json:"surcharge"`
}

// PriceIndex maps material-number to its PriceTriple.
type PriceIndex map[string]PriceTriple

// ProductRow is one surviving, merged row in the canonical product
// table (spec.md §3), in the fixed column order.
type ProductRow struct {
	Matnr       string
	MPN         string
	EAN         string
	Description string
	Stock       int64
	ListPrice   float64
	BestPrice   float64
	Surcharge   float64
}

// ProductTableHeader is the fixed TSV header row (spec.md §6).
const ProductTableHeader = "Matnr\tMPN\tEAN\tDesc\tStock\tLP\tCBP\tSur"
