package pipeline

import "errors"

// Category is a stable string identifier for one of the recovery
// policies from the error handling design: each category maps to
// exactly one way the orchestrator and checkpoint should react.
type Category string

const (
	// CategoryTransient covers time-budget exhaustion and soft
	// timeouts: the invocation returns in_progress/finalizing and the
	// orchestrator re-invokes. Never written to the checkpoint as an
	// error.
	CategoryTransient Category = "transient"
	// CategoryArtifactMissing covers an index, metadata, feed or chunk
	// artifact that is absent or unreadable. Fatal reports it as fatal,
	// so the orchestrator fails the run on the first occurrence; no
	// checkpoint reset to pending is attempted.
	CategoryArtifactMissing Category = "artifact_missing"
	// CategoryIntegrityViolation covers content-range mismatches,
	// cursor regression, modified headers, styles/freeze-pane/
	// protected-sheet mismatches: always fatal.
	CategoryIntegrityViolation Category = "integrity_violation"
	// CategoryInputMalformed covers missing required columns,
	// undetectable delimiters, absent headers, pathological lines:
	// always fatal.
	CategoryInputMalformed Category = "input_malformed"
	// CategoryConfigInvalid covers fee-config validation failures:
	// always fatal.
	CategoryConfigInvalid Category = "config_invalid"
	// CategoryTemplateInvalid covers template digest/sheet problems:
	// always fatal.
	CategoryTemplateInvalid Category = "template_invalid"
	// CategoryLeaseLost maps to HTTP 409; the orchestrator decides.
	CategoryLeaseLost Category = "lease_lost"
)

// Error is a categorical pipeline error: a stable identifier plus a
// human-readable detail, carrying the category so callers can decide
// the recovery policy without string-matching the message.
type Error struct {
	Category Category
	Ident    string // stable identifier, e.g. "content_range_mismatch"
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Ident
	}
	return e.Ident + ": " + e.Detail
}

// Fatal reports whether this category always terminates the run.
func (e *Error) Fatal() bool {
	switch e.Category {
	case CategoryTransient, CategoryLeaseLost:
		return false
	default:
		return true
	}
}

func newErr(cat Category, ident, detail string) *Error {
	return &Error{Category: cat, Ident: ident, Detail: detail}
}

// Constructors for the named identifiers the spec calls out explicitly.
// Keeping these as functions (vs. bare constants) lets each carry a
// caller-supplied detail string for the diagnostic event.

func ErrContentRangeMismatch(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "content_range_mismatch", detail)
}

func ErrCursorRegression(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "cursor_regression", detail)
}

func ErrHeadersModified(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "headers_modified", detail)
}

func ErrStylesMismatch(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "styles_mismatch", detail)
}

func ErrFreezePaneMismatch(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "freeze_pane_mismatch", detail)
}

func ErrProtectedSheetMismatch(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "protected_sheet_mismatch", detail)
}

func ErrRequiredColumnMissing(detail string) *Error {
	return newErr(CategoryInputMalformed, "required_column_missing", detail)
}

func ErrDelimiterUndetectable(detail string) *Error {
	return newErr(CategoryInputMalformed, "delimiter_undetectable", detail)
}

func ErrHeaderAbsent(detail string) *Error {
	return newErr(CategoryInputMalformed, "header_absent", detail)
}

func ErrPathologicalLine(detail string) *Error {
	return newErr(CategoryInputMalformed, "pathological_line", detail)
}

func ErrPricingConfigInvalid(detail string) *Error {
	return newErr(CategoryConfigInvalid, "pricing_config_invalid", detail)
}

func ErrTemplateDigestMissing(detail string) *Error {
	return newErr(CategoryTemplateInvalid, "template_digest_missing", detail)
}

func ErrTemplateDigestMismatch(detail string) *Error {
	return newErr(CategoryTemplateInvalid, "template_digest_mismatch", detail)
}

func ErrTemplateEmpty(detail string) *Error {
	return newErr(CategoryTemplateInvalid, "template_empty", detail)
}

func ErrRequiredSheetAbsent(detail string) *Error {
	return newErr(CategoryTemplateInvalid, "required_sheet_absent", detail)
}

func ErrChunkCountExceeded(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "chunk_count_exceeded", detail)
}

func ErrProductTableTooLarge(detail string) *Error {
	return newErr(CategoryIntegrityViolation, "product_table_too_large", detail)
}

func ErrArtifactMissing(what string) *Error {
	return newErr(CategoryArtifactMissing, "artifact_missing", what)
}

// ErrLeaseLost wraps a checkpoint lease-assertion failure as a
// categorical error so the orchestrator and HTTP layer can recognize
// it without string-matching checkpoint.ErrLockLost directly.
func ErrLeaseLost(detail string) *Error {
	return newErr(CategoryLeaseLost, "lease_lost", detail)
}

// ErrUnknownStep is returned by ParseStep for any value outside the
// closed step set; it is an input_malformed condition.
var ErrUnknownStep = newErr(CategoryInputMalformed, "unknown_step", "")

// AsCategorical unwraps err into a *Error if it (or something it
// wraps) is one.
func AsCategorical(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
