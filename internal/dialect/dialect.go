package dialect

import "fmt"

// UnsupportedPolicy decides what an unsupported construct does to a run.
type UnsupportedPolicy string

const (
	// PolicyWarn turns unsupported constructs into placeholders and keeps going.
	PolicyWarn UnsupportedPolicy = "warn"
	// PolicyFail aborts the file on the first unsupported construct.
	PolicyFail UnsupportedPolicy = "fail"
)

// Profile describes the source and target language variants for a run.
// A Profile is immutable once constructed and shared read-only across all
// files in a batch.
type Profile struct {
	SourceVersion string            `json:"source_version"`
	TargetDialect string            `json:"target_dialect"`
	Strictness    string            `json:"strictness"`
	Unsupported   UnsupportedPolicy `json:"unsupported_policy"`
	IndentWidth   int               `json:"indent_width"`
}

// Default returns the profile used when the config names nothing else:
// Python 3 in, strict-mode TypeScript out, placeholders on unsupported
// constructs.
func Default() Profile {
	return Profile{
		SourceVersion: "python3",
		TargetDialect: "typescript",
		Strictness:    "strict",
		Unsupported:   PolicyWarn,
		IndentWidth:   2,
	}
}

// Validate checks the profile fields that have a closed value set.
func (p Profile) Validate() error {
	switch p.Unsupported {
	case PolicyWarn, PolicyFail:
	default:
		return fmt.Errorf("unknown unsupported_policy: %q", p.Unsupported)
	}
	if p.IndentWidth <= 0 {
		return fmt.Errorf("indent_width must be positive, got %d", p.IndentWidth)
	}
	return nil
}
