package domain

// CandidateModel identifies one remote inference endpoint in the fallback
// chain. Lower Priority is tried first. Instances are immutable and
// statically configured.
type CandidateModel struct {
	Name     string `yaml:"name" json:"name"`
	Priority int    `yaml:"priority" json:"priority"`
}

// DefaultModels is the built-in fallback chain, in priority order.
func DefaultModels() []CandidateModel {
	return []CandidateModel{
		{Name: "gpt-4o", Priority: 0},
		{Name: "gpt-4o-mini", Priority: 1},
		{Name: "gpt-4-turbo", Priority: 2},
	}
}
