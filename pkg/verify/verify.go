// Package verify holds the domain model for invigilator pass checks.
package verify

// Result represents a successful pass verification: the pass resolves to a
// registered, paid student at call time.
type Result struct {
	PassID     uint64 `json:"pass_id"`
	Subject    string `json:"subject"`
	Name       string `json:"name"`
	NaturalID  string `json:"natural_id"`
	Registered bool   `json:"registered"`
	Paid       bool   `json:"paid"`
	SeqNo      int64  `json:"seq_no"`
}
