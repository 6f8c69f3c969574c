// Package pass holds the domain model for exam pass issuance.
package pass

// IssueResponse represents a successful pass issuance.
type IssueResponse struct {
	Subject string `json:"subject"`
	SeqNo   int64  `json:"seq_no"`
	PassID  uint64 `json:"pass_id"`
}

// MarkPaidRequest represents an admin request to record a student's fee payment.
type MarkPaidRequest struct {
	Subject   string `json:"subject"`
	FeeAmount string `json:"fee_amount"`
}

// PaidResponse represents a student's payment state.
type PaidResponse struct {
	Subject   string `json:"subject"`
	Paid      bool   `json:"paid"`
	FeeAmount string `json:"fee_amount,omitzero"`
}
