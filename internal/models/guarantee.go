package models

// Grid is a reconstructed table: every row has the same length and empty cells hold "".
type Grid struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// Empty reports whether the grid holds no rows.
func (g Grid) Empty() bool { return len(g.Rows) == 0 }

// Width returns the column count, 0 for an empty grid.
func (g Grid) Width() int {
	if len(g.Rows) == 0 {
		return 0
	}
	return len(g.Rows[0])
}

// ExtractionResult is what the document analysis port returns for one document.
// Text fields are nil when the corresponding block could not be resolved.
type ExtractionResult struct {
	DateText     *string
	PromotorText *string
	LetterText   *string
	ProjectText  *string
	Grid         Grid
}

// FinancialMetadata is the normalized amount triple read from the guarantee table.
// A nil amount means the cell could not be parsed.
type FinancialMetadata struct {
	DisbursedAmount *float64
	ReducedAmount   *float64
	TotalAmount     *float64
}

// BankGuaranteeMetadata holds everything extracted from one letter. Amounts are serialized as
// strings; absent optional fields are omitted.
type BankGuaranteeMetadata struct {
	LetterDate      string `json:"letter_date,omitempty" firestore:"letter_date,omitempty"`
	DisbursedAmount string `json:"disbursed_amount,omitempty" firestore:"disbursed_amount,omitempty"`
	ReducedAmount   string `json:"reduced_amount,omitempty" firestore:"reduced_amount,omitempty"`
	TotalAmount     string `json:"total_amount,omitempty" firestore:"total_amount,omitempty"`
	LetterText      string `json:"letter_text,omitempty" firestore:"letter_text,omitempty"`
	ProjectText     string `json:"project_text,omitempty" firestore:"project_text,omitempty"`
	Promotor        string `json:"promotor,omitempty" firestore:"promotor,omitempty"`
	FileName        string `json:"file_name" firestore:"file_name"`
	TypeDocument    string `json:"type_document" firestore:"type_document"`
	PeriodMonth     string `json:"period_month" firestore:"period_month"`
	PeriodYear      string `json:"period_year" firestore:"period_year"`
}

// BankGuaranteeEntity is the persisted record for one processed letter.
type BankGuaranteeEntity struct {
	ID                  string                `json:"id" firestore:"id"`
	SupervisoryRecordID string                `json:"supervisory_record_id" firestore:"supervisory_record_id"`
	PeriodMonth         string                `json:"period_month" firestore:"period_month"`
	PeriodYear          string                `json:"period_year" firestore:"period_year"`
	Metadata            BankGuaranteeMetadata `json:"metadata" firestore:"metadata"`
}
