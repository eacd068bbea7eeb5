package internal

// MatchAction is the terminal outcome of matching one order line against the
// inventory index.
type MatchAction string

const (
	ActionAutoApprove     MatchAction = "auto_approve"
	ActionManualReview    MatchAction = "manual_review"
	ActionFindAlternative MatchAction = "find_alternative"
	ActionNoMatch         MatchAction = "no_match"
)

// CatalogItem is one inventory SKU row after schema normalization.
type CatalogItem struct {
	ItemID     string
	Brand      string
	Code       *string
	Name       *string
	Serial     *string
	Stock      int
	HasImage   bool
	SourceFile string
	SheetName  string
	RowIndex   int
	SearchText string
}

// QueryCandidate is one ranked search result. SemanticScore is always set;
// LexicalScore is set only when the lexical index contributed the candidate
// and RerankScore only after a successful rerank pass.
type QueryCandidate struct {
	ItemID        string
	Item          CatalogItem
	SemanticScore float64
	LexicalScore  *float64
	RerankScore   *float64
}

// FinalConfidence is the single derivation of the score used for
// decisioning: the rerank score when present, the semantic score otherwise.
func (c QueryCandidate) FinalConfidence() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.SemanticScore
}

type MatchDecision struct {
	Action            MatchAction
	Confidence        float64
	RequestedQuantity int
	AvailableStock    int
	Reason            string
}

// IngestFileReport is the per-file outcome of an ingestion run. A file that
// cannot be read at all carries Status "error" and never aborts a folder
// batch.
type IngestFileReport struct {
	File      string
	Brand     string
	Status    string
	Sheets    int
	ItemCount int
	Skipped   int
	Error     string
}

type IngestReport struct {
	Files     []IngestFileReport
	ItemCount int
}

// SearchExportRow flattens one ranked candidate for the xlsx report.
type SearchExportRow struct {
	Rank          int
	ItemID        string
	Brand         string
	Code          *string
	Name          *string
	Stock         int
	HasImage      bool
	SemanticScore float64
	LexicalScore  *float64
	RerankScore   *float64
	Confidence    float64
	Action        string
	SourceFile    string
	SheetName     string
}
