package dto

// ReceiptMatchRequest carries strings recognized by an external OCR pass.
type ReceiptMatchRequest struct {
	Strings []string `json:"strings"`
}

type ReceiptMatchResponse struct {
	Ingredients []string `json:"ingredients"`
}
