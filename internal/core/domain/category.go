package domain

// ErrorCategory classifies a failure in the extraction pipeline.
type ErrorCategory string

const (
	CategoryPdfParsing      ErrorCategory = "pdf_parsing"
	CategoryImageExtraction ErrorCategory = "image_extraction"
	CategoryOcrProcessing   ErrorCategory = "ocr_processing"
	CategoryTextAssociation ErrorCategory = "text_association"
	CategoryStorage         ErrorCategory = "storage"
	CategoryUnknown         ErrorCategory = "unknown"
)

// Categories lists all known error categories.
var Categories = []ErrorCategory{
	CategoryPdfParsing,
	CategoryImageExtraction,
	CategoryOcrProcessing,
	CategoryTextAssociation,
	CategoryStorage,
	CategoryUnknown,
}

// RecoverableByDefault reports whether instances of this category are worth
// retrying. TextAssociation and Unknown are not: no alternate strategy exists
// for them, so retrying cannot change the outcome.
func (c ErrorCategory) RecoverableByDefault() bool {
	switch c {
	case CategoryPdfParsing, CategoryImageExtraction, CategoryOcrProcessing, CategoryStorage:
		return true
	default:
		return false
	}
}

// Valid reports whether c is one of the known categories.
func (c ErrorCategory) Valid() bool {
	switch c {
	case CategoryPdfParsing, CategoryImageExtraction, CategoryOcrProcessing,
		CategoryTextAssociation, CategoryStorage, CategoryUnknown:
		return true
	}
	return false
}
