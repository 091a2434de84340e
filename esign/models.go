package esign

// SigningRequest carries everything needed to route a document to a signer.
// Immutable once submitted.
type SigningRequest struct {
	SignerEmail     string            `json:"signer_email"`
	SignerFirstName string            `json:"signer_first_name"`
	SignerLastName  string            `json:"signer_last_name"`
	DateOfBirth     string            `json:"date_of_birth"` // MM/DD/YYYY
	Last4SSN        string            `json:"last4_ssn"`
	DesignationID   string            `json:"designation_id"`
	CorrelationTag  string            `json:"correlation_tag"`
	PDFFieldValues  map[string]string `json:"pdf_field_values"`
}

// PackageSpec is the provider-facing package description built from a
// SigningRequest and a filled document.
type PackageSpec struct {
	Name            string
	SenderEmail     string
	SignerEmail     string
	SignerFirstName string
	SignerLastName  string

	// Knowledge-based challenge answers presented to the signer.
	ChallengeDateOfBirth string
	ChallengeLast4       string

	ExpiryDays   int
	DocumentName string
	Document     []byte
}

// TemplateFiller populates a document template with named field values and
// returns the resulting bytes. Treated as an opaque collaborator.
type TemplateFiller interface {
	Fill(fields map[string]string) ([]byte, error)
}
