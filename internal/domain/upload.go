package domain

// Default metadata values applied when the upload backend omits them.
const (
	DefaultCoinName        = "Vibe Coin"
	DefaultCoinDescription = "Generated with Vibe"
)

// UploadResult is the tagged outcome of a metadata upload. Like
// GenerationResult, failures are results rather than Go errors.
type UploadResult struct {
	OK           bool
	StorageURI   string // content-addressed URI referencing the uploaded metadata
	Name         string
	Description  string
	PreviewImage string // base64 image echoed back for display, may be empty
	Reason       string // failure reason when !OK
}

// UploadSuccess builds a successful upload result, filling defaulted fields.
func UploadSuccess(uri, name, description, preview string) UploadResult {
	if name == "" {
		name = DefaultCoinName
	}
	if description == "" {
		description = DefaultCoinDescription
	}
	return UploadResult{OK: true, StorageURI: uri, Name: name, Description: description, PreviewImage: preview}
}

// UploadFailure builds a failed upload result.
func UploadFailure(reason string) UploadResult {
	return UploadResult{OK: false, Reason: reason}
}
