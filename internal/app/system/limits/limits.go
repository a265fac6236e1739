// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON and multipart endpoints.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size of a JSON request body (login,
	// register, add team, selection changes).
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxFormFields bounds the non-file part of a multipart form.
	MaxFormFields = 64 << 10 // 64 KB

	// MultipartMemory is how much of a multipart upload is held in memory
	// before spilling to temp files.
	MultipartMemory = 1 << 20 // 1 MB

	// MaxUploadBytes is the default cap on a member photo. Configurable via
	// max_upload_bytes.
	MaxUploadBytes = 8 << 20 // 8 MB
)

// MultipartBody returns the body cap for a multipart request carrying one
// image of at most imageBytes.
func MultipartBody(imageBytes int64) int64 {
	if imageBytes <= 0 {
		imageBytes = MaxUploadBytes
	}
	return imageBytes + MaxFormFields
}
