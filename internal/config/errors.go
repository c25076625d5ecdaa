package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrUnknownOwner           = "Unknown site owner"
	ErrInternalServerError    = "Internal server error"
	ErrRefreshChallenge       = "Failed to refresh challenge"

	// Layout errors, shown inline on the editor and landing pages
	ErrLayoutFetch      = "We could not load the site layout. Please try again."
	ErrLayoutUpload     = "One of the images could not be uploaded. Nothing was saved."
	ErrLayoutSave       = "The site layout could not be saved. Please try again."
	ErrLayoutSaving     = "A save is already in progress"
	ErrLayoutBadRequest = "Invalid layout change"
	ErrLayoutTooLarge   = "The image is too large"
	ErrSessionNotFound  = "Editor session not found"
	ErrOwnerNotFound    = "Site not found"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
)
