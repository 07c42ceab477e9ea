package file

import "errors"

var (
	ErrInvalidRef    = errors.New("invalid blob reference")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file size exceeds maximum allowed size")
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrFailedToReadFile        = errors.New("failed to read file")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToReadDirectory   = errors.New("failed to read directory")
	ErrFailedToGetAbsolutePath = errors.New("failed to get absolute path")
	ErrFailedToOpenDatabase    = errors.New("failed to open blob database")

	// S3 classification.
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrOperationCanceled  = errors.New("operation canceled")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
)
