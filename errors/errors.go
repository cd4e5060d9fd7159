package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrInvalidAttachment   = fmt.Errorf("attachment is not a supported image")
	ErrUnsupportedDocument = fmt.Errorf("unsupported document type")
	ErrEmptyTranslation    = fmt.Errorf("translation response contained no translations")
	ErrMissingToken        = fmt.Errorf("missing or invalid authorization token")
)
