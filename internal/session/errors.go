package session

import "errors"

var (
	// ErrPermissionDenied ends the session when camera access is refused.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrSessionEnded is the reason recorded by Close.
	ErrSessionEnded = errors.New("session closed")
)

// User-visible notices.
const (
	NoticeBindFailed       = "Camera initialization failed"
	NoticeTorchFailed      = "Torch unavailable"
	NoticePermissionDenied = "Camera permission denied"
)
