package capture

import "errors"

// ErrAccessibilityPermission indicates the host must grant Accessibility trust.
var ErrAccessibilityPermission = errors.New("macOS accessibility permission required for keyboard capture")

// ErrTapUnavailable is returned by the native source on platforms without an
// event tap.
var ErrTapUnavailable = errors.New("no native keyboard tap on this platform; use the stdin source")

// ErrPostUnsupported is returned when key synthesis is not available.
var ErrPostUnsupported = errors.New("key synthesis unsupported on this platform")
