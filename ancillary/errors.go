package ancillary

import "errors"

// ErrNotFound is returned by Get when key has no stored document.
var ErrNotFound = errors.New("ancillary: key not found")
