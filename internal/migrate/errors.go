package migrate

import "errors"

var (
	ErrParse       = errors.New("migrate: failed to parse export")
	ErrEmptyExport = errors.New("migrate: export contains no threads")
)
