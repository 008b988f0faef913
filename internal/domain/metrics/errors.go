// path: internal/domain/metrics/errors.go
package metrics

import "errors"

var (
	ErrRollupNotFound   = errors.New("rollup not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrJobNotFound      = errors.New("checkback job not found")
	ErrDuplicateJob     = errors.New("checkback job already exists for offset")
)
