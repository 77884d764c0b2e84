package projection

import (
	"fmt"
	"strings"
)

// InsufficientDataError reports a matrix with too few rows (or columns) for the request.
type InsufficientDataError struct {
	Rows   int
	Need   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient data: %s (%d rows)", e.Reason, e.Rows)
	}
	return fmt.Sprintf("insufficient data: %d rows, need at least %d", e.Rows, e.Need)
}

// DegenerateColumnError reports zero-variance feature columns reaching a projector that
// was configured to reject them.
type DegenerateColumnError struct {
	Columns []string
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("zero-variance feature columns: %s", strings.Join(e.Columns, ", "))
}

// ConfigError reports an invalid projection hyperparameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid projection config %s: %s", e.Field, e.Reason)
}
