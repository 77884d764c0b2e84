package dataset

import "fmt"

// NotFoundError reports a lookup key (id or name) that matched no row, or more than one.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pokemon %q not found", e.Key)
}
