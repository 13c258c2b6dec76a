package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Feed and persistence errors
	ErrNotFound       = fmt.Errorf("not found")
	ErrAuthorNotFound = fmt.Errorf("author not found")
	ErrItemNotFound   = fmt.Errorf("media item not found")
	ErrInvalidFeed    = fmt.Errorf("invalid feed")
	ErrEmptyFeed      = fmt.Errorf("feed has no playable items")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
