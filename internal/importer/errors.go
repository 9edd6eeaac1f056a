package importer

import (
	"errors"
	"fmt"
)

// ErrNoURLs is returned when a run is requested with an empty URL list.
var ErrNoURLs = errors.New("no urls to import")

// InvalidURLError is returned when an input URL is not an absolute
// http(s) URL. It is reported before any row is created.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url: %q", e.URL)
}
