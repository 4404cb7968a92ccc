package crawler

import "errors"

// ErrInvalidSeed is returned by Crawl when the seed cannot be normalized into
// an absolute http or https URL. No request is made in that case.
var ErrInvalidSeed = errors.New("invalid seed url")
