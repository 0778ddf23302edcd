package impute

import "fmt"

// NotEnoughGenotypesError is returned when fewer than K other samples have a
// known call at Site.
type NotEnoughGenotypesError struct {
	Site int
	K    int
}

func (e *NotEnoughGenotypesError) Error() string {
	return fmt.Sprintf("not enough known genotypes at site %d for %d neighbours", e.Site, e.K)
}
