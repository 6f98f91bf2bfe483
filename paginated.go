package onequery

// Paginated wraps a cursor-paginated sequence of page values plus the page
// request parameters that produced them. Paginated entries obey the same
// get/set contract as single values; a Set against a paginated fingerprint
// replaces or transforms the whole sequence, never one page.
type Paginated[V any] struct {
	Pages      []V   `json:"pages"`
	PageParams []any `json:"pageParams"`
}
