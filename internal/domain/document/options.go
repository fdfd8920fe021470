package document

// ListDocumentsOptions provides filtering options for listing documents.
type ListDocumentsOptions struct {
	Category *Category
	Statuses []Status
	ScopeKey *string
	Limit    int
	Offset   int
}

// SearchOptions provides filtering options for search.
type SearchOptions struct {
	Categories []Category
	Statuses   []Status
	Limit      int
	Offset     int
}
