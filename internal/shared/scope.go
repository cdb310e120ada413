package shared

// ScopeFilter restricts list queries to a single property. A nil PropertyID
// means no restriction (platform operators). The filter is always passed
// explicitly; query code must never derive it from ambient state.
type ScopeFilter struct {
	PropertyID *int64
}

// ScopeAll returns an unrestricted filter.
func ScopeAll() ScopeFilter {
	return ScopeFilter{}
}

// ScopeProperty returns a filter limited to one property.
func ScopeProperty(propertyID int64) ScopeFilter {
	return ScopeFilter{PropertyID: &propertyID}
}

// Allows reports whether a record owned by propertyID passes the filter.
func (f ScopeFilter) Allows(propertyID int64) bool {
	return f.PropertyID == nil || *f.PropertyID == propertyID
}
