package simplepublishing

// Rules configures link graph expansion: which link types are eligible for
// reverse expansion, what group name their dependents appear under, and which
// fields each document type projects. It is a plain data structure so rule
// sets can be enumerated and tested directly.
type Rules struct {
	// ReverseNames maps a link_type to the group name its dependents are
	// returned under (e.g. "parent" -> "children"). Its keys double as the
	// allow-list of reverse-expandable link types, bounding traversal on an
	// otherwise general graph.
	ReverseNames map[string]string

	// DefaultFields is the projection whitelist applied to every dependent.
	DefaultFields []string

	// ExtraFields adds fields for specific document types on top of
	// DefaultFields (e.g. organisations expose their detail payload).
	ExtraFields map[string][]string
}

// DefaultRules returns the standard expansion rule set.
func DefaultRules() Rules {
	return Rules{
		ReverseNames: map[string]string{
			"parent":         "children",
			"documents":      "document_collections",
			"working_groups": "policies",
		},
		DefaultFields: []string{
			"content_id",
			"title",
			"base_path",
			"description",
			"document_type",
			"locale",
		},
		ExtraFields: map[string][]string{
			"organisation":              {"details"},
			"placeholder_organisation":  {"details"},
			"topical_event":             {"details"},
			"placeholder_topical_event": {"details"},
			"html_publication":          {"schema_name"},
		},
	}
}

// ReverseTypes returns the allow-list of link types eligible for reverse
// expansion, in no particular order.
func (r Rules) ReverseTypes() []string {
	types := make([]string, 0, len(r.ReverseNames))
	for t := range r.ReverseNames {
		types = append(types, t)
	}
	return types
}

// ExpansionFields returns the projection whitelist for a document type.
func (r Rules) ExpansionFields(documentType string) []string {
	extra, ok := r.ExtraFields[documentType]
	if !ok {
		return r.DefaultFields
	}
	fields := make([]string, 0, len(r.DefaultFields)+len(extra))
	fields = append(fields, r.DefaultFields...)
	fields = append(fields, extra...)
	return fields
}

// Project applies the whitelist for item's document type. The result has no
// "links" key; callers attach one.
func (r Rules) Project(item *ContentItem) ExpandedItem {
	projected := make(ExpandedItem)
	for _, field := range r.ExpansionFields(item.DocumentType) {
		switch field {
		case "content_id":
			projected[field] = item.ContentID.String()
		case "title":
			projected[field] = item.Title
		case "base_path":
			projected[field] = item.BasePath
		case "description":
			projected[field] = item.Description
		case "document_type":
			projected[field] = item.DocumentType
		case "schema_name":
			projected[field] = item.SchemaName
		case "locale":
			projected[field] = item.Locale
		case "details":
			projected[field] = item.Details
		}
	}
	return projected
}
