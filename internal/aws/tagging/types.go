package tagging

// TaggedResource is one resource returned by a tag search.
type TaggedResource struct {
	ARN  string
	Tags map[string]string
}

// TagFilter matches resources carrying Key. An empty Values list matches any
// value of the key.
type TagFilter struct {
	Key    string
	Values []string
}
