package redis

const (
	// KeyPrefix namespaces every ideabox key.
	KeyPrefix = "ideabox:"
	// KeyAllIdeas holds the JSON-encoded list of all ideas.
	KeyAllIdeas = KeyPrefix + "ideas:all"
	// KeyListVersion is bumped on every invalidation.
	KeyListVersion = KeyPrefix + "ideas:ver"
)

// AllIdeasKey returns the key for the cached idea list.
func AllIdeasKey() string {
	return KeyAllIdeas
}

// ListVersionKey returns the key for the list generation counter.
func ListVersionKey() string {
	return KeyListVersion
}
