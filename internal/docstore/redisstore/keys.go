package redisstore

const (
	// KeyPrefixDocument is the prefix for document hashes.
	KeyPrefixDocument = "sitedir:doc:"
	// KeyPrefixRevision is the prefix for per-document revision counters.
	// A counter outlives its document so a recreated path never reuses a revision.
	KeyPrefixRevision = "sitedir:rev:"
)

// DocumentKey returns the Redis key holding the document at path.
// The path is a hash tag, so both keys of a document share a cluster slot.
func DocumentKey(path string) string {
	return KeyPrefixDocument + "{" + path + "}"
}

// RevisionKey returns the revision counter of the document at path.
func RevisionKey(path string) string {
	return KeyPrefixRevision + "{" + path + "}"
}
