package mystery

// GossipEntry records one piece of relayed interrogation talk as heard by a
// character. Entries accumulate for the whole session.
type GossipEntry struct {
	From         string
	Info         string
	Relationship Relationship
}
