package mystery

type Contradiction struct {
	Previous string
	Current  string
	Context  string
}

// ConsistencyReport is only produced when at least one contradiction was
// found; callers branch on its presence, not on an empty list.
type ConsistencyReport struct {
	Suspect         string
	TotalStatements int
	Contradictions  []Contradiction
	Score           float64
}
