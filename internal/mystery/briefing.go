package mystery

type Tension string

const (
	TensionHigh   Tension = "high"
	TensionMedium Tension = "medium"
	TensionLow    Tension = "low"
)

type Exposure string

const (
	ExposureHigh   Exposure = "High"
	ExposureMedium Exposure = "Medium"
	ExposureLow    Exposure = "Low"
)

type RelationshipContext struct {
	Label   Relationship
	Tension Tension
}

// Briefing is the orchestrator's per-suspect instruction set: what this
// character knows, what they protect, and how interviews are likely to go.
// Fully derived from the case except HintableFacts, which a separate
// generation call fills in.
type Briefing struct {
	Suspect         string
	Role            Role
	Knowledge       []string
	Secrets         []string
	Relationships   map[string]RelationshipContext
	Exposure        Exposure
	LikelyQuestions []string
	DefensiveTopics []string
	HintableFacts   []string
}
