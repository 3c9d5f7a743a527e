package mystery

import (
	"sort"
	"strings"
)

type Role string

const (
	RoleVictim   Role = "victim"
	RoleMurderer Role = "murderer"
	RoleInnocent Role = "innocent_suspect"
)

type Relationship string

const (
	CloseFriend     Relationship = "Close Friend"
	RomanticPartner Relationship = "Romantic Partner"
	BusinessPartner Relationship = "Business Partner"
	Rival           Relationship = "Rival"
	Enemy           Relationship = "Enemy"
	Acquaintance    Relationship = "Acquaintance"
	FamilyMember    Relationship = "Family Member"
)

func KnownRelationships() []Relationship {
	return []Relationship{
		CloseFriend,
		RomanticPartner,
		BusinessPartner,
		Rival,
		Enemy,
		Acquaintance,
		FamilyMember,
	}
}

func (r Relationship) Known() bool {
	for _, known := range KnownRelationships() {
		if r == known {
			return true
		}
	}
	return false
}

type Character struct {
	Name       string
	Age        int
	Gender     string
	Occupation string
	Traits     []string
}

type Clue struct {
	Text     string
	Owner    string
	IsTrue   bool
	Category string
}

// Case holds the full set of facts for one game. It is immutable after
// casefile.Generate validates it; everything downstream only reads.
type Case struct {
	Roster        []Character
	Victim        string
	Murderer      string
	Motive        string
	Location      string
	Cause         string
	Time          string
	Alibis        map[string]string
	Relationships map[string]Relationship
	Clues         []Clue
}

// PairKey normalizes an unordered character pair into a single map key, so
// lookups work no matter which way round the pair was labeled.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

func SplitPairKey(key string) (string, string) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

func (c *Case) Relationship(a, b string) (Relationship, bool) {
	rel, ok := c.Relationships[PairKey(a, b)]
	return rel, ok
}

func (c *Case) Character(name string) (Character, bool) {
	for _, ch := range c.Roster {
		if ch.Name == name {
			return ch, true
		}
	}
	return Character{}, false
}

func (c *Case) Names() []string {
	names := make([]string, 0, len(c.Roster))
	for _, ch := range c.Roster {
		names = append(names, ch.Name)
	}
	return names
}

func (c *Case) Role(name string) Role {
	switch name {
	case c.Murderer:
		return RoleMurderer
	case c.Victim:
		return RoleVictim
	default:
		return RoleInnocent
	}
}

func (c *Case) Alibi(name string) string {
	return c.Alibis[name]
}

func (c *Case) OwnedClues(name string) []Clue {
	var owned []Clue
	for _, clue := range c.Clues {
		if clue.Owner == name {
			owned = append(owned, clue)
		}
	}
	return owned
}

// RelatedTo returns every other character related to name through one of the
// given labels, sorted for stable iteration.
func (c *Case) RelatedTo(name string, labels ...Relationship) []string {
	var related []string
	for key, rel := range c.Relationships {
		a, b := SplitPairKey(key)
		if a != name && b != name {
			continue
		}
		for _, label := range labels {
			if rel == label {
				other := a
				if other == name {
					other = b
				}
				related = append(related, other)
				break
			}
		}
	}
	sort.Strings(related)
	return related
}

// CharacterRecord is the per-character view materialized from a validated
// case, the shape the actors and the UI consume.
type CharacterRecord struct {
	Character
	Alibi      string
	IsVictim   bool
	IsMurderer bool
	Clues      []Clue
}

func (c *Case) BuildWorldState() map[string]CharacterRecord {
	records := make(map[string]CharacterRecord, len(c.Roster))
	for _, ch := range c.Roster {
		records[ch.Name] = CharacterRecord{
			Character:  ch,
			Alibi:      c.Alibis[ch.Name],
			IsVictim:   ch.Name == c.Victim,
			IsMurderer: ch.Name == c.Murderer,
			Clues:      c.OwnedClues(ch.Name),
		}
	}
	return records
}
