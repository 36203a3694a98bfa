package match

import (
	"strconv"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
)

// quantity is the amount between a timeline preposition and its unit, e.g.
// "6", "3-6", "two", "a few". Anchoring it keeps "in Spain for two years"
// from reading as a timeline.
const quantity = `(?:\d+(?:\s*-\s*\d+)?|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|eighteen|twenty|few|a few|several|a couple(?: of)?|couple of|half a)`

// Patterns are matched case-insensitively against the original text so the
// captured value keeps the user's casing.
var defaultPatterns = []struct {
	ft       types.FactType
	name     string
	patterns []string
}{
	{types.FactDestination, "destination", []string{
		`\b(?:move|moving|relocate|relocating|going|emigrate|emigrating) to (?:the )?(\p{L}+)`,
		`\binterested in (?:moving to |living in )?(\p{L}+)`,
		`\blooking at (\p{L}+)`,
	}},
	{types.FactOrigin, "origin", []string{
		`\b(?:i'm from|i am from|originally from|currently in|live in|living in|based in) (\p{L}+)`,
		`\bfrom (\p{L}+) to \p{L}+`,
	}},
	{types.FactBudget, "budget", []string{
		`\bbudget (?:is |of |around |about )*([€$£]?\d(?:[\d,.]*\d)?k?(?:\s*(?:per|a|/)\s*month)?)`,
		`([€$£]\d(?:[\d,.]*\d)?k?\s*(?:per|a|/)\s*month)`,
	}},
	{types.FactTimeline, "timeline", []string{
		`\b((?:(?:within|in|by)\s+(?:the\s+)?(?:next\s+)?|next\s+)(?:` + quantity + `\s+)?(?:months?|years?|weeks?))\b`,
		`\b((?:this|next) (?:spring|summer|autumn|fall|winter))\b`,
	}},
	{types.FactName, "name", []string{
		`\bmy name is (\p{L}+)`,
		`\bcall me (\p{L}+)`,
	}},
	{types.FactFamilySize, "family_size", []string{
		`\b(?:family|household) of (\w+)`,
		`\bwith (my (?:wife|husband|partner|spouse|family|kids|children))\b`,
	}},
	{types.FactWorkType, "work_type", []string{
		`\b(?:i work|working|work) (remotely|from home|hybrid|freelance|on-?site)\b`,
		`\b(digital nomad|freelancer|self-employed|remote worker)\b`,
	}},
	{types.FactProfession, "profession", []string{
		`\bi work as an? (\p{L}+(?: \p{L}+)?)`,
		`\bmy (?:job|profession) is (?:an? )?(\p{L}+(?: \p{L}+)?)`,
	}},
}

// DefaultRegistry returns a registry loaded with the built-in regex matchers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range defaultPatterns {
		for i, pat := range p.patterns {
			r.Register(p.ft, MustRegex(regexName(p.name, i), pat))
		}
	}
	return r
}

func regexName(base string, i int) string {
	return "regex:" + base + "#" + strconv.Itoa(i)
}
