package script

import "strings"

const (
	antagonistDescription = "Antagonistic character with menacing presence and dark intentions"
	heroicDescription     = "Heroic character with noble bearing and determined expression"
	lawDescription        = "Law enforcement character with professional demeanor and keen eyes"
	genericDescription    = "Character with distinctive appearance and strong personality"
)

var knownCharacters = map[string]string{
	"BATMAN":          "Dark vigilante hero in cape and cowl, brooding and determined",
	"JOKER":           "Maniacal villain with green hair and white face paint, chaotic and unpredictable",
	"HARLEY QUINN":    "Former psychiatrist turned villain, playful but dangerous with colorful outfit",
	"ALFRED":          "Distinguished elderly butler, wise and loyal with British accent",
	"SUPERMAN":        "Heroic figure in blue and red costume with cape, strong and noble",
	"WONDER WOMAN":    "Amazonian warrior princess with golden armor and lasso",
	"SPIDER-MAN":      "Young hero in red and blue suit with web patterns, agile and witty",
	"IRON MAN":        "Genius inventor in high-tech armor suit, confident and charismatic",
	"CAPTAIN AMERICA": "Super soldier in patriotic costume with shield, honorable and brave",
}

// keywordRules are checked in order against the lowercased script; the first
// rule with any matching keyword wins.
var keywordRules = []struct {
	keywords    []string
	description string
}{
	{[]string{"villain", "evil"}, antagonistDescription},
	{[]string{"hero", "save"}, heroicDescription},
	{[]string{"detective", "cop"}, lawDescription},
}

// Describe returns a description for name. Known names resolve through an
// exact-match table; otherwise keywords anywhere in the script pick a
// description, falling back to a generic one.
func Describe(name, scriptText string) string {
	if desc, ok := knownCharacters[name]; ok {
		return desc
	}

	lower := strings.ToLower(scriptText)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.description
			}
		}
	}

	return genericDescription
}
