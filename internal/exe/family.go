package exe

import "strings"

// Engine families.
const (
	FamilyZDoom         = "ZDoom"
	FamilyPrBoom        = "PrBoom"
	FamilyMBF           = "MBF"
	FamilyChocolateDoom = "ChocolateDoom"
)

var knownFamilies = map[string]string{
	"zdoom":             FamilyZDoom,
	"lzdoom":            FamilyZDoom,
	"gzdoom":            FamilyZDoom,
	"qzdoom":            FamilyZDoom,
	"skulltag":          FamilyZDoom,
	"zandronum":         FamilyZDoom,
	"prboom":            FamilyPrBoom,
	"prboom-plus":       FamilyPrBoom,
	"glboom":            FamilyPrBoom,
	"dsda-doom":         FamilyPrBoom,
	"smmu":              FamilyMBF,
	"eternity":          FamilyMBF,
	"woof":              FamilyMBF,
	"chocolate-doom":    FamilyChocolateDoom,
	"chocolate-heretic": FamilyChocolateDoom,
	"chocolate-hexen":   FamilyChocolateDoom,
	"crispy-doom":       FamilyChocolateDoom,
	"crispy-heretic":    FamilyChocolateDoom,
	"crispy-hexen":      FamilyChocolateDoom,
	"doomretro":         FamilyChocolateDoom,
	"strife-ve":         FamilyChocolateDoom,
}

// LookupFamily maps an executable base name or product name to its engine
// family.
func LookupFamily(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if f, ok := knownFamilies[name]; ok {
		return f, true
	}
	// product names use spaces where file names use dashes
	f, ok := knownFamilies[strings.ReplaceAll(name, " ", "-")]
	return f, ok
}

// GuessFamily returns the family of an executable base name, defaulting to
// ZDoom for unknown engines.
func GuessFamily(name string) string {
	if f, ok := LookupFamily(name); ok {
		return f
	}
	return FamilyZDoom
}
