package wad

import "strings"

// Game identifies a known IWAD.
type Game struct {
	Name string
	// ID is the GZDoom game identifier, used as gameIdentifier in records.
	ID string
	// ChocolateID is the ChocolateDoom game name.
	ChocolateID string
}

var (
	doom1Shareware    = Game{"DOOM Shareware", "doom.id.doom1.shareware", "doom"}
	doom1Registered   = Game{"DOOM Registered", "doom.id.doom1.registered", "doom"}
	doom1Ultimate     = Game{"The Ultimate DOOM", "doom.id.doom1.ultimate", "doom"}
	doom1UltimateXBox = Game{"DOOM: XBox Edition", "doom.id.doom1.ultimate.xbox", "doom"}
	doom1BFG          = Game{"DOOM: BFG Edition", "doom.id.doom1.bfg", "doom"}
	doom1KEX          = Game{"DOOM: KEX Edition", "doom.id.doom1.kex", "doom"}
	doom1Unity        = Game{"DOOM: Unity Edition", "doom.id.doom1.unity", "doom"}
	doom2             = Game{"DOOM 2: Hell on Earth", "doom.id.doom2.commercial", "doom2"}
	doom2XBox         = Game{"DOOM 2: XBox Edition", "doom.id.doom2.commercial.xbox", "doom2"}
	doom2BFG          = Game{"DOOM 2: BFG Edition", "doom.id.doom2.bfg", "doom2"}
	doom2KEX          = Game{"DOOM 2: KEX Edition", "doom.id.doom2.kex", "doom2"}
	doom2Unity        = Game{"DOOM 2: Unity Edition", "doom.id.doom2.unity", "doom2"}
	tnt               = Game{"Final Doom: TNT - Evilution", "doom.id.doom2.tnt", "tnt"}
	tntKEX            = Game{"Final Doom: TNT - Evilution: KEX Edition", "doom.id.doom2.tnt.kex", "tnt"}
	tntUnity          = Game{"Final Doom: TNT - Evilution: Unity Edition", "doom.id.doom2.tnt.unity", "tnt"}
	plutonia          = Game{"Final Doom: Plutonia Experiment", "doom.id.doom2.plutonia", "plutonia"}
	plutoniaKEX       = Game{"Final Doom: Plutonia Experiment: KEX Edition", "doom.id.doom2.plutonia.kex", "plutonia"}
	plutoniaUnity     = Game{"Final Doom: Plutonia Experiment: Unity Edition", "doom.id.doom2.plutonia.unity", "plutonia"}
	hereticShareware  = Game{"Heretic Shareware", "heretic.shareware", "heretic1"}
	heretic           = Game{"Heretic", "heretic.heretic", "heretic"}
	hexenShareware    = Game{"Hexen: Demo Version", "hexen.shareware", "hexen"}
	hexen             = Game{"Hexen: Beyond Heretic", "hexen.hexen", "hexen"}
	hexenDeathkings   = Game{"Hexen: Deathkings of the Dark Citadel", "hexen.deathkings", "hexen"}
	freedoomDemo      = Game{"Freedoom: Demo Version", "doom.freedoom.demo", "freedoom1"}
	freedoomPhase1    = Game{"Freedoom: Phase 1", "doom.freedoom.phase1", "freedoom1"}
	freedoomPhase2    = Game{"Freedoom: Phase 2", "doom.freedoom.phase2", "freedoom2"}
	freeDM            = Game{"FreeDM", "doom.freedoom.freedm", "freedm"}
	blasphemer        = Game{"Blasphemer", "blasphemer", "heretic"}
	strife            = Game{"Strife: Quest for the Sigil", "strife.strife", "strife1"}
	strifeVeteran     = Game{"Strife: Veteran Edition", "strife.veteran", "strife1"}
	chexQuest         = Game{"Chex(R) Quest", "chex.chex1", "chex"}
	chexQuest3        = Game{"Chex(R) Quest 3", "chex.chex3", "chex"}
	harmony           = Game{"Harmony", "harmony", "unknown"}
)

var knownGames = []Game{
	doom1Shareware, doom1Registered, doom1Ultimate, doom1UltimateXBox, doom1BFG, doom1KEX, doom1Unity,
	doom2, doom2XBox, doom2BFG, doom2KEX, doom2Unity,
	tnt, tntKEX, tntUnity, plutonia, plutoniaKEX, plutoniaUnity,
	hereticShareware, heretic, hexenShareware, hexen, hexenDeathkings,
	freedoomDemo, freedoomPhase1, freedoomPhase2, freeDM, blasphemer,
	strife, strifeVeteran, chexQuest, chexQuest3, harmony,
}

// GameByID looks up a game by its identifier.
func GameByID(id string) (Game, bool) {
	for _, g := range knownGames {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// iwadFiles maps well-known IWAD file names to the game they carry.
var iwadFiles = map[string]Game{
	"doom1.wad":     doom1Shareware,
	"doom.wad":      doom1Ultimate,
	"doomu.wad":     doom1Ultimate,
	"bfgdoom.wad":   doom1BFG,
	"doom2.wad":     doom2,
	"doom2f.wad":    doom2,
	"bfgdoom2.wad":  doom2BFG,
	"tnt.wad":       tnt,
	"plutonia.wad":  plutonia,
	"heretic1.wad":  hereticShareware,
	"heretic.wad":   heretic,
	"hexen.wad":     hexen,
	"hexdd.wad":     hexenDeathkings,
	"strife0.wad":   strife,
	"strife1.wad":   strife,
	"freedoom1.wad": freedoomPhase1,
	"freedoom2.wad": freedoomPhase2,
	"freedm.wad":    freeDM,
	"blasphem.wad":  blasphemer,
	"chex.wad":      chexQuest,
	"chex3.wad":     chexQuest3,
	"harm1.wad":     harmony,
}

// GameByIWADName maps a well-known IWAD file name, such as the IWAD key of
// a GAMEINFO lump, to its game.
func GameByIWADName(name string) (Game, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	g, ok := iwadFiles[name]
	return g, ok
}

type lumpSet map[string]struct{}

func (s lumpSet) has(names ...string) bool {
	for _, n := range names {
		if _, ok := s[n]; !ok {
			return false
		}
	}
	return true
}

// IdentifyGame guesses which IWAD a set of upper-cased lump names comes
// from. Rare games are tested first so that few distinctive lumps are not
// shadowed by broader checks.
func IdentifyGame(lumps map[string]struct{}) (Game, bool) {
	s := lumpSet(lumps)
	switch {
	case s.has("I_RELB", "FXAA_F", "MAP35"):
		return strifeVeteran, true
	case s.has("TITLE"):
		return identifyRaven(s)
	case s.has("E1M1"):
		return identifyDoom1(s), true
	case s.has("MAP01"):
		return identifyDoom2(s), true
	}
	return Game{}, false
}

func identifyRaven(s lumpSet) (Game, bool) {
	switch {
	case s.has("BLASPHEM"):
		return blasphemer, true
	case s.has("MUS_E1M1"):
		if s.has("E2M1") {
			return heretic, true
		}
		return hereticShareware, true
	case s.has("MAP60", "CLUS1MSG"):
		return hexenDeathkings, true
	case s.has("MAP01", "WINNOWR"):
		if s.has("MAP40") {
			return hexen, true
		}
		return hexenShareware, true
	}
	return Game{}, false
}

func identifyDoom1(s lumpSet) Game {
	switch {
	case s.has("FREEDOOM"):
		if s.has("E2M1") {
			return freedoomPhase1
		}
		return freedoomDemo
	case s.has("CYCLA1", "FLMBA1", "MAPINFO"):
		return chexQuest3
	case s.has("W94_1", "POSSH0M0", "E4M1"):
		return chexQuest
	case s.has("E2M1", "DPHOOF", "BFGGA0"):
		if !s.has("E4M2") {
			return doom1Registered
		}
		switch {
		case s.has("E1M10", "SEWERS"):
			return doom1UltimateXBox
		case s.has("DMENUPIC"):
			return rerelease(s, doom1BFG, doom1KEX, doom1Unity)
		}
		return doom1Ultimate
	}
	return doom1Shareware
}

func identifyDoom2(s lumpSet) Game {
	switch {
	case s.has("ENDSTRF", "MAP33"):
		return strife
	case s.has("0HAWK01", "0CARA3", "0NOSE1"):
		return harmony
	case s.has("FREEDOOM"):
		return freedoomPhase2
	case s.has("FREEDM"):
		return freeDM
	case s.has("REDTNT2"):
		return finalDoom(s, tnt, tntKEX, tntUnity)
	case s.has("CAMO1"):
		return finalDoom(s, plutonia, plutoniaKEX, plutoniaUnity)
	case s.has("CWILV32", "MAP33"):
		return doom2XBox
	case s.has("DMENUPIC"):
		return rerelease(s, doom2BFG, doom2KEX, doom2Unity)
	}
	return doom2
}

func rerelease(s lumpSet, bfg, kex, unity Game) Game {
	switch {
	case s.has("M_ACPT", "M_CAN", "M_EXITO", "M_CHG"):
		return bfg
	case s.has("GAMECONF"):
		return kex
	}
	return unity
}

func finalDoom(s lumpSet, original, kex, unity Game) Game {
	switch {
	case s.has("GAMECONF"):
		return kex
	case s.has("DMAPINFO"):
		return unity
	}
	return original
}
