package match

import (
	"strings"

	"github.com/cellarist/cellarist/internal/wine"
)

// typeKeywords maps varietal and appellation keywords to a wine type.
// Keys are folded (lowercase, no diacritics). The table is intentionally
// conservative: only unambiguous single-style names are listed, so an
// ambiguous or regional blend name yields no inference at all.
var typeKeywords = map[string]wine.Type{
	// Red varietals
	"cabernet":    wine.TypeRed,
	"merlot":      wine.TypeRed,
	"syrah":       wine.TypeRed,
	"shiraz":      wine.TypeRed,
	"malbec":      wine.TypeRed,
	"tempranillo": wine.TypeRed,
	"sangiovese":  wine.TypeRed,
	"grenache":    wine.TypeRed,
	"zinfandel":   wine.TypeRed,
	"pinot noir":  wine.TypeRed,
	// Red appellations
	"chianti":           wine.TypeRed,
	"rioja":             wine.TypeRed,
	"bordeaux rouge":    wine.TypeRed,
	"chateauneuf":       wine.TypeRed,
	"brunello":          wine.TypeRed,
	"amarone":           wine.TypeRed,
	"beaujolais":        wine.TypeRed,
	"cotes du rhone":    wine.TypeRed,
	"ribera del duero":  wine.TypeRed,
	"montepulciano":     wine.TypeRed,
	"valpolicella":      wine.TypeRed,
	"cahors":            wine.TypeRed,
	"bourgogne rouge":   wine.TypeRed,
	"crozes-hermitage":  wine.TypeRed,
	"saint-emilion":     wine.TypeRed,
	"pauillac":          wine.TypeRed,
	"margaux":           wine.TypeRed,
	"barbera":           wine.TypeRed,
	"dolcetto":          wine.TypeRed,
	"pinotage":          wine.TypeRed,
	"carmenere":         wine.TypeRed,
	"nero d'avola":      wine.TypeRed,
	"primitivo":         wine.TypeRed,
	"aglianico":         wine.TypeRed,
	"mencia":            wine.TypeRed,
	"gamay":             wine.TypeRed,
	"mourvedre":         wine.TypeRed,
	"petite sirah":      wine.TypeRed,
	"touriga nacional":  wine.TypeRed,
	"blaufrankisch":     wine.TypeRed,
	"zweigelt":          wine.TypeRed,
	"xinomavro":         wine.TypeRed,
	"agiorgitiko":       wine.TypeRed,
	"saperavi":          wine.TypeRed,
	"bandol rouge":      wine.TypeRed,
	"hermitage rouge":   wine.TypeRed,
	"cote-rotie":        wine.TypeRed,
	"cornas":            wine.TypeRed,
	"gigondas":          wine.TypeRed,
	"vacqueyras":        wine.TypeRed,
	"taurasi":           wine.TypeRed,
	"bolgheri":          wine.TypeRed,
	"langhe nebbiolo":   wine.TypeRed,
	"barbaresco":        wine.TypeRed,
	// White varietals
	"chardonnay":      wine.TypeWhite,
	"sauvignon blanc": wine.TypeWhite,
	"riesling":        wine.TypeWhite,
	"pinot grigio":    wine.TypeWhite,
	"pinot gris":      wine.TypeWhite,
	"pinot blanc":     wine.TypeWhite,
	"gewurztraminer":  wine.TypeWhite,
	"viognier":        wine.TypeWhite,
	"albarino":        wine.TypeWhite,
	"gruner veltliner": wine.TypeWhite,
	"chenin blanc":    wine.TypeWhite,
	"semillon":        wine.TypeWhite,
	"verdejo":         wine.TypeWhite,
	"vermentino":      wine.TypeWhite,
	"assyrtiko":       wine.TypeWhite,
	"furmint":         wine.TypeWhite,
	"muscadet":        wine.TypeWhite,
	"torrontes":       wine.TypeWhite,
	// White appellations
	"chablis":         wine.TypeWhite,
	"sancerre":        wine.TypeWhite,
	"pouilly-fume":    wine.TypeWhite,
	"pouilly-fuisse":  wine.TypeWhite,
	"meursault":       wine.TypeWhite,
	"montrachet":      wine.TypeWhite,
	"vouvray":         wine.TypeWhite,
	"soave":           wine.TypeWhite,
	"gavi":            wine.TypeWhite,
	"rueda":           wine.TypeWhite,
	"chassagne":       wine.TypeWhite,
	"puligny":         wine.TypeWhite,
	"bourgogne blanc": wine.TypeWhite,
	"bordeaux blanc":  wine.TypeWhite,
	// Rosé
	"rose":       wine.TypeRose,
	"rosado":     wine.TypeRose,
	"rosato":     wine.TypeRose,
	"provence":   wine.TypeRose,
	"tavel":      wine.TypeRose,
	// Sparkling
	"champagne":    wine.TypeSparkling,
	"prosecco":     wine.TypeSparkling,
	"cava":         wine.TypeSparkling,
	"cremant":      wine.TypeSparkling,
	"franciacorta": wine.TypeSparkling,
	"lambrusco":    wine.TypeSparkling,
	"sekt":         wine.TypeSparkling,
	"spumante":     wine.TypeSparkling,
	"pet-nat":      wine.TypeSparkling,
	// Dessert
	"sauternes":   wine.TypeDessert,
	"tokaji":      wine.TypeDessert,
	"eiswein":     wine.TypeDessert,
	"ice wine":    wine.TypeDessert,
	"icewine":     wine.TypeDessert,
	"moscato":     wine.TypeDessert,
	"vin santo":   wine.TypeDessert,
	"late harvest": wine.TypeDessert,
	"trockenbeerenauslese": wine.TypeDessert,
	"beerenauslese":        wine.TypeDessert,
	"passito":              wine.TypeDessert,
	// Fortified
	"port":     wine.TypeFortified,
	"porto":    wine.TypeFortified,
	"tawny":    wine.TypeFortified,
	"sherry":   wine.TypeFortified,
	"jerez":    wine.TypeFortified,
	"oloroso":  wine.TypeFortified,
	"fino":     wine.TypeFortified,
	"madeira":  wine.TypeFortified,
	"marsala":  wine.TypeFortified,
	"vermouth": wine.TypeFortified,
	"banyuls":  wine.TypeFortified,
}

// InferType guesses a wine type from a mention's free text when no type was
// declared. Longer keywords are preferred so "pinot noir" wins over any
// single-word entry it might overlap with.
func InferType(m wine.Mention) (wine.Type, bool) {
	var parts []string
	if m.Name != "" {
		parts = append(parts, m.Name)
	}
	if m.Region != "" {
		parts = append(parts, m.Region)
	}
	parts = append(parts, m.Grapes...)
	text := Fold(strings.Join(parts, " "))
	if text == "" {
		return "", false
	}

	// Word-boundary match so "cava" does not fire inside "cavallotto".
	padded := " " + text + " "
	var (
		bestLen  int
		bestType wine.Type
		found    bool
	)
	for kw, t := range typeKeywords {
		if strings.Contains(padded, " "+kw+" ") && len(kw) > bestLen {
			bestLen = len(kw)
			bestType = t
			found = true
		}
	}
	return bestType, found
}
