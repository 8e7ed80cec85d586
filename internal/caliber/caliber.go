package caliber

import "strings"

// Caliber is a value from the canonical caliber enumeration. Free-text
// retailer strings are mapped onto this set or rejected as unmapped.
type Caliber string

const (
	Cal9mm      Caliber = "9MM"
	Cal556      Caliber = "556_NATO"
	Cal223      Caliber = "223_REM"
	Cal762x39   Caliber = "762X39"
	Cal762x51   Caliber = "762X51"
	Cal308      Caliber = "308_WIN"
	Cal45ACP    Caliber = "45_ACP"
	Cal40SW     Caliber = "40_SW"
	Cal380      Caliber = "380_ACP"
	Cal10mm     Caliber = "10MM"
	Cal22LR     Caliber = "22_LR"
	Cal300BLK   Caliber = "300_BLK"
	Cal65CM     Caliber = "65_CREEDMOOR"
	Cal12Gauge  Caliber = "12_GAUGE"
	Cal20Gauge  Caliber = "20_GAUGE"
	Cal357Mag   Caliber = "357_MAG"
	Cal38SPL    Caliber = "38_SPECIAL"
	Cal3006     Caliber = "3006_SPRG"
	Cal270      Caliber = "270_WIN"
	Cal17HMR    Caliber = "17_HMR"
)

var canonical = map[Caliber]struct{}{
	Cal9mm: {}, Cal556: {}, Cal223: {}, Cal762x39: {}, Cal762x51: {},
	Cal308: {}, Cal45ACP: {}, Cal40SW: {}, Cal380: {}, Cal10mm: {},
	Cal22LR: {}, Cal300BLK: {}, Cal65CM: {}, Cal12Gauge: {}, Cal20Gauge: {},
	Cal357Mag: {}, Cal38SPL: {}, Cal3006: {}, Cal270: {}, Cal17HMR: {},
}

// aliases maps normalised retailer spellings to canonical values. Keys are
// lower-cased with spaces, dots, dashes, and underscores stripped.
var aliases = map[string]Caliber{
	"9mm":             Cal9mm,
	"9mmluger":        Cal9mm,
	"9x19":            Cal9mm,
	"9x19mm":          Cal9mm,
	"9mmparabellum":   Cal9mm,
	"556":             Cal556,
	"556nato":         Cal556,
	"556x45":          Cal556,
	"556x45mm":        Cal556,
	"223":             Cal223,
	"223rem":          Cal223,
	"223remington":    Cal223,
	"762x39":          Cal762x39,
	"762x39mm":        Cal762x39,
	"762x51":          Cal762x51,
	"762x51nato":      Cal762x51,
	"762nato":         Cal762x51,
	"308":             Cal308,
	"308win":          Cal308,
	"308winchester":   Cal308,
	"45acp":           Cal45ACP,
	"45auto":          Cal45ACP,
	"40sw":            Cal40SW,
	"40smithwesson":   Cal40SW,
	"380":             Cal380,
	"380acp":          Cal380,
	"380auto":         Cal380,
	"10mm":            Cal10mm,
	"10mmauto":        Cal10mm,
	"22lr":            Cal22LR,
	"22longrifle":     Cal22LR,
	"300blk":          Cal300BLK,
	"300blackout":     Cal300BLK,
	"300aacblackout":  Cal300BLK,
	"65creedmoor":     Cal65CM,
	"65cm":            Cal65CM,
	"12gauge":         Cal12Gauge,
	"12ga":            Cal12Gauge,
	"20gauge":         Cal20Gauge,
	"20ga":            Cal20Gauge,
	"357":             Cal357Mag,
	"357mag":          Cal357Mag,
	"357magnum":       Cal357Mag,
	"38special":       Cal38SPL,
	"38spl":           Cal38SPL,
	"3006":            Cal3006,
	"3006sprg":        Cal3006,
	"3006springfield": Cal3006,
	"270":             Cal270,
	"270win":          Cal270,
	"17hmr":           Cal17HMR,
}

var stripper = strings.NewReplacer(" ", "", ".", "", "-", "", "_", "")

// Normalize maps a free-text caliber string to its canonical value. The
// second return is false when the string cannot be mapped.
func Normalize(raw string) (Caliber, bool) {
	key := stripper.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if key == "" {
		return "", false
	}
	if cal, ok := aliases[key]; ok {
		return cal, true
	}
	// Already-canonical values round-trip.
	if cal := Caliber(strings.ToUpper(strings.TrimSpace(raw))); IsCanonical(cal) {
		return cal, true
	}
	return "", false
}

// IsCanonical reports whether cal is a member of the canonical enumeration.
func IsCanonical(cal Caliber) bool {
	_, ok := canonical[cal]
	return ok
}
