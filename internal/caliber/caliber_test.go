package caliber

import "testing"

func TestNormalizeAliases(t *testing.T) {
	cases := map[string]Caliber{
		"9mm Luger":        Cal9mm,
		"9x19":             Cal9mm,
		"5.56 NATO":        Cal556,
		"5.56x45mm":        Cal556,
		".223 Rem":         Cal223,
		"7.62x39mm":        Cal762x39,
		".308 Winchester":  Cal308,
		"45 ACP":           Cal45ACP,
		".45 Auto":         Cal45ACP,
		"22 Long Rifle":    Cal22LR,
		"300 AAC Blackout": Cal300BLK,
		"6.5 Creedmoor":    Cal65CM,
		"12 GA":            Cal12Gauge,
		".38 SPL":          Cal38SPL,
		"30-06 Sprg":       Cal3006,
	}

	for raw, want := range cases {
		got, ok := Normalize(raw)
		if !ok {
			t.Fatalf("Normalize(%q) should map, got unmapped", raw)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNormalizeCanonicalRoundTrips(t *testing.T) {
	got, ok := Normalize(string(Cal9mm))
	if !ok || got != Cal9mm {
		t.Fatalf("canonical value should round-trip, got %s ok=%v", got, ok)
	}
}

func TestNormalizeUnmapped(t *testing.T) {
	for _, raw := range []string{"", "   ", "4.85x49mm British", "paintballs"} {
		if got, ok := Normalize(raw); ok {
			t.Fatalf("Normalize(%q) should be unmapped, got %s", raw, got)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical(Cal556) {
		t.Fatal("5.56 NATO is canonical")
	}
	if IsCanonical(Caliber("9 milly")) {
		t.Fatal("free text is not canonical")
	}
	if IsCanonical("") {
		t.Fatal("empty caliber is not canonical")
	}
}
