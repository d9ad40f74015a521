package theory

import (
	"fmt"
	"strings"
)

// General MIDI percussion note numbers (channel 10).
var DrumNotes = map[string]int{
	"kick":         36,
	"snare":        38,
	"rimshot":      37,
	"clap":         39,
	"closed_hihat": 42,
	"pedal_hihat":  44,
	"open_hihat":   46,
	"crash":        49,
	"ride":         51,
	"ride_bell":    53,
	"tom_low":      41,
	"tom_mid":      45,
	"tom_high":     48,
	"tambourine":   54,
	"cowbell":      56,
	"conga_high":   62,
	"conga_low":    64,
	"shaker":       70,
	"clave":        75,
}

// Velocity tiers for drum hits.
const (
	VelocityGhost  = 40
	VelocitySoft   = 70
	VelocityNormal = 90
	VelocityAccent = 110
)

// GridSlotsPerBeat is the default grid resolution: 16 slots per 4/4 bar.
const GridSlotsPerBeat = 4

// GridPattern is one drum voice of a style template. Grid characters:
// "x"=hit, "X"=accent, "o"=ghost, "-"=rest. A 16-char grid covers one
// 4/4 bar; longer grids subdivide the bar further (32 chars = 32nd-ish
// trap hats).
type GridPattern struct {
	Drum string
	Grid string
}

// GridHit is a single expanded hit, positioned in ticks from loop start.
type GridHit struct {
	Tick     int
	Velocity int
}

// ExpandGrid converts a grid string into hits across loopTicks. The grid is
// stretched or compressed so its full length always spans the loop exactly.
func ExpandGrid(grid string, loopTicks int) ([]GridHit, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("empty grid")
	}
	if loopTicks <= 0 {
		return nil, fmt.Errorf("invalid loop length: %d ticks", loopTicks)
	}

	hits := make([]GridHit, 0, len(grid))
	for i, c := range grid {
		tick := i * loopTicks / len(grid)
		switch c {
		case 'x':
			hits = append(hits, GridHit{Tick: tick, Velocity: VelocityNormal})
		case 'X':
			hits = append(hits, GridHit{Tick: tick, Velocity: VelocityAccent})
		case 'o':
			hits = append(hits, GridHit{Tick: tick, Velocity: VelocityGhost})
		case '-':
			// rest
		default:
			return nil, fmt.Errorf("invalid grid character %q at slot %d", string(c), i)
		}
	}
	return hits, nil
}

// drumStyles holds one bar of 4/4 per voice for each named style.
var drumStyles = map[string][]GridPattern{
	"basic": {
		{Drum: "kick", Grid: "x-------x-------"},
		{Drum: "snare", Grid: "----x-------x---"},
		{Drum: "closed_hihat", Grid: "x-x-x-x-x-x-x-x-"},
	},
	"four_on_floor": {
		{Drum: "kick", Grid: "X---x---x---x---"},
		{Drum: "clap", Grid: "----x-------x---"},
		{Drum: "open_hihat", Grid: "--x---x---x---x-"},
	},
	"trap": {
		{Drum: "kick", Grid: "x------x--x-----"},
		{Drum: "snare", Grid: "--------X-------"},
		// Double-time hats with rolls, the signature trap texture
		{Drum: "closed_hihat", Grid: "x-x-x-x-xxx-x-x-x-x-xxx-x-x-x-xx"},
	},
	"latin": {
		{Drum: "kick", Grid: "x------x--x-----"},
		{Drum: "clave", Grid: "x--x--x---x-x---"},
		{Drum: "conga_high", Grid: "--x---x---x---xx"},
		{Drum: "conga_low", Grid: "x---o---x---o---"},
		{Drum: "cowbell", Grid: "x---x---x---x---"},
	},
	"pop": {
		{Drum: "kick", Grid: "x-----x-x-------"},
		{Drum: "snare", Grid: "----x-------x---"},
		{Drum: "closed_hihat", Grid: "x-x-x-x-x-x-x-x-"},
		{Drum: "tambourine", Grid: "--x---x---x---x-"},
	},
	"rock": {
		{Drum: "kick", Grid: "x-------x-x-----"},
		{Drum: "snare", Grid: "----X-------X---"},
		{Drum: "closed_hihat", Grid: "x-x-x-x-x-x-x-x-"},
	},
	"jazz": {
		{Drum: "ride", Grid: "x--xx--xx--xx--x"},
		{Drum: "pedal_hihat", Grid: "----x-------x---"},
		{Drum: "snare", Grid: "--o---o----o--o-"},
		{Drum: "kick", Grid: "o-------o-------"},
	},
	"electronic": {
		{Drum: "kick", Grid: "X---x---x---x---"},
		{Drum: "snare", Grid: "----x-------x---"},
		{Drum: "open_hihat", Grid: "--x---x---x---x-"},
		{Drum: "shaker", Grid: "x-x-x-x-x-x-x-x-"},
	},
	"hip_hop": {
		{Drum: "kick", Grid: "x--x----x--x----"},
		{Drum: "snare", Grid: "----X-------X---"},
		{Drum: "closed_hihat", Grid: "x-x-x-x-x-x-xox-"},
	},
	"r_and_b": {
		{Drum: "kick", Grid: "x-----x---x-----"},
		{Drum: "snare", Grid: "----x--o----x-o-"},
		{Drum: "closed_hihat", Grid: "xoxoxoxoxoxoxoxo"},
	},
}

// DrumStyleNames lists the known styles in a stable order.
var DrumStyleNames = []string{
	"basic", "four_on_floor", "trap", "latin", "pop",
	"rock", "jazz", "electronic", "hip_hop", "r_and_b",
}

// DrumStylePatterns returns the grid template for a style. Unknown styles fall
// back to "basic", reported through the second return value.
func DrumStylePatterns(style string) ([]GridPattern, bool) {
	patterns, ok := drumStyles[normalizeStyleName(style)]
	if !ok {
		return drumStyles["basic"], false
	}
	return patterns, true
}

// InferDrumStyle picks a drum style from free-form style/description text.
// Returns "basic" when nothing matches.
func InferDrumStyle(text string) string {
	lower := strings.ToLower(text)

	keywords := []struct {
		style string
		words []string
	}{
		{"four_on_floor", []string{"four on the floor", "four-on-the-floor", "house", "disco", "edm", "dance"}},
		{"trap", []string{"trap", "drill"}},
		{"latin", []string{"latin", "salsa", "bossa", "samba", "reggaeton", "cumbia"}},
		{"rock", []string{"rock", "punk", "metal", "grunge"}},
		{"jazz", []string{"jazz", "swing", "bebop", "blues"}},
		{"electronic", []string{"electronic", "techno", "synth", "electro"}},
		{"hip_hop", []string{"hip hop", "hip-hop", "hiphop", "rap", "boom bap"}},
		{"r_and_b", []string{"r&b", "rnb", "r and b", "soul", "neo-soul"}},
		{"pop", []string{"pop", "indie", "folk", "acoustic", "ballad"}},
	}

	for _, kw := range keywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				return kw.style
			}
		}
	}

	return "basic"
}

func normalizeStyleName(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
