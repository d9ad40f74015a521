package llm

const (
	// MIDI note number constraints
	midiNoteNumberMin = 0
	midiNoteNumberMax = 127

	// Velocity constraints
	velocityMin = 1
	velocityMax = 127

	// Duration constraints
	durationBeatsMin = 0.01
)

// sectionNameSchema constrains a section label to the supported song form.
func sectionNameSchema() map[string]any {
	return map[string]any{
		"type": "string",
		"enum": []string{"verse", "chorus"},
	}
}

// GetChordsOutputSchema returns the JSON schema for the chord stage output.
// Note: OpenAI requires additionalProperties: false and every property listed
// in 'required'.
func GetChordsOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"section": sectionNameSchema(),
						"chords": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"symbol": map[string]any{
										"type":        "string",
										"description": "Chord symbol such as C, Am7, Fmaj7, Em/G",
									},
									"durationBeats": map[string]any{"type": "number", "minimum": durationBeatsMin},
								},
								"required":             []string{"symbol", "durationBeats"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"section", "chords"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"sections"},
		"additionalProperties": false,
	}
}

// GetLyricsOutputSchema returns the JSON schema for the lyric stage output.
func GetLyricsOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"section": sectionNameSchema(),
						"lines": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required":             []string{"section", "lines"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"sections"},
		"additionalProperties": false,
	}
}

// GetMelodyOutputSchema returns the JSON schema for the melody stage output.
func GetMelodyOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"section": sectionNameSchema(),
						"notes": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"midiNoteNumber": map[string]any{"type": "integer", "minimum": midiNoteNumberMin, "maximum": midiNoteNumberMax},
									"velocity":       map[string]any{"type": "integer", "minimum": velocityMin, "maximum": velocityMax},
									"startBeats":     map[string]any{"type": "number", "minimum": 0},
									"durationBeats":  map[string]any{"type": "number", "minimum": durationBeatsMin},
									"syllable": map[string]any{
										"type":        "string",
										"description": "Syllable sung on this note, empty for untexted notes",
									},
								},
								"required":             []string{"midiNoteNumber", "velocity", "startBeats", "durationBeats", "syllable"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"section", "notes"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"sections"},
		"additionalProperties": false,
	}
}

// GetDrumsOutputSchema returns the JSON schema for the drum stage output.
// The grid convention follows the pattern DSL: 16 chars = 1 bar,
// "x"=hit, "X"=accent, "o"=ghost, "-"=rest.
func GetDrumsOutputSchema(styles, drums []string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"style": map[string]any{
				"type": "string",
				"enum": styles,
			},
			"patterns": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"drum": map[string]any{
							"type": "string",
							"enum": drums,
						},
						"grid": map[string]any{
							"type":        "string",
							"description": "Drum grid, 16 chars per bar: x=hit, X=accent, o=ghost, -=rest",
						},
					},
					"required":             []string{"drum", "grid"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"style", "patterns"},
		"additionalProperties": false,
	}
}
