package japanese

// Pitch accent categories.
const (
	PitchHeiban    = "heiban"
	PitchAtamadaka = "atamadaka"
	PitchNakadaka  = "nakadaka"
	PitchOdaka     = "odaka"
	PitchKifuku    = "kifuku"
)

func isSmallKana(r rune) bool {
	switch r {
	case 'ぁ', 'ぃ', 'ぅ', 'ぇ', 'ぉ', 'ゃ', 'ゅ', 'ょ', 'ゎ',
		'ァ', 'ィ', 'ゥ', 'ェ', 'ォ', 'ャ', 'ュ', 'ョ', 'ヮ':
		return true
	}
	return false
}

// KanaMorae splits kana text into morae; small kana attach to the preceding
// mora.
func KanaMorae(text string) []string {
	var morae []string
	for _, r := range text {
		if isSmallKana(r) && len(morae) > 0 {
			morae[len(morae)-1] += string(r)
			continue
		}
		morae = append(morae, string(r))
	}
	return morae
}

// IsMoraPitchHigh reports whether the mora at index is high for the given
// downstep position.
func IsMoraPitchHigh(index, downstep int) bool {
	switch downstep {
	case 0:
		return index > 0
	case 1:
		return index < 1
	default:
		return index > 0 && index < downstep
	}
}

// PitchCategory classifies a downstep position. Verbs and adjectives only
// distinguish heiban from kifuku. An empty string means no category applies.
func PitchCategory(reading string, downstep int, verbOrAdjective bool) string {
	if downstep == 0 {
		return PitchHeiban
	}
	if verbOrAdjective {
		if downstep > 0 {
			return PitchKifuku
		}
		return ""
	}
	switch {
	case downstep == 1:
		return PitchAtamadaka
	case downstep > 1:
		if downstep >= len(KanaMorae(reading)) {
			return PitchOdaka
		}
		return PitchNakadaka
	}
	return ""
}

// IsVerbOrAdjective reports whether any word class names a verb or
// i-adjective (v1, v5k, vs, adj-i, ...).
func IsVerbOrAdjective(wordClasses []string) bool {
	for _, wc := range wordClasses {
		switch {
		case wc == "adj-i", wc == "vk", wc == "vz":
			return true
		case len(wc) >= 2 && wc[0] == 'v' && (wc[1] == '1' || wc[1] == '5' || wc[1] == 's'):
			return true
		}
	}
	return false
}
