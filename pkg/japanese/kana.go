package japanese

import "strings"

const (
	hiraganaStart        = 0x3041
	hiraganaEnd          = 0x309F
	katakanaStart        = 0x30A0
	katakanaEnd          = 0x30FF
	katakanaPhoneticExt  = 0x31F0
	katakanaPhoneticEnd  = 0x31FF
	halfwidthKanaStart   = 0xFF66
	halfwidthKanaEnd     = 0xFF9F
	convertibleKataStart = 0x30A1
	convertibleKataEnd   = 0x30F6
	kanaOffset           = 0x60
	prolongedSoundMark   = 'ー'
)

// ToHiragana converts Katakana to Hiragana. Characters outside the
// convertible Katakana block (including the prolonged sound mark) are kept.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= convertibleKataStart && r <= convertibleKataEnd {
			runes[i] = r - kanaOffset
		}
	}
	return string(runes)
}

// ToKatakana converts Hiragana to Katakana.
func ToKatakana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= convertibleKataStart-kanaOffset && r <= convertibleKataEnd-kanaOffset {
			runes[i] = r + kanaOffset
		}
	}
	return string(runes)
}

// IsKana reports whether r is a Hiragana or Katakana code point.
func IsKana(r rune) bool {
	switch {
	case r >= hiraganaStart && r <= hiraganaEnd:
		return true
	case r >= katakanaStart && r <= katakanaEnd:
		return true
	case r >= katakanaPhoneticExt && r <= katakanaPhoneticEnd:
		return true
	case r >= halfwidthKanaStart && r <= halfwidthKanaEnd:
		return true
	}
	return false
}

// IsKanji reports whether r is a CJK ideograph (including the iteration mark).
func IsKanji(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0x20000 && r <= 0x2A6DF:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	case r == '々':
		return true
	}
	return false
}

// ContainsKanji reports whether s has at least one kanji.
func ContainsKanji(s string) bool {
	return strings.IndexFunc(s, IsKanji) >= 0
}

// ConvertReading applies a reading mode to a Hiragana/Katakana reading.
// Recognized modes are "hiragana" and "katakana"; anything else returns the
// reading unchanged.
func ConvertReading(reading, mode string) string {
	switch mode {
	case "hiragana":
		return ToHiragana(reading)
	case "katakana":
		return ToKatakana(reading)
	default:
		return reading
	}
}
