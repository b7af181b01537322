package notedata

import (
	"math"
	"regexp"
	"strconv"

	"golang.org/x/text/width"

	"github.com/japaniel/cardsmith/pkg/dictionary"
)

// Frequency is the template view of one frequency record.
type Frequency struct {
	Index           int             `json:"index"`
	ExpressionIndex int             `json:"expressionIndex,omitempty"`
	Dictionary      string          `json:"dictionary"`
	DictionaryAlias string          `json:"dictionaryAlias"`
	DictionaryOrder DictionaryOrder `json:"dictionaryOrder"`
	Expression      string          `json:"expression,omitempty"`
	Reading         string          `json:"reading,omitempty"`
	Character       string          `json:"character,omitempty"`
	HasReading      bool            `json:"hasReading,omitempty"`
	// Frequency is the display value when present, else the number.
	Frequency string `json:"frequency"`
}

// DictionaryOrder locates a dictionary in the user's dictionary list.
type DictionaryOrder struct {
	Index    int `json:"index"`
	Priority int `json:"priority"`
}

type frequencyRecord struct {
	dictionary string
	frequency  float64
	display    *string
}

var leadingDigits = regexp.MustCompile(`^\s*(\d+)`)

// value returns the number a record contributes to rank statistics, or
// false when it contributes nothing.
func (r frequencyRecord) value() (float64, bool) {
	if r.display != nil {
		if m := leadingDigits.FindStringSubmatch(width.Fold.String(*r.display)); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil && n > 0 {
				return n, true
			}
		}
	}
	if r.frequency > 0 {
		return r.frequency, true
	}
	return 0, false
}

// qualifying keeps the first record per dictionary and drops records without
// a positive value.
func qualifying(records []frequencyRecord) []float64 {
	seen := make(map[string]bool)
	var out []float64
	for _, r := range records {
		if seen[r.dictionary] {
			continue
		}
		seen[r.dictionary] = true
		if v, ok := r.value(); ok {
			out = append(out, v)
		}
	}
	return out
}

func harmonicRank(records []frequencyRecord) int {
	values := qualifying(records)
	if len(values) == 0 {
		return -1
	}
	var total float64
	for _, v := range values {
		total += 1 / v
	}
	return int(math.Floor(float64(len(values)) / total))
}

func averageFrequency(records []frequencyRecord) int {
	values := qualifying(records)
	if len(values) == 0 {
		return -1
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return int(math.Floor(total / float64(len(values))))
}

func termRecords(freqs []dictionary.TermFrequency, headwordIndex int) []frequencyRecord {
	var out []frequencyRecord
	for _, f := range freqs {
		if headwordIndex >= 0 && f.HeadwordIndex != headwordIndex {
			continue
		}
		out = append(out, frequencyRecord{dictionary: f.Dictionary, frequency: f.Frequency, display: f.DisplayValue})
	}
	return out
}

func kanjiRecords(freqs []dictionary.KanjiFrequency) []frequencyRecord {
	out := make([]frequencyRecord, 0, len(freqs))
	for _, f := range freqs {
		out = append(out, frequencyRecord{dictionary: f.Dictionary, frequency: f.Frequency, display: f.DisplayValue})
	}
	return out
}

// TermFrequencyHarmonicRank returns floor(n / Σ 1/f) over the qualifying
// frequencies of the headword at headwordIndex (all headwords when negative),
// or -1 when none qualify.
func TermFrequencyHarmonicRank(freqs []dictionary.TermFrequency, headwordIndex int) int {
	return harmonicRank(termRecords(freqs, headwordIndex))
}

// TermFrequencyAverage returns floor(Σ f / n) over the qualifying
// frequencies, or -1 when none qualify.
func TermFrequencyAverage(freqs []dictionary.TermFrequency, headwordIndex int) int {
	return averageFrequency(termRecords(freqs, headwordIndex))
}

func frequencyText(f float64, display *string) string {
	if display != nil {
		return *display
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func termFrequencies(entry *dictionary.TermEntry, headwordIndex int) []Frequency {
	var out []Frequency
	for _, f := range entry.Frequencies {
		if headwordIndex >= 0 && f.HeadwordIndex != headwordIndex {
			continue
		}
		var term, reading string
		if f.HeadwordIndex >= 0 && f.HeadwordIndex < len(entry.Headwords) {
			h := entry.Headwords[f.HeadwordIndex]
			term, reading = h.Term, h.Reading
		}
		out = append(out, Frequency{
			Index:           len(out),
			ExpressionIndex: f.HeadwordIndex,
			Dictionary:      f.Dictionary,
			DictionaryAlias: f.DictionaryAlias,
			DictionaryOrder: DictionaryOrder{Index: f.DictionaryIndex},
			Expression:      term,
			Reading:         reading,
			HasReading:      f.HasReading,
			Frequency:       frequencyText(f.Frequency, f.DisplayValue),
		})
	}
	return out
}

func kanjiFrequencies(entry *dictionary.KanjiEntry) []Frequency {
	out := make([]Frequency, 0, len(entry.Frequencies))
	for i, f := range entry.Frequencies {
		out = append(out, Frequency{
			Index:           i,
			Dictionary:      f.Dictionary,
			DictionaryAlias: f.DictionaryAlias,
			DictionaryOrder: DictionaryOrder{Index: f.DictionaryIndex},
			Character:       f.Character,
			Frequency:       frequencyText(f.Frequency, f.DisplayValue),
		})
	}
	return out
}
