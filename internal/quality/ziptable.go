package quality

import (
	_ "embed"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed cityzip.yaml
var cityZipData []byte

type cityEntry struct {
	City    string   `yaml:"city"`
	Aliases []string `yaml:"aliases"`
	Ranges  [][2]int `yaml:"ranges"`
}

// cityZipRanges maps normalized city names (and aliases) to their inclusive
// postal code ranges. Built once at init from the embedded table.
var cityZipRanges = loadCityZipRanges()

func loadCityZipRanges() map[string][][2]int {
	var entries []cityEntry
	if err := yaml.Unmarshal(cityZipData, &entries); err != nil {
		panic("quality: parse embedded city zip table: " + err.Error())
	}
	m := make(map[string][][2]int, len(entries))
	for _, e := range entries {
		m[normalizeCity(e.City)] = e.Ranges
		for _, alias := range e.Aliases {
			m[normalizeCity(alias)] = e.Ranges
		}
	}
	return m
}

// lookupCityRanges returns the postal code ranges for a city. The lookup is
// case-insensitive and ignores diacritics, so "München", "muenchen" and
// "Munich" all resolve to the same entry.
func lookupCityRanges(city string) ([][2]int, bool) {
	ranges, ok := cityZipRanges[normalizeCity(city)]
	return ranges, ok
}

// normalizeCity lowercases and strips diacritics. The transformer chain is
// built per call; transform.Transformer values are not safe for concurrent use.
func normalizeCity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ß", "ss")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return s
}

func parseZip(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
