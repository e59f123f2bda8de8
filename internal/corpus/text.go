package corpus

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/normalize"
)

// Song text layout accepted by ParseText:
//
//	Song Name: Śrī Gurv-aṣṭaka
//	Author: Viśvanātha Cakravartī Ṭhākura
//	Book Name: Stava-mālā
//	LYRICS:
//	(1) saṁsāra-dāvānala-līḍha-loka-
//	trāṇāya kāruṇya-ghanāghanatvam
//	(2) ...
//	TRANSLATION
//	1) The spiritual master is receiving benediction ...
//	2) ...
var (
	fieldSongName = regexp.MustCompile(`(?i)Song Name:\s*(.+)`)
	fieldAuthor   = regexp.MustCompile(`(?i)Author:\s*(.+)`)
	fieldBook     = regexp.MustCompile(`(?i)Book Name:\s*(.+)`)

	lyricsSection = regexp.MustCompile(`(?is)LYRICS:\s*(.+?)\n\s*TRANSLATION`)
	verseMarker   = regexp.MustCompile(`\((\d+)\)`)
	transMarker   = regexp.MustCompile(`(?m)^\s*\d+\)`)

	slugRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParseText converts one song in the plain text authoring format into a
// Record. The title and a LYRICS section are required; the TRANSLATION
// section may be empty. Translation entries are numbered in order of
// appearance and attached to the verse with the same number.
func ParseText(raw string) (*Record, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	title := extractField(raw, fieldSongName)
	if title == "" {
		return nil, textError("song name not found")
	}

	loc := lyricsSection.FindStringSubmatchIndex(raw)
	if loc == nil {
		return nil, textError("lyrics section not found").
			WithSuggestion("the LYRICS: section must be followed by a TRANSLATION heading")
	}
	lyrics := strings.TrimSpace(raw[loc[2]:loc[3]])
	translation := strings.TrimSpace(raw[loc[1]:])

	lyricVerses := parseVerses(lyrics)
	if len(lyricVerses) == 0 {
		return nil, textError("no numbered verses found in lyrics").
			WithSuggestion("start each verse with (1), (2), ...")
	}
	translations := parseTranslations(translation)

	numbers := make([]int, 0, len(lyricVerses))
	for n := range lyricVerses {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	id := Slug(title)
	if id == "" {
		return nil, textError("song name has no letters or digits to derive an id from").
			WithDetail("title", title)
	}

	rec := &Record{
		ID:     id,
		Title:  title,
		Author: extractField(raw, fieldAuthor),
		Book:   extractField(raw, fieldBook),
	}
	for _, n := range numbers {
		v := Verse{N: n, Text: lyricVerses[n], Translation: []string{}}
		if t, ok := translations[n]; ok {
			v.Translation = []string{t}
		}
		rec.Verses = append(rec.Verses, v)
	}
	rec.flatten()

	return rec, nil
}

// Slug derives a record ID from a title: diacritics are folded first, then
// every run of characters outside [a-z0-9] becomes a single hyphen.
func Slug(title string) string {
	s := slugRun.ReplaceAllString(normalize.String(title), "-")
	return strings.Trim(s, "-")
}

func extractField(raw string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseVerses splits the lyrics on (n) markers. Text before the first marker
// is ignored and a repeated number replaces the earlier verse.
func parseVerses(section string) map[int][]string {
	markers := verseMarker.FindAllStringSubmatchIndex(section, -1)
	verses := make(map[int][]string, len(markers))

	for i, m := range markers {
		n, err := strconv.Atoi(section[m[2]:m[3]])
		if err != nil {
			continue
		}
		end := len(section)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		lines := []string{}
		for _, line := range strings.Split(section[m[1]:end], "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		verses[n] = lines
	}
	return verses
}

// parseTranslations splits the translation section on "n)" markers at line
// starts. Entries are numbered 1, 2, ... in order; wrapped lines of one entry
// are joined with single spaces.
func parseTranslations(section string) map[int]string {
	markers := transMarker.FindAllStringIndex(section, -1)
	out := make(map[int]string, len(markers))

	for i, m := range markers {
		end := len(section)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		text := strings.Join(strings.Fields(section[m[1]:end]), " ")
		if text != "" {
			out[i+1] = text
		}
	}
	return out
}

func textError(msg string) *sberrors.SongbookError {
	return sberrors.New(sberrors.ErrCodeInvalidSongText, msg, nil)
}
