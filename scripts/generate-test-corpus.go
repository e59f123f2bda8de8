//go:build ignore

// Package main generates a synthetic song corpus for benchmarking sharded
// search and reload.
// Usage: go run scripts/generate-test-corpus.go -songs 20000 -output testdata/bench/songs.json
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/songbook/internal/corpus"
)

var (
	numSongs   = flag.Int("songs", 10000, "Number of songs to generate")
	outputPath = flag.String("output", "testdata/bench/songs.json", "Output corpus file")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
	maxVerses  = flag.Int("verses", 8, "Maximum verses per song")
)

// Syllables and words with the diacritics real transliterations carry, so
// that normalization does real work in benchmarks.
var words = []string{
	"śrī", "kṛṣṇa", "caitanya", "prabhu", "nityānanda", "advaita", "gadādhara",
	"śrīvāsa", "gaura", "bhakta", "vṛnda", "rādhā", "mādhava", "kuñja", "bihārī",
	"gopī", "jana", "vallabha", "giri", "vara", "dhārī", "yaśodā", "nandana",
	"vraja", "jana", "rañjana", "yāmuna", "tīra", "vana", "cārī", "hari", "nāma",
	"saṅkīrtana", "prema", "bhakti", "guru", "vaiṣṇava", "ṭhākura", "mahāprabhu",
}

var translationWords = []string{
	"the", "lord", "of", "mercy", "ocean", "devotees", "glories", "holy", "name",
	"chanting", "dancing", "ecstasy", "spiritual", "master", "benediction", "forest",
	"river", "beloved", "cowherd", "friends", "lotus", "feet", "shelter", "love",
}

var authors = []string{
	"Bhaktivinoda Ṭhākura", "Narottama dāsa Ṭhākura", "Viśvanātha Cakravartī",
	"Locana dāsa Ṭhākura", "Rūpa Gosvāmī", "Jayadeva Gosvāmī", "Vāsudeva Ghoṣa",
}

var books = []string{"Gītāvalī", "Śaraṇāgati", "Prārthanā", "Stava-mālā", "Kalyāṇa-kalpa-taru", ""}

var categories = []string{"guru", "nitai", "gaura", "radha-krsna", "nama", "arati", "prayer"}

func main() {
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	records := make([]*corpus.Record, 0, *numSongs)
	for i := 0; i < *numSongs; i++ {
		records = append(records, generateSong(rng, i))
	}

	c, err := corpus.FromRecords(records, *outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building corpus: %v\n", err)
		os.Exit(1)
	}
	if err := corpus.Save(*outputPath, c); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing corpus: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d songs in %s (fingerprint %s)\n", c.Len(), *outputPath, c.FingerprintHex())
}

func generateSong(rng *rand.Rand, i int) *corpus.Record {
	title := phrase(rng, words, 2+rng.Intn(3))
	rec := &corpus.Record{
		ID:     fmt.Sprintf("%s-%d", corpus.Slug(title), i),
		Title:  capitalize(title),
		Author: authors[rng.Intn(len(authors))],
		Book:   books[rng.Intn(len(books))],
	}

	for n := rng.Intn(3); n > 0; n-- {
		rec.Categories = append(rec.Categories, categories[rng.Intn(len(categories))])
	}

	verses := 1 + rng.Intn(*maxVerses)
	for n := 1; n <= verses; n++ {
		v := corpus.Verse{N: n}
		for l := 0; l < 4; l++ {
			v.Text = append(v.Text, phrase(rng, words, 3+rng.Intn(4)))
		}
		if rng.Intn(4) > 0 {
			v.Translation = []string{capitalize(phrase(rng, translationWords, 8+rng.Intn(12))) + "."}
		}
		if n > 1 && rng.Intn(10) == 0 {
			v.Note = "refrain"
		}
		rec.Verses = append(rec.Verses, v)
	}
	return rec
}

func phrase(rng *rand.Rand, vocabulary []string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = vocabulary[rng.Intn(len(vocabulary))]
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}
