//go:build ignore

// generate_testdata.go creates sentence files for batch benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   testdata/sentences/small.txt   (100 sentences)
//   testdata/sentences/medium.txt  (1000 sentences)
//   testdata/sentences/large.txt   (10000 sentences)
//
// Feed a file to the CLI with: spangraph -db :memory: -batch testdata/sentences/medium.txt
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/spangraph/pkg/spans"
)

type datasetSpec struct {
	name string
	size int
}

var datasets = []datasetSpec{
	{"small", 100},
	{"medium", 1000},
	{"large", 10000},
}

const (
	minWords = 3
	maxWords = 24
)

func main() {
	outputDir := filepath.Join("testdata", "sentences")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	var vocab []string
	for _, ex := range spans.Examples {
		vocab = append(vocab, spans.Tokenize(ex)...)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d sentences)...\n", ds.name, ds.size)

		rng := rand.New(rand.NewSource(int64(ds.size))) // reproducible per size
		path := filepath.Join(outputDir, ds.name+".txt")
		if err := writeDataset(path, ds, vocab, rng); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  Written to %s\n", path)
	}
	fmt.Println("\nDone!")
}

func writeDataset(path string, ds datasetSpec, vocab []string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s: %d generated sentences\n", ds.name, ds.size)
	for i := 0; i < ds.size; i++ {
		n := minWords + rng.Intn(maxWords-minWords+1)
		words := make([]string, n)
		for j := range words {
			words[j] = vocab[rng.Intn(len(vocab))]
		}
		// Tag each line so duplicates across the file stay rare.
		fmt.Fprintf(w, "%s #%d\n", strings.Join(words, " "), i)
	}
	return w.Flush()
}
