package benchmark

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
)

var sampleTexts = map[string]string{
	"short": "Call me Ishmael. Some years ago, never mind how long precisely.",
	"medium": `It is a way I have of driving off the spleen and regulating the
        circulation. Whenever I find myself growing grim about the mouth; whenever it
        is a damp, drizzly November in my soul; whenever I find myself involuntarily
        pausing before coffin warehouses, and bringing up the rear of every funeral I
        meet, then I account it high time to get to sea as soon as I can.`,
	"chapter": strings.Repeat(`There now is your insular city of the Manhattoes, belted round
        by wharves as Indian isles by coral reefs; commerce surrounds it with her surf.
        Right and left, the streets take you waterward. Its extreme downtown is the
        battery, where that noble mole is washed by waves, and cooled by breezes, which
        a few hours previous were out of sight of land. Look at the crowds of water-gazers
        there. `, 40),
}

func BenchmarkWords(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Words(text)
			}
		})
	}
}

func BenchmarkOccurrences(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Occurrences(text)
			}
		})
	}
}

func BenchmarkCleanContent(b *testing.B) {
	raw := "*** START OF THE PROJECT GUTENBERG EBOOK MOBY DICK ***\n" +
		sampleTexts["chapter"] +
		"\n*** END OF THE PROJECT GUTENBERG EBOOK MOBY DICK ***\nlicense text"
	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	for i := 0; i < b.N; i++ {
		_ = ingestion.CleanContent(raw)
	}
}
