package genomics

import (
	"fmt"
	"math"
	"strings"
)

// ecoliCodonFreq holds E. coli K-12 codon usage frequencies per amino acid,
// taken from published usage tables.
var ecoliCodonFreq = map[byte]map[string]float64{
	'F': {"TTT": 0.58, "TTC": 0.42},
	'L': {"TTA": 0.14, "TTG": 0.13, "CTT": 0.12, "CTC": 0.10, "CTA": 0.04, "CTG": 0.47},
	'S': {"TCT": 0.17, "TCC": 0.15, "TCA": 0.14, "TCG": 0.14, "AGT": 0.16, "AGC": 0.25},
	'Y': {"TAT": 0.59, "TAC": 0.41},
	'C': {"TGT": 0.46, "TGC": 0.54},
	'W': {"TGG": 1.00},
	'P': {"CCT": 0.18, "CCC": 0.13, "CCA": 0.20, "CCG": 0.49},
	'H': {"CAT": 0.57, "CAC": 0.43},
	'Q': {"CAA": 0.34, "CAG": 0.66},
	'R': {"CGT": 0.36, "CGC": 0.36, "CGA": 0.07, "CGG": 0.11, "AGA": 0.07, "AGG": 0.04},
	'I': {"ATT": 0.49, "ATC": 0.39, "ATA": 0.11},
	'M': {"ATG": 1.00},
	'T': {"ACT": 0.19, "ACC": 0.40, "ACA": 0.17, "ACG": 0.25},
	'N': {"AAT": 0.49, "AAC": 0.51},
	'K': {"AAA": 0.74, "AAG": 0.26},
	'V': {"GTT": 0.28, "GTC": 0.20, "GTA": 0.17, "GTG": 0.35},
	'A': {"GCT": 0.18, "GCC": 0.26, "GCA": 0.23, "GCG": 0.33},
	'D': {"GAT": 0.63, "GAC": 0.37},
	'E': {"GAA": 0.68, "GAG": 0.32},
	'G': {"GGT": 0.35, "GGC": 0.37, "GGA": 0.13, "GGG": 0.15},
}

// CodonUsage summarizes codon usage of a coding sequence
type CodonUsage struct {
	Counts      map[string]int     `json:"counts"`
	Frequencies map[string]float64 `json:"frequencies"`
	TotalCodons int                `json:"total_codons"`
	CAI         float64            `json:"cai"`
}

// AnalyzeCodonUsage counts codon usage over a coding sequence and computes
// the codon adaptation index against E. coli K-12 reference frequencies.
// The sequence length must be a multiple of three.
func AnalyzeCodonUsage(sequence string) (*CodonUsage, error) {
	seq := strings.ToUpper(sequence)
	if len(seq) == 0 || len(seq)%3 != 0 {
		return nil, fmt.Errorf("coding sequence length %d is not a multiple of three", len(seq))
	}

	counts := make(map[string]int)
	total := 0
	logSum := 0.0
	scored := 0

	for i := 0; i+3 <= len(seq); i += 3 {
		codon := seq[i : i+3]
		aa, ok := geneticCode[codon]
		if !ok {
			return nil, fmt.Errorf("invalid codon %q at position %d", codon, i)
		}
		if aa == '*' {
			continue
		}
		counts[codon]++
		total++

		// Relative adaptiveness w = f(codon) / f(best synonymous codon).
		freqs := ecoliCodonFreq[aa]
		best := 0.0
		for _, f := range freqs {
			if f > best {
				best = f
			}
		}
		// Single-codon amino acids contribute w=1 and carry no signal.
		if len(freqs) <= 1 || best == 0 {
			continue
		}
		w := freqs[codon] / best
		if w <= 0 {
			w = 0.01
		}
		logSum += math.Log(w)
		scored++
	}

	if total == 0 {
		return nil, fmt.Errorf("no codons in sequence")
	}

	usage := &CodonUsage{
		Counts:      counts,
		Frequencies: make(map[string]float64, len(counts)),
		TotalCodons: total,
	}
	for codon, n := range counts {
		usage.Frequencies[codon] = float64(n) / float64(total)
	}
	if scored > 0 {
		usage.CAI = math.Exp(logSum / float64(scored))
	} else {
		usage.CAI = 1.0
	}

	return usage, nil
}
