// Package genomics implements the builtin sequence analysis primitives
// exposed through the function registry.
package genomics

import (
	"fmt"
	"strings"
)

var complements = map[byte]byte{
	'A': 'T', 'T': 'A', 'G': 'C', 'C': 'G',
	'N': 'N', 'a': 't', 't': 'a', 'g': 'c', 'c': 'g', 'n': 'n',
}

// geneticCode is the standard genetic code, DNA codons to amino acids.
// '*' marks a stop codon.
var geneticCode = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',
	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',
	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// ReverseComplement returns the reverse complement of a DNA sequence
func ReverseComplement(sequence string) (string, error) {
	out := make([]byte, len(sequence))
	for i := 0; i < len(sequence); i++ {
		c, ok := complements[sequence[i]]
		if !ok {
			return "", fmt.Errorf("invalid nucleotide %q at position %d", sequence[i], i)
		}
		out[len(sequence)-1-i] = c
	}
	return string(out), nil
}

// GCContent returns the GC fraction of a DNA sequence in [0, 1]
func GCContent(sequence string) (float64, error) {
	if sequence == "" {
		return 0, fmt.Errorf("sequence is empty")
	}
	gc := 0
	for i := 0; i < len(sequence); i++ {
		switch sequence[i] {
		case 'G', 'C', 'g', 'c':
			gc++
		case 'A', 'T', 'N', 'a', 't', 'n':
		default:
			return 0, fmt.Errorf("invalid nucleotide %q at position %d", sequence[i], i)
		}
	}
	return float64(gc) / float64(len(sequence)), nil
}

// Translate translates a DNA sequence into a protein sequence, stopping at
// the first stop codon. Trailing bases short of a codon are ignored.
func Translate(sequence string) (string, error) {
	seq := strings.ToUpper(sequence)
	var protein strings.Builder
	for i := 0; i+3 <= len(seq); i += 3 {
		aa, ok := geneticCode[seq[i:i+3]]
		if !ok {
			return "", fmt.Errorf("invalid codon %q at position %d", seq[i:i+3], i)
		}
		if aa == '*' {
			break
		}
		protein.WriteByte(aa)
	}
	return protein.String(), nil
}

// ORF describes one open reading frame found in a sequence
type ORF struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Strand  string `json:"strand"`
	Frame   int    `json:"frame"`
	Protein string `json:"protein"`
}

// FindORFs locates open reading frames of at least minLength amino acids on
// both strands. Coordinates are zero-based half-open over the input sequence.
func FindORFs(sequence string, minLength int) ([]ORF, error) {
	if minLength < 1 {
		minLength = 1
	}
	seq := strings.ToUpper(sequence)

	var orfs []ORF
	scan := func(s string, strand string) error {
		for frame := 0; frame < 3; frame++ {
			for i := frame; i+3 <= len(s); i += 3 {
				if s[i:i+3] != "ATG" {
					continue
				}
				for j := i + 3; j+3 <= len(s); j += 3 {
					aa, ok := geneticCode[s[j:j+3]]
					if !ok {
						return fmt.Errorf("invalid codon %q at position %d", s[j:j+3], j)
					}
					if aa != '*' {
						continue
					}
					if length := (j - i) / 3; length >= minLength {
						protein, err := Translate(s[i:j])
						if err != nil {
							return err
						}
						start, end := i, j+3
						if strand == "-" {
							start, end = len(s)-(j+3), len(s)-i
						}
						orfs = append(orfs, ORF{
							Start:   start,
							End:     end,
							Strand:  strand,
							Frame:   frame,
							Protein: protein,
						})
					}
					i = j
					break
				}
			}
		}
		return nil
	}

	if err := scan(seq, "+"); err != nil {
		return nil, err
	}
	rc, err := ReverseComplement(seq)
	if err != nil {
		return nil, err
	}
	if err := scan(rc, "-"); err != nil {
		return nil, err
	}

	return orfs, nil
}
