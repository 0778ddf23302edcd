package ld

import (
	"fmt"
	"math"
	"strings"

	"github.com/hhcho/ldknni/geno"
)

// Method selects how the correlation between two sites is scored.
type Method int

const (
	Pearson Method = iota
	Hamming
	EM
)

func (m Method) String() string {
	switch m {
	case Pearson:
		return "pearson"
	case Hamming:
		return "hamming"
	case EM:
		return "em"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a config name to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "", "pearson":
		return Pearson, nil
	case "hamming":
		return Hamming, nil
	case "em":
		return EM, nil
	}
	return Pearson, fmt.Errorf("unknown correlation method %q", name)
}

// ScoreFunc scores two equal-length site vectors; higher means more alike.
type ScoreFunc func(a, b []int8) float64

func (m Method) scoreFunc() ScoreFunc {
	switch m {
	case Hamming:
		return hamming
	case EM:
		return emR2
	default:
		return pearsonR2
	}
}

// Score correlates two site vectors with method m.
func (m Method) Score(a, b []int8) (float64, error) {
	if len(a) != len(b) {
		return 0, &geno.MalformedInputError{Reason: fmt.Sprintf("site vectors of length %d and %d", len(a), len(b))}
	}
	return m.scoreFunc()(a, b), nil
}

// counts is the 3x3 table of dosage pairs over samples called at both sites.
func counts(a, b []int8) (c [3][3]int) {
	for i := range a {
		if a[i] >= 0 && b[i] >= 0 {
			c[a[i]][b[i]]++
		}
	}
	return
}

// pearsonR2 is the squared Pearson correlation over co-called samples. A
// site without variance among them scores 0.
func pearsonR2(a, b []int8) float64 {
	c := counts(a, b)

	n, tota, totb := 0, 0, 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			n += c[i][j]
			tota += i * c[i][j]
			totb += j * c[i][j]
		}
	}
	if n == 0 {
		return 0
	}
	meana := float64(tota) / float64(n)
	meanb := float64(totb) / float64(n)

	var xy, xx, yy float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cnt := float64(c[i][j])
			da := float64(i) - meana
			db := float64(j) - meanb
			xy += cnt * da * db
			xx += cnt * da * da
			yy += cnt * db * db
		}
	}
	if xx == 0 || yy == 0 {
		return 0
	}
	return (xy * xy) / (xx * yy)
}

// hamming is the fraction of samples with identical values, missing included.
func hamming(a, b []int8) float64 {
	if len(a) == 0 {
		return 0
	}
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

// goldenRatio is the golden-section step (3 - sqrt(5)) / 2.
var goldenRatio = (3.0 - math.Sqrt(5.0)) / 2.0

const emTolerance = 1e-4

// emR2 estimates r^2 from the maximum likelihood two-locus haplotype
// frequency, found with a golden-section search over the feasible range.
func emR2(a, b []int8) float64 {
	c := counts(a, b)

	suma, sumb := 0, 0
	for i := range a {
		if a[i] >= 0 {
			suma += int(a[i])
		}
		if b[i] >= 0 {
			sumb += int(b[i])
		}
	}
	if len(a) == 0 {
		return 0
	}
	pA := 1.0 - 0.5*float64(suma)/float64(len(a))
	pB := 1.0 - 0.5*float64(sumb)/float64(len(b))

	denom := pA * (1.0 - pA) * pB * (1.0 - pB)
	if denom <= 0 {
		return 0
	}

	pAB := maxPAB(&c, pA, pB)
	d := pAB - pA*pB
	return (d * d) / denom
}

func maxPAB(c *[3][3]int, pA, pB float64) float64 {
	lo := pA*pB + math.Max(-pA*pB, -(1.0-pA)*(1.0-pB))
	hi := pA*pB + math.Min(pA*(1.0-pB), pB*(1.0-pA))

	x1 := lo + goldenRatio*(hi-lo)
	x2 := hi - goldenRatio*(hi-lo)
	f1 := logLikelihood(x1, c, pA, pB)
	f2 := logLikelihood(x2, c, pA, pB)
	for hi-lo >= emTolerance {
		if f1 < f2 {
			lo = x1
			x1, f1 = x2, f2
			x2 = hi - goldenRatio*(hi-lo)
			f2 = logLikelihood(x2, c, pA, pB)
		} else {
			hi = x2
			x2, f2 = x1, f1
			x1 = lo + goldenRatio*(hi-lo)
			f1 = logLikelihood(x1, c, pA, pB)
		}
	}
	return (lo + hi) / 2.0
}

// logLikelihood of haplotype frequency pAB given the genotype pair counts,
// with the double heterozygote contributing both phases.
func logLikelihood(pAB float64, c *[3][3]int, pA, pB float64) float64 {
	pAb := pA - pAB
	paB := pB - pAB
	pab := 1 - pA - pB + pAB

	return logTerm(2*c[0][0]+c[0][1]+c[1][0], pAB) +
		logTerm(2*c[0][2]+c[0][1]+c[1][2], pAb) +
		logTerm(2*c[2][0]+c[1][0]+c[2][1], paB) +
		logTerm(2*c[2][2]+c[1][2]+c[2][1], pab) +
		logTerm(c[1][1], pAB*pab+pAb*paB)
}

// logTerm is n*log(p), taking 0*log(0) as 0 and infeasible p as -Inf.
func logTerm(n int, p float64) float64 {
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return math.Inf(-1)
	}
	return float64(n) * math.Log(p)
}
