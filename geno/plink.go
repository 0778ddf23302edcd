package geno

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// plinkMetaColumns are FID IID PAT MAT SEX PHENOTYPE.
const plinkMetaColumns = 6

// PlinkRaw is a Plink additive recoding (.raw) file: a header of metadata
// column names followed by SNP names, then one line per sample.
type PlinkRaw struct {
	MetaHead []string
	Snps     []string
	Samples  []string
	Meta     [][]string
	Geno     *Matrix
}

// ReadPlinkRaw parses a .raw file. "NA" is a missing genotype; any other
// token must be 0, 1 or 2.
func ReadPlinkRaw(r io.Reader) (*PlinkRaw, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1<<30)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &MalformedInputError{Reason: "empty plink file"}
	}
	header := strings.Fields(scanner.Text())
	if len(header) < plinkMetaColumns {
		return nil, &MalformedInputError{Line: 1, Reason: "header has fewer than 6 columns"}
	}

	pr := &PlinkRaw{
		MetaHead: header[:plinkMetaColumns],
		Snps:     header[plinkMetaColumns:],
	}
	snpSeen := make(map[string]bool, len(pr.Snps))
	for _, snp := range pr.Snps {
		if snpSeen[snp] {
			return nil, &MalformedInputError{Line: 1, Reason: fmt.Sprintf("repeated SNP %s", snp)}
		}
		snpSeen[snp] = true
	}

	sampleSeen := make(map[string]bool)
	var rows [][]int8
	line := 1
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if len(parts) != plinkMetaColumns+len(pr.Snps) {
			return nil, &MalformedInputError{Line: line, Reason: fmt.Sprintf("expected %d columns, found %d", plinkMetaColumns+len(pr.Snps), len(parts))}
		}
		// Samples are keyed by FID as plink --recodeA writes unique FIDs.
		sample := parts[0]
		if sampleSeen[sample] {
			return nil, &MalformedInputError{Line: line, Reason: fmt.Sprintf("repeated sample %s", sample)}
		}
		sampleSeen[sample] = true

		row := make([]int8, len(pr.Snps))
		for i, p := range parts[plinkMetaColumns:] {
			if p == "NA" {
				row[i] = Missing
				continue
			}
			v, err := parseDosage(p)
			if err != nil || v < 0 {
				return nil, &MalformedInputError{Line: line, Reason: fmt.Sprintf("invalid genotype %q", p)}
			}
			row[i] = v
		}
		pr.Samples = append(pr.Samples, sample)
		pr.Meta = append(pr.Meta, parts[:plinkMetaColumns])
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	m, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	pr.Geno = m
	return pr, nil
}

// Write emits pr with its genotypes replaced by m, which must have the same
// shape. Missing calls are written as NA.
func (pr *PlinkRaw) Write(w io.Writer, m *Matrix) error {
	if m.NumSamples() != len(pr.Samples) || m.NumSites() != len(pr.Snps) {
		return fmt.Errorf("matrix is %dx%d, plink file has %d samples and %d snps",
			m.NumSamples(), m.NumSites(), len(pr.Samples), len(pr.Snps))
	}

	writer := bufio.NewWriter(w)
	writer.WriteString(strings.Join(pr.MetaHead, " "))
	for _, snp := range pr.Snps {
		writer.WriteByte(' ')
		writer.WriteString(snp)
	}
	writer.WriteByte('\n')

	for i := range pr.Samples {
		writer.WriteString(strings.Join(pr.Meta[i], " "))
		for _, v := range m.Row(i) {
			writer.WriteByte(' ')
			if v < 0 {
				writer.WriteString("NA")
			} else {
				writer.WriteByte('0' + byte(v))
			}
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return writer.Flush()
}
