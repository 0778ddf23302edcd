package geno

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadArray reads the plain array format: one sample per line, whitespace
// separated dosages in {-1, 0, 1, 2}.
func ReadArray(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1<<30)

	var rows [][]int8
	numSites := -1
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if numSites < 0 {
			numSites = len(parts)
		}
		if len(parts) != numSites {
			return nil, &MalformedInputError{Line: line, Reason: fmt.Sprintf("expected %d sites, found %d", numSites, len(parts))}
		}

		row := make([]int8, len(parts))
		for i, p := range parts {
			v, err := parseDosage(p)
			if err != nil {
				return nil, &MalformedInputError{Line: line, Reason: err.Error()}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewMatrix(rows)
}

// WriteArray writes m in the array format with tab separators.
func WriteArray(w io.Writer, m *Matrix) error {
	writer := bufio.NewWriter(w)
	var buf []byte
	for i := 0; i < m.NumSamples(); i++ {
		buf = buf[:0]
		for j, v := range m.Row(i) {
			if j > 0 {
				buf = append(buf, '\t')
			}
			buf = strconv.AppendInt(buf, int64(v), 10)
		}
		buf = append(buf, '\n')
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func parseDosage(s string) (int8, error) {
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil || !ValidDosage(int8(v)) {
		return 0, fmt.Errorf("invalid genotype %q", s)
	}
	return int8(v), nil
}
