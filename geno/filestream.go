package geno

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// GenoFileStream reads a binary genotype matrix row by row: one signed byte
// per call, row-major, negative values for missing calls, no header.
type GenoFileStream struct {
	filename  string
	file      *os.File
	reader    *bufio.Reader
	numRows   uint64
	numCols   uint64
	lineCount uint64
	buf       []byte
}

// NewGenoFileStream opens filename as a stream of numCol-wide rows. When
// numRow is zero it is derived from the file size.
func NewGenoFileStream(filename string, numRow, numCol uint64) (*GenoFileStream, error) {
	if numCol == 0 {
		return nil, fmt.Errorf("number of columns must be set for %s", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	if numRow == 0 {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, err
		}
		if uint64(info.Size())%numCol != 0 {
			file.Close()
			return nil, &MalformedInputError{Reason: fmt.Sprintf("%s: size %d is not a multiple of %d sites", filename, info.Size(), numCol)}
		}
		numRow = uint64(info.Size()) / numCol
	}

	return &GenoFileStream{
		filename:  filename,
		file:      file,
		buf:       make([]byte, numCol),
		numRows:   numRow,
		numCols:   numCol,
		reader:    bufio.NewReader(file),
		lineCount: 0,
	}, nil
}

func (gfs *GenoFileStream) readRow() ([]int8, error) {
	if _, err := io.ReadFull(gfs.reader, gfs.buf); err != nil {
		return nil, fmt.Errorf("%s row %d: %w", gfs.filename, gfs.lineCount, err)
	}

	row := make([]int8, len(gfs.buf))
	for i := range gfs.buf {
		v := int8(gfs.buf[i])
		if v < 0 {
			v = Missing
		}
		if v > 2 {
			return nil, &MalformedInputError{Line: int(gfs.lineCount) + 1, Reason: fmt.Sprintf("invalid genotype %d at site %d", v, i)}
		}
		row[i] = v
	}

	gfs.lineCount++
	return row, nil
}

func (gfs *GenoFileStream) Reset() error {
	var err error
	if gfs.file == nil {
		gfs.file, err = os.Open(gfs.filename)
	} else {
		_, err = gfs.file.Seek(0, io.SeekStart)
	}
	if err != nil {
		return err
	}

	gfs.reader = bufio.NewReader(gfs.file)
	gfs.lineCount = 0
	return nil
}

func (gfs *GenoFileStream) CheckEOF() bool {
	if gfs.lineCount >= gfs.numRows {
		gfs.Close()
		return true
	}
	return false
}

func (gfs *GenoFileStream) Close() error {
	var err error
	if gfs.file != nil {
		err = gfs.file.Close()
	}
	gfs.file = nil
	gfs.reader = nil
	return err
}

// NextRow returns the next row, or nil and io.EOF once all rows are read.
func (gfs *GenoFileStream) NextRow() ([]int8, error) {
	if gfs.CheckEOF() {
		return nil, io.EOF
	}
	return gfs.readRow()
}

// ToMatrix reads the whole stream from the start and closes it.
func (gfs *GenoFileStream) ToMatrix() (*Matrix, error) {
	defer gfs.Close()
	if err := gfs.Reset(); err != nil {
		return nil, err
	}
	m := Zeros(int(gfs.numRows), int(gfs.numCols))
	for i := 0; i < int(gfs.numRows); i++ {
		row, err := gfs.NextRow()
		if err != nil {
			return nil, err
		}
		copy(m.data[i*m.cols:], row)
	}
	return m, nil
}

// WriteGenoBinary writes m in the format read by GenoFileStream.
func WriteGenoBinary(w io.Writer, m *Matrix) error {
	writer := bufio.NewWriter(w)
	buf := make([]byte, m.NumSites())
	for i := 0; i < m.NumSamples(); i++ {
		for j, v := range m.Row(i) {
			buf[j] = byte(v)
		}
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	return writer.Flush()
}
