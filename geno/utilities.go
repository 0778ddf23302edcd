package geno

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

func Min(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

func Max(x, y int) int {
	if x <= y {
		return y
	}
	return x
}

// WriteFileAtomic writes through a buffered temporary file in the same
// directory and renames it over filename only if write succeeds, so a failed
// run never leaves a partial output file behind.
func WriteFileAtomic(filename string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	writer := bufio.NewWriter(tmp)
	if err := write(writer); err != nil {
		tmp.Close()
		return err
	}
	if err := writer.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// ReadFile opens filename and hands a buffered reader to read.
func ReadFile(filename string, read func(r io.Reader) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return read(bufio.NewReader(file))
}
