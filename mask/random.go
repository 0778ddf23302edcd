package mask

import (
	"encoding/binary"

	"github.com/aead/chacha20/chacha"
	"github.com/hhcho/frand"
)

const bufferSize int = 1024

// Source draws uniform integers in [0, n).
type Source interface {
	Intn(n int) int
}

// Random is a deterministic PRG keyed by a 64-bit seed, so the same seed
// always masks the same cells.
type Random struct {
	prg *frand.RNG
}

func NewRandom(seed uint64) *Random {
	key := make([]byte, chacha.KeySize)
	binary.LittleEndian.PutUint64(key, seed)
	return &Random{prg: frand.NewCustom(key, bufferSize, 20)}
}

func (r *Random) Intn(n int) int {
	return r.prg.Intn(n)
}
