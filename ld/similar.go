package ld

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hhcho/ldknni/geno"
)

// Index returns, for a site, the other sites ordered by decreasing
// correlation.
type Index interface {
	Similar(site int) []int
	Len() int
}

// Stored is a precomputed index. It is read-only after construction.
type Stored struct {
	sim [][]int
}

func NewStored(sim [][]int) *Stored {
	return &Stored{sim: sim}
}

func (s *Stored) Similar(site int) []int {
	if site < 0 || site >= len(s.sim) {
		return nil
	}
	return s.sim[site]
}

func (s *Stored) Len() int {
	return len(s.sim)
}

// Truncate returns an index keeping at most n sites per entry.
func (s *Stored) Truncate(n int) *Stored {
	out := make([][]int, len(s.sim))
	for i, row := range s.sim {
		out[i] = row[:geno.Min(n, len(row))]
	}
	return NewStored(out)
}

// WriteTo writes one line per site: the site id then its similar sites, tab
// separated.
func (s *Stored) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for i, row := range s.sim {
		var sb strings.Builder
		sb.WriteString(strconv.Itoa(i))
		for _, j := range row {
			sb.WriteByte('\t')
			sb.WriteString(strconv.Itoa(j))
		}
		sb.WriteByte('\n')
		n, err := bw.WriteString(sb.String())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// ReadStored parses an LD file for numSites sites. Lines may come in any
// order and sites without a line get an empty list.
func ReadStored(r io.Reader, numSites int) (*Stored, error) {
	sim := make([][]int, numSites)
	seen := make([]bool, numSites)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
		if len(fields) == 1 && fields[0] == "" {
			continue
		}
		ids := make([]int, len(fields))
		for i, f := range fields {
			id, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, &geno.MalformedInputError{Line: line, Reason: fmt.Sprintf("bad site id %q", f)}
			}
			if id < 0 || id >= numSites {
				return nil, &geno.MalformedInputError{Line: line, Reason: fmt.Sprintf("site id %d out of range [0,%d)", id, numSites)}
			}
			ids[i] = id
		}
		site := ids[0]
		if seen[site] {
			return nil, &geno.MalformedInputError{Line: line, Reason: fmt.Sprintf("site %d listed twice", site)}
		}
		seen[site] = true
		sim[site] = ids[1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for i := range sim {
		if sim[i] == nil {
			sim[i] = []int{}
		}
	}
	return NewStored(sim), nil
}

// Calculated computes the similar sites of a site when first asked for them.
// Results are kept in a bounded LRU cache and concurrent requests for the
// same site share one computation.
type Calculated struct {
	sites  *geno.Matrix
	n      int
	method Method

	cache *lru.Cache[int, []int]
	group singleflight.Group
}

// NewCalculated indexes the sites of m, keeping the top n per site and at
// most cacheSize sites in memory.
func NewCalculated(m *geno.Matrix, n int, method Method, cacheSize int) (*Calculated, error) {
	cache, err := lru.New[int, []int](geno.Max(cacheSize, 1))
	if err != nil {
		return nil, err
	}
	return &Calculated{
		sites:  m.T(),
		n:      n,
		method: method,
		cache:  cache,
	}, nil
}

func (c *Calculated) Similar(site int) []int {
	if site < 0 || site >= c.sites.NumSamples() {
		return nil
	}
	if sim, ok := c.cache.Get(site); ok {
		return sim
	}
	v, _, _ := c.group.Do(strconv.Itoa(site), func() (any, error) {
		sim := TopNSite(c.sites, site, c.n, c.method)
		c.cache.Add(site, sim)
		return sim, nil
	})
	return v.([]int)
}

func (c *Calculated) Len() int {
	return c.sites.NumSamples()
}

// Precompute materializes c into a Stored index.
func (c *Calculated) Precompute(ctx context.Context, opts Options) (*Stored, error) {
	opts.Method = c.method
	return TopN(ctx, c.sites.T(), c.n, opts)
}
