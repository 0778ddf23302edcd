// Package optimize searches small positive integer parameter vectors for the
// largest value of an objective without trying every combination.
//
// Each dimension is searched by widening a (low, mid, high) bracket while the
// objective keeps improving and then narrowing it around the best point.
// Dimensions nest: every candidate of dimension i runs a full search of
// dimension i+1, and the last dimension evaluates the objective.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"go.dedis.ch/onet/v3/log"
)

// Objective scores one parameter vector; higher is better.
type Objective func(ctx context.Context, params []int) (float64, error)

type Result struct {
	Params []int
	Value  float64
	// Evaluations counts distinct objective calls.
	Evaluations int
}

// Failed wraps the error that aborted a search.
type Failed struct {
	Cause error
}

func (e *Failed) Error() string {
	return "optimize: " + e.Cause.Error()
}

func (e *Failed) Unwrap() error {
	return e.Cause
}

type search struct {
	objective Objective
	startMax  []int
	absMax    []int

	memo  map[string]float64
	best  float64
	bestP []int
}

// Optimize returns the best parameter vector seen anywhere during the
// search, not only the final bracket, since the objective need not be
// unimodal. startMax seeds the initial bracket of each dimension and no
// parameter is ever tried above absMax.
func Optimize(ctx context.Context, objective Objective, startMax, absMax []int) (Result, error) {
	if len(startMax) != len(absMax) {
		return Result{}, fmt.Errorf("optimize: startMax has %d dimensions, absMax %d", len(startMax), len(absMax))
	}
	if len(startMax) == 0 {
		return Result{}, errors.New("optimize: no parameters")
	}

	s := &search{
		objective: objective,
		startMax:  startMax,
		absMax:    absMax,
		memo:      make(map[string]float64),
		best:      math.Inf(-1),
	}
	if _, err := s.optimize(ctx, 0, make([]int, len(startMax))); err != nil {
		return Result{}, err
	}
	return Result{Params: s.bestP, Value: s.best, Evaluations: len(s.memo)}, nil
}

// initialHigh is twice the highest power of two not above startMax-2, plus
// one, and at least 3.
func initialHigh(startMax int) int {
	if startMax-2 <= 0 {
		return 3
	}
	highestOneBit := 1 << (bits.Len(uint(startMax-2)) - 1)
	return max(3, highestOneBit*2+1)
}

func (s *search) optimize(ctx context.Context, pos int, vv []int) (float64, error) {
	low := 1
	high := initialHigh(s.startMax[pos])
	mid := (low + high) / 2

	lvalue, err := s.value(ctx, pos, low, vv)
	if err != nil {
		return 0, err
	}
	uvalue, err := s.value(ctx, pos, high, vv)
	if err != nil {
		return 0, err
	}
	mvalue, err := s.value(ctx, pos, mid, vv)
	if err != nil {
		return 0, err
	}

	// Still climbing at the top of the bracket: widen it.
	for uvalue > mvalue && mvalue > lvalue && high <= s.absMax[pos] {
		mid, mvalue = high, uvalue
		high = 2*high + 1
		if uvalue, err = s.value(ctx, pos, high, vv); err != nil {
			return 0, err
		}
	}

	for high-mid > 1 {
		bot := (low + mid) / 2
		botvalue, err := s.value(ctx, pos, bot, vv)
		if err != nil {
			return 0, err
		}
		top := (mid + high) / 2
		topvalue, err := s.value(ctx, pos, top, vv)
		if err != nil {
			return 0, err
		}

		switch {
		case lvalue >= botvalue:
			high, uvalue = mid, mvalue
			mid, mvalue = bot, botvalue
		case botvalue > lvalue && botvalue >= mvalue:
			high, uvalue = mid, mvalue
			mid, mvalue = bot, botvalue
		case mvalue > botvalue && mvalue >= topvalue:
			low, lvalue = bot, botvalue
			high, uvalue = top, topvalue
		case topvalue > mvalue && topvalue >= uvalue:
			low, lvalue = mid, mvalue
			mid, mvalue = top, topvalue
		case uvalue > topvalue:
			low, lvalue = mid, mvalue
			mid, mvalue = top, topvalue
		default:
			// NaN somewhere; keep mid and close in around it.
			low, lvalue = bot, botvalue
			high, uvalue = top, topvalue
		}
	}

	switch {
	case uvalue > mvalue:
		vv[pos] = high
		return uvalue, nil
	case lvalue >= mvalue:
		vv[pos] = low
		return lvalue, nil
	default:
		vv[pos] = mid
		return mvalue, nil
	}
}

func key(vv []int) string {
	parts := make([]string, len(vv))
	for i, v := range vv {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (s *search) value(ctx context.Context, pos, v int, vv []int) (float64, error) {
	if v > s.absMax[pos] {
		return -math.MaxFloat64, nil
	}
	vv[pos] = v
	if pos < len(vv)-1 {
		return s.optimize(ctx, pos+1, vv)
	}

	k := key(vv)
	if val, ok := s.memo[k]; ok {
		return val, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, &Failed{Cause: err}
	}
	params := append([]int(nil), vv...)
	val, err := s.objective(ctx, params)
	if err != nil {
		return 0, &Failed{Cause: err}
	}
	s.memo[k] = val
	log.Lvl2("params", params, "value", val)

	if val > s.best {
		s.best = val
		s.bestP = params
	}
	return val, nil
}
