package geno

// Params are the run parameters resolved against the dimensions of the
// matrix being imputed.
type Params struct {
	numSamples int
	numSites   int

	K     int
	L     int
	LdNum int

	StartMax []int
	AbsMax   []int

	// MaskNum is zero when the mask size should default to a fraction of
	// the known genotypes.
	MaskNum int
}

// ldNumOptimize is the number of correlated sites kept per site when l is
// going to be searched for.
const ldNumOptimize = 100

func InitParams(config *Config, m *Matrix) *Params {
	numSamples, numSites := m.Dims()
	params := &Params{
		numSamples: numSamples,
		numSites:   numSites,
		K:          config.Neighbours,
		L:          config.Snps,
		LdNum:      config.LdNum,
		MaskNum:    config.MaskNum,
	}

	if params.LdNum == 0 {
		params.LdNum = params.L
		if config.Optimize {
			params.LdNum = ldNumOptimize
		}
	}
	params.LdNum = Min(params.LdNum, Max(numSites-1, 0))

	absK := config.AbsMaxK
	if absK <= 0 || absK > numSamples-1 {
		absK = Max(numSamples-1, 1)
	}
	absL := config.AbsMaxL
	if absL <= 0 || absL > params.LdNum {
		absL = Max(params.LdNum, 1)
	}

	switch config.Method {
	case "knn":
		params.StartMax = []int{config.StartMaxK}
		params.AbsMax = []int{absK}
	default:
		params.StartMax = []int{config.StartMaxK, config.StartMaxL}
		params.AbsMax = []int{absK, absL}
	}
	return params
}

func (p *Params) NumSamples() int {
	return p.numSamples
}

func (p *Params) NumSites() int {
	return p.numSites
}
