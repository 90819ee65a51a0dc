package plan

import (
	"math"
	"sort"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// commitment is the fixed on/off pattern handed to the LP: commit[t][i] says
// whether pump i runs at step t. Choosing it up front is the MILP-to-LP
// reduction: the binaries are decided by a deterministic price-aware heuristic
// and the LP only optimizes the continuous flows.
type commitment [][]bool

func (c commitment) anyOn(t int) bool {
	for _, on := range c[t] {
		if on {
			return true
		}
	}
	return false
}

// bandAt returns the aggregate min/max flow of the pumps committed at step t.
func (c commitment) bandAt(t int, pumps []model.PumpSpec) (minFlow, maxFlow float64) {
	for i, on := range c[t] {
		if on {
			minFlow += pumps[i].MinFlowM3h
			maxFlow += pumps[i].MaxFlowM3h
		}
	}
	return minFlow, maxFlow
}

// commitInput gathers everything the heuristic needs.
type commitInput struct {
	pumps   []model.PumpSpec // sorted smallest capacity first
	inflow  []float64
	price   []float64
	v0      float64
	vMin    float64
	vMax    float64
	dt      float64
	floor   float64
	ceiling float64
	drift   float64
}

// commitPumps picks the on/off pattern. Cheapest steps are committed first
// until the horizon's unavoidable pumping volume is covered, skipping steps
// where the committed minimum flow would drain below the volume floor; a
// second pass force-commits steps where the ceiling would otherwise be
// breached even at full drain.
func commitPumps(in commitInput) commitment {
	h := len(in.inflow)
	n := len(in.pumps)
	commit := make(commitment, h)
	for t := range commit {
		commit[t] = make([]bool, n)
	}
	if n == 0 || h == 0 {
		return commit
	}

	totalIn := 0.0
	meanIn := 0.0
	for _, v := range in.inflow {
		totalIn += v * in.dt
		meanIn += v
	}
	meanIn /= float64(h)

	mustPump := math.Max(0, totalIn-in.drift)
	budgetMax := math.Min(totalIn+in.drift, in.v0+totalIn-in.vMin)

	prefix := prefixFor(in.pumps, clamp(meanIn, in.floor, in.ceiling))

	order := make([]int, h)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return in.price[order[a]] < in.price[order[b]] })

	capVol, minVol := 0.0, 0.0
	for _, t := range order {
		if capVol >= mustPump {
			break
		}
		setPrefix(commit[t], prefix)
		stepMin, stepMax := commit.bandAt(t, in.pumps)
		stepMin = math.Max(stepMin, in.floor)
		stepMax = math.Min(stepMax, in.ceiling)
		if minVol+stepMin*in.dt > budgetMax || !affordable(commit, in) {
			setPrefix(commit[t], 0)
			continue
		}
		capVol += stepMax * in.dt
		minVol += stepMin * in.dt
	}

	forceForCeiling(commit, in)
	return commit
}

// prefixFor returns the number of pumps, stacked smallest first, whose
// combined capacity covers the wanted total flow. At least one pump.
func prefixFor(pumps []model.PumpSpec, want float64) int {
	sum := 0.0
	for i, p := range pumps {
		sum += p.MaxFlowM3h
		if sum >= want {
			return i + 1
		}
	}
	return len(pumps)
}

func setPrefix(row []bool, k int) {
	for i := range row {
		row[i] = i < k
	}
}

// affordable simulates the horizon with every committed step pumping at its
// band minimum and reports whether the volume stays above the floor. The LP
// may pump more when the volume allows, so this is the conservative check.
func affordable(commit commitment, in commitInput) bool {
	v := in.v0
	for t := range commit {
		out := 0.0
		if commit.anyOn(t) {
			stepMin, _ := commit.bandAt(t, in.pumps)
			out = math.Max(stepMin, in.floor)
		}
		v += (in.inflow[t] - out) * in.dt
		if v < in.vMin {
			return false
		}
	}
	return true
}

// forceForCeiling walks the horizon assuming committed steps pump flat out and
// grows the committed set wherever the volume would still breach the ceiling.
func forceForCeiling(commit commitment, in commitInput) {
	n := len(in.pumps)
	v := in.v0
	for t := range commit {
		for {
			out := 0.0
			if commit.anyOn(t) {
				_, stepMax := commit.bandAt(t, in.pumps)
				out = math.Min(stepMax, in.ceiling)
			}
			next := v + (in.inflow[t]-out)*in.dt
			if next <= in.vMax {
				v = next
				break
			}
			k := committedCount(commit[t])
			if k >= n {
				v = next
				break
			}
			setPrefix(commit[t], k+1)
		}
	}
}

func committedCount(row []bool) int {
	k := 0
	for _, on := range row {
		if on {
			k++
		}
	}
	return k
}

// trackInflowCommitment is the retry pattern when the price-aware pattern
// turns out infeasible: at every step commit just enough pumps to match the
// step's inflow.
func trackInflowCommitment(in commitInput) commitment {
	h := len(in.inflow)
	commit := make(commitment, h)
	for t := range commit {
		commit[t] = make([]bool, len(in.pumps))
		setPrefix(commit[t], prefixFor(in.pumps, clamp(in.inflow[t], in.floor, in.ceiling)))
	}
	forceForCeiling(commit, in)
	return commit
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
