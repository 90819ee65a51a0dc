package plan

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/Sukarth/wastewater-optimization/core/model"
)

// lpProblem is the assembled linear program in general form:
// minimize c'x subject to Gx <= h, Ax = b.
type lpProblem struct {
	c []float64
	g *mat.Dense
	h []float64
	a *mat.Dense
	b []float64

	// fIdx[t][i] is the variable index of pump i's flow at step t, or -1 when
	// the pump is not committed there.
	fIdx [][]int
	nVar int
	// cost coefficients of the flow variables, for reporting the electricity
	// part of the objective separately from the penalty terms.
	costCoef []float64
}

// solveLP converts the general form to standard form and runs the simplex
// method. It can be overridden in tests to simulate solver failures.
func solveLP(p *lpProblem) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(p.c, p.g, p.h, p.a, p.b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	return sol, err
}

var lpSolve = solveLP

// lpInput collects the horizon data the builder needs.
type lpInput struct {
	pumps     []model.PumpSpec
	commit    commitment
	inflow    []float64
	price     []float64
	lastFlows map[string]float64
	v0        float64
	vMin      float64
	vMax      float64
	vTarget   float64
	headM     float64
	rhoG      float64
	dt        float64
	cfg       Config
}

//gocyclo:ignore
func buildLP(in lpInput) *lpProblem {
	h := len(in.inflow)
	n := len(in.pumps)

	p := &lpProblem{fIdx: make([][]int, h)}
	for t := 0; t < h; t++ {
		p.fIdx[t] = make([]int, n)
		for i := range p.fIdx[t] {
			p.fIdx[t][i] = -1
		}
	}
	idx := 0
	for t := 0; t < h; t++ {
		for i := 0; i < n; i++ {
			if in.commit[t][i] {
				p.fIdx[t][i] = idx
				idx++
			}
		}
	}
	nOn := idx
	dposAt := func(t int) int { return nOn + 2*t }
	dnegAt := func(t int) int { return nOn + 2*t + 1 }
	cposAt := func(t int) int { return nOn + 2*h + 2*t }
	cnegAt := func(t int) int { return nOn + 2*h + 2*t + 1 }
	uposAt := func(i int) int { return nOn + 4*h + 2*i }
	unegAt := func(i int) int { return nOn + 4*h + 2*i + 1 }
	p.nVar = nOn + 4*h + 2*n

	// objective
	p.c = make([]float64, p.nVar)
	p.costCoef = make([]float64, p.nVar)
	for t := 0; t < h; t++ {
		for i, pump := range in.pumps {
			if v := p.fIdx[t][i]; v >= 0 {
				coef := in.price[t] * in.headM * in.rhoG * in.dt / (3.6e6 * pump.NominalEfficiency())
				p.c[v] = coef
				p.costCoef[v] = coef
			}
		}
		p.c[dposAt(t)] = weight(in.cfg.TargetWeight)
		p.c[dnegAt(t)] = weight(in.cfg.TargetWeight)
		p.c[cposAt(t)] = weight(in.cfg.ChurnWeight)
		p.c[cnegAt(t)] = weight(in.cfg.ChurnWeight)
	}
	for i := 0; i < n; i++ {
		p.c[uposAt(i)] = weight(in.cfg.BalanceWeight)
		p.c[unegAt(i)] = weight(in.cfg.BalanceWeight)
	}

	cumIn := make([]float64, h) // dt * sum(inflow[0..t])
	run := 0.0
	for t := 0; t < h; t++ {
		run += in.inflow[t] * in.dt
		cumIn[t] = run
	}

	var gRows, aRows [][]float64
	var gRHS, aRHS []float64
	addG := func(row []float64, rhs float64) {
		gRows = append(gRows, row)
		gRHS = append(gRHS, rhs)
	}
	addA := func(row []float64, rhs float64) {
		aRows = append(aRows, row)
		aRHS = append(aRHS, rhs)
	}
	row := func() []float64 { return make([]float64, p.nVar) }

	lastTotal := 0.0
	for _, pump := range in.pumps {
		lastTotal += in.lastFlows[pump.ID]
	}

	for t := 0; t < h; t++ {
		// per-pump capacity band while committed
		for i, pump := range in.pumps {
			v := p.fIdx[t][i]
			if v < 0 {
				continue
			}
			r := row()
			r[v] = 1
			addG(r, pump.MaxFlowM3h)
			r = row()
			r[v] = -1
			addG(r, -pump.MinFlowM3h)
		}

		// aggregate band whenever any pump is on
		if in.commit.anyOn(t) {
			hi, lo := row(), row()
			for i := range in.pumps {
				if v := p.fIdx[t][i]; v >= 0 {
					hi[v] = 1
					lo[v] = -1
				}
			}
			addG(hi, in.cfg.FlowCeilingM3h)
			addG(lo, -in.cfg.FlowFloorM3h)
		}

		// volume recursion by substitution:
		// V[t+1] = v0 + cumIn[t] - dt*sum(F[0..t]) within [vMin, vMax]
		up, lo := row(), row()
		for tau := 0; tau <= t; tau++ {
			for i := range in.pumps {
				if v := p.fIdx[tau][i]; v >= 0 {
					up[v] = -in.dt
					lo[v] = in.dt
				}
			}
		}
		addG(up, in.vMax-in.v0-cumIn[t])
		addG(lo, in.v0+cumIn[t]-in.vMin)

		// target-volume deviation split: V[t+1] - vTarget = dpos - dneg
		eq := row()
		for tau := 0; tau <= t; tau++ {
			for i := range in.pumps {
				if v := p.fIdx[tau][i]; v >= 0 {
					eq[v] = in.dt
				}
			}
		}
		eq[dposAt(t)] = 1
		eq[dnegAt(t)] = -1
		addA(eq, in.v0+cumIn[t]-in.vTarget)

		// total-flow churn split: F[t] - F[t-1] = cpos - cneg
		eq = row()
		rhs := 0.0
		for i := range in.pumps {
			if v := p.fIdx[t][i]; v >= 0 {
				eq[v] = 1
			}
		}
		if t == 0 {
			rhs = lastTotal
		} else {
			for i := range in.pumps {
				if v := p.fIdx[t-1][i]; v >= 0 {
					eq[v] = -1
				}
			}
		}
		eq[cposAt(t)] = -1
		eq[cnegAt(t)] = 1
		addA(eq, rhs)

		// ramp between consecutive running steps
		for i, pump := range in.pumps {
			v := p.fIdx[t][i]
			if v < 0 {
				continue
			}
			if t == 0 {
				last := in.lastFlows[pump.ID]
				if last > 0 {
					r := row()
					r[v] = 1
					addG(r, in.cfg.RampMaxM3h+last)
					r = row()
					r[v] = -1
					addG(r, in.cfg.RampMaxM3h-last)
				}
				continue
			}
			prev := p.fIdx[t-1][i]
			if prev < 0 {
				continue
			}
			r := row()
			r[v], r[prev] = 1, -1
			addG(r, in.cfg.RampMaxM3h)
			r = row()
			r[v], r[prev] = -1, 1
			addG(r, in.cfg.RampMaxM3h)
		}
	}

	// terminal drift: |V[h] - v0| <= drift
	up, lo := row(), row()
	for t := 0; t < h; t++ {
		for i := range in.pumps {
			if v := p.fIdx[t][i]; v >= 0 {
				up[v] = in.dt
				lo[v] = -in.dt
			}
		}
	}
	addG(up, in.cfg.DriftMaxM3+cumIn[h-1])
	addG(lo, in.cfg.DriftMaxM3-cumIn[h-1])

	// per-pump usage balance split: sum_t f[p] - mean = upos - uneg
	for i := range in.pumps {
		eq := row()
		for t := 0; t < h; t++ {
			for j := range in.pumps {
				if v := p.fIdx[t][j]; v >= 0 {
					eq[v] -= 1 / float64(n)
				}
			}
			if v := p.fIdx[t][i]; v >= 0 {
				eq[v] += 1
			}
		}
		eq[uposAt(i)] = -1
		eq[unegAt(i)] = 1
		addA(eq, 0)
	}

	// non-negativity of every variable
	for v := 0; v < p.nVar; v++ {
		r := row()
		r[v] = -1
		addG(r, 0)
	}

	p.g = denseFromRows(gRows, p.nVar)
	p.h = gRHS
	p.a = denseFromRows(aRows, p.nVar)
	p.b = aRHS
	return p
}

func denseFromRows(rows [][]float64, nCol int) *mat.Dense {
	m := mat.NewDense(len(rows), nCol, nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}

// weight floors a penalty weight so split variable pairs always carry a
// strictly positive cost and cannot drift in the solved basis.
func weight(w float64) float64 {
	if w < 1e-9 {
		return 1e-9
	}
	return w
}
