package vcmap

import (
	"gonum.org/v1/gonum/mat"
)

// windowMatrix is the consistency operator W relating a flat static
// trajectory y (length D*T) to its stacked static+delta form Wy (length
// 2*D*T). Per frame t the static row block is the identity at column
// block t; the delta row block is -0.5*I at block t-1 and +0.5*I at
// block t+1, with boundary frames keeping only the neighbor that
// exists.
//
// W is never materialized: its band structure is exploited directly in
// the products and in the normal-equation assembly, so everything stays
// O(T) in the sequence length.
type windowMatrix struct {
	t int // frames
	d int // static feature order
}

func newWindowMatrix(t, d int) *windowMatrix {
	return &windowMatrix{t: t, d: d}
}

// dims returns the operator shape (rows, cols) = (2*D*T, D*T).
func (w *windowMatrix) dims() (int, int) { return 2 * w.d * w.t, w.d * w.t }

// mulVec computes dst = W y. dst must have length 2*D*T and y length D*T.
func (w *windowMatrix) mulVec(dst, y []float64) {
	d := w.d
	for t := 0; t < w.t; t++ {
		static := dst[2*d*t : 2*d*t+d]
		delta := dst[2*d*t+d : 2*d*(t+1)]
		copy(static, y[t*d:(t+1)*d])
		for i := 0; i < d; i++ {
			v := 0.0
			if t > 0 {
				v -= 0.5 * y[(t-1)*d+i]
			}
			if t+1 < w.t {
				v += 0.5 * y[(t+1)*d+i]
			}
			delta[i] = v
		}
	}
}

// mulTransVec computes dst = W^T v. dst must have length D*T and v
// length 2*D*T. dst is overwritten.
func (w *windowMatrix) mulTransVec(dst, v []float64) {
	d := w.d
	for i := range dst {
		dst[i] = 0
	}
	for t := 0; t < w.t; t++ {
		static := v[2*d*t : 2*d*t+d]
		delta := v[2*d*t+d : 2*d*(t+1)]
		for i := 0; i < d; i++ {
			dst[t*d+i] += static[i]
			if t > 0 {
				dst[(t-1)*d+i] -= 0.5 * delta[i]
			}
			if t+1 < w.t {
				dst[(t+1)*d+i] += 0.5 * delta[i]
			}
		}
	}
}

// halfBandwidth returns the half bandwidth of W^T P W: the delta part of
// frame t reaches column blocks t-1 and t+1, so two column indices that
// meet in one row block are at most two frames (3*D-1 scalar columns)
// apart.
func (w *windowMatrix) halfBandwidth() int {
	kb := 3*w.d - 1
	if n := w.d*w.t - 1; kb > n {
		kb = n
	}
	return kb
}

// normalEquations assembles the symmetric banded system W^T P W and the
// right-hand side W^T P E for the trajectory solve. prec holds one
// 2Dx2D precision block per frame (shared read-only views), e the
// flattened per-frame local estimates (length 2*D*T).
func (w *windowMatrix) normalEquations(prec []*mat.SymDense, e []float64) (*mat.SymBandDense, *mat.VecDense) {
	d := w.d
	n := d * w.t
	a := mat.NewSymBandDense(n, w.halfBandwidth(), nil)
	b := mat.NewVecDense(n, nil)

	// Accumulate only entries on or above the diagonal; every
	// off-diagonal block contribution below the diagonal has an exact
	// mirror from the transposed quadrant of the symmetric precision
	// block.
	addBlock := func(bt, bs int, scale float64, p *mat.SymDense, qi, qj int) {
		if bt < 0 || bs < 0 || bt >= w.t || bs >= w.t {
			return
		}
		for i := 0; i < d; i++ {
			r := bt*d + i
			for j := 0; j < d; j++ {
				c := bs*d + j
				if r > c {
					continue
				}
				a.SetSymBand(r, c, a.At(r, c)+scale*p.At(qi+i, qj+j))
			}
		}
	}

	u := make([]float64, 2*d)
	for t := 0; t < w.t; t++ {
		p := prec[t]

		// Quadrant offsets: (0,0) static-static, (0,d) static-delta,
		// (d,0) delta-static, (d,d) delta-delta.
		addBlock(t, t, 1.0, p, 0, 0)
		addBlock(t, t-1, -0.5, p, 0, d)
		addBlock(t-1, t, -0.5, p, d, 0)
		addBlock(t, t+1, 0.5, p, 0, d)
		addBlock(t+1, t, 0.5, p, d, 0)
		addBlock(t-1, t-1, 0.25, p, d, d)
		addBlock(t+1, t+1, 0.25, p, d, d)
		addBlock(t-1, t+1, -0.25, p, d, d)
		addBlock(t+1, t-1, -0.25, p, d, d)

		// u = P_t E_t, scattered through W^T into the right-hand side.
		et := e[2*d*t : 2*d*(t+1)]
		for i := 0; i < 2*d; i++ {
			s := 0.0
			for j := 0; j < 2*d; j++ {
				s += p.At(i, j) * et[j]
			}
			u[i] = s
		}
		for i := 0; i < d; i++ {
			b.SetVec(t*d+i, b.AtVec(t*d+i)+u[i])
			if t > 0 {
				b.SetVec((t-1)*d+i, b.AtVec((t-1)*d+i)-0.5*u[d+i])
			}
			if t+1 < w.t {
				b.SetVec((t+1)*d+i, b.AtVec((t+1)*d+i)+0.5*u[d+i])
			}
		}
	}

	return a, b
}
