// Package feature prepares static+delta feature sequences for the
// trajectory mapper. The delta definition matches the mapper's window
// operator exactly: a centered +-0.5 difference with missing neighbors
// contributing zero at the sequence boundaries.
package feature

// Delta computes per-frame delta features: d[t] = 0.5*(c[t+1] - c[t-1]),
// dropping the neighbor term that does not exist at the boundaries.
// A single-frame sequence yields an all-zero delta.
func Delta(seq [][]float64) [][]float64 {
	frames := len(seq)
	if frames == 0 {
		return nil
	}
	dim := len(seq[0])

	buf := make([]float64, frames*dim)
	out := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		row := buf[t*dim : (t+1)*dim]
		out[t] = row
		for j := 0; j < dim; j++ {
			v := 0.0
			if t+1 < frames {
				v += 0.5 * seq[t+1][j]
			}
			if t > 0 {
				v -= 0.5 * seq[t-1][j]
			}
			row[j] = v
		}
	}
	return out
}

// JoinStaticDelta appends delta columns to each frame, turning a
// [T][D] static sequence into the [T][2D] input the trajectory mapper
// expects.
func JoinStaticDelta(seq [][]float64) [][]float64 {
	frames := len(seq)
	if frames == 0 {
		return nil
	}
	dim := len(seq[0])
	deltas := Delta(seq)

	buf := make([]float64, frames*dim*2)
	out := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		row := buf[t*dim*2 : (t+1)*dim*2]
		copy(row[:dim], seq[t])
		copy(row[dim:], deltas[t])
		out[t] = row
	}
	return out
}
