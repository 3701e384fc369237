package ag

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func mustSameShape(op string, a, b *Mat) {
	if !a.SameShape(b) {
		panic(SizeError{fmt.Sprintf("%s: shapes differ (%dx%d vs %dx%d)", op, a.Rows, a.Cols, b.Rows, b.Cols)})
	}
}

// Mul returns the matrix product a·b.
func (g *Graph) Mul(a, b *Mat) *Mat {
	if a.Cols != b.Rows {
		panic(SizeError{fmt.Sprintf("Mul: misaligned (%dx%d · %dx%d)", a.Rows, a.Cols, b.Rows, b.Cols)})
	}

	out := NewMat(a.Rows, b.Cols)
	out.values().Mul(a.values(), b.values())

	g.addBackward(func() {
		dOut := out.grads()

		var da, db mat.Dense
		da.Mul(dOut, b.values().T())
		db.Mul(a.values().T(), dOut)

		aGrad, bGrad := a.grads(), b.grads()
		aGrad.Add(aGrad, &da)
		bGrad.Add(bGrad, &db)
	})

	return out
}

// Add returns the element-wise sum of a and b.
func (g *Graph) Add(a, b *Mat) *Mat {
	mustSameShape("Add", a, b)

	out := NewMat(a.Rows, a.Cols)
	for i := range out.W {
		out.W[i] = a.W[i] + b.W[i]
	}

	g.addBackward(func() {
		for i := range out.Dw {
			a.Dw[i] += out.Dw[i]
			b.Dw[i] += out.Dw[i]
		}
	})

	return out
}

// AddRow adds the 1xC row vector to every row of m.
func (g *Graph) AddRow(m, row *Mat) *Mat {
	if row.Rows != 1 || row.Cols != m.Cols {
		panic(SizeError{fmt.Sprintf("AddRow: row must be 1x%d, got %dx%d", m.Cols, row.Rows, row.Cols)})
	}

	out := NewMat(m.Rows, m.Cols)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			out.W[r*m.Cols+c] = m.W[r*m.Cols+c] + row.W[c]
		}
	}

	g.addBackward(func() {
		for r := 0; r < m.Rows; r++ {
			for c := 0; c < m.Cols; c++ {
				d := out.Dw[r*m.Cols+c]
				m.Dw[r*m.Cols+c] += d
				row.Dw[c] += d
			}
		}
	})

	return out
}

// Eltmul returns the element-wise product of a and b.
func (g *Graph) Eltmul(a, b *Mat) *Mat {
	mustSameShape("Eltmul", a, b)

	out := NewMat(a.Rows, a.Cols)
	for i := range out.W {
		out.W[i] = a.W[i] * b.W[i]
	}

	g.addBackward(func() {
		for i := range out.Dw {
			a.Dw[i] += b.W[i] * out.Dw[i]
			b.Dw[i] += a.W[i] * out.Dw[i]
		}
	})

	return out
}

// Scale multiplies every value of m by the constant s.
func (g *Graph) Scale(m *Mat, s float64) *Mat {
	out := NewMat(m.Rows, m.Cols)
	for i := range out.W {
		out.W[i] = m.W[i] * s
	}

	g.addBackward(func() {
		for i := range out.Dw {
			m.Dw[i] += s * out.Dw[i]
		}
	})

	return out
}

// activation applies f element-wise. deriv is given the input and output values.
func (g *Graph) activation(m *Mat, f func(float64) float64, deriv func(x, y float64) float64) *Mat {
	out := NewMat(m.Rows, m.Cols)
	for i := range out.W {
		out.W[i] = f(m.W[i])
	}

	g.addBackward(func() {
		for i := range out.Dw {
			m.Dw[i] += deriv(m.W[i], out.W[i]) * out.Dw[i]
		}
	})

	return out
}

// Tanh applies tanh element-wise.
func (g *Graph) Tanh(m *Mat) *Mat {
	return g.activation(m, math.Tanh, func(_, y float64) float64 {
		return 1 - y*y
	})
}

// Sigmoid applies the logistic function element-wise.
func (g *Graph) Sigmoid(m *Mat) *Mat {
	return g.activation(m, func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	}, func(_, y float64) float64 {
		return y * (1 - y)
	})
}

// Log applies the natural logarithm element-wise, with inputs floored at eps. Values at or
// below the floor receive no gradient.
func (g *Graph) Log(m *Mat, eps float64) *Mat {
	return g.activation(m, func(x float64) float64 {
		return math.Log(math.Max(x, eps))
	}, func(x, _ float64) float64 {
		if x <= eps {
			return 0
		}
		return 1 / x
	})
}

// ConcatCols joins the matrices along the feature axis. All must have the same number of rows.
func (g *Graph) ConcatCols(ms ...*Mat) *Mat {
	if len(ms) == 0 {
		panic(SizeError{"ConcatCols given no matrices"})
	}

	cols := 0
	for i, m := range ms {
		if m.Rows != ms[0].Rows {
			panic(SizeError{fmt.Sprintf("ConcatCols: matrix %d has %d rows, expected %d", i, m.Rows, ms[0].Rows)})
		}
		cols += m.Cols
	}

	out := NewMat(ms[0].Rows, cols)
	for r := 0; r < out.Rows; r++ {
		off := 0
		for _, m := range ms {
			copy(out.W[r*cols+off:r*cols+off+m.Cols], m.Row(r))
			off += m.Cols
		}
	}

	g.addBackward(func() {
		for r := 0; r < out.Rows; r++ {
			off := 0
			for _, m := range ms {
				d := out.Dw[r*cols+off : r*cols+off+m.Cols]
				md := m.GradRow(r)
				for c := range md {
					md[c] += d[c]
				}
				off += m.Cols
			}
		}
	})

	return out
}

// SliceCols returns columns [from, to) of m.
func (g *Graph) SliceCols(m *Mat, from, to int) *Mat {
	if from < 0 || to > m.Cols || from >= to {
		panic(SizeError{fmt.Sprintf("SliceCols: invalid range [%d, %d) of %d columns", from, to, m.Cols)})
	}

	width := to - from
	out := NewMat(m.Rows, width)
	for r := 0; r < m.Rows; r++ {
		copy(out.Row(r), m.Row(r)[from:to])
	}

	g.addBackward(func() {
		for r := 0; r < m.Rows; r++ {
			md := m.GradRow(r)[from:to]
			od := out.GradRow(r)
			for c := range od {
				md[c] += od[c]
			}
		}
	})

	return out
}

// MaskRows multiplies row r of m by mask[r]. The mask is a constant.
func (g *Graph) MaskRows(m *Mat, mask []float64) *Mat {
	if len(mask) != m.Rows {
		panic(SizeError{fmt.Sprintf("MaskRows: %d mask values for %d rows", len(mask), m.Rows)})
	}

	out := NewMat(m.Rows, m.Cols)
	for r := 0; r < m.Rows; r++ {
		if mask[r] == 0 {
			continue
		}
		row, src := out.Row(r), m.Row(r)
		for c := range row {
			row[c] = src[c] * mask[r]
		}
	}

	g.addBackward(func() {
		for r := 0; r < m.Rows; r++ {
			if mask[r] == 0 {
				continue
			}
			md, od := m.GradRow(r), out.GradRow(r)
			for c := range od {
				md[c] += od[c] * mask[r]
			}
		}
	})

	return out
}

// Dropout zeroes each value with probability p and scales the survivors by 1/(1-p). If p <= 0,
// m is returned unchanged.
func (g *Graph) Dropout(m *Mat, p float64, rng *rand.Rand) *Mat {
	if p <= 0 {
		return m
	}

	keep := make([]float64, len(m.W))
	scale := 1 / (1 - p)
	for i := range keep {
		if rng.Float64() >= p {
			keep[i] = scale
		}
	}

	out := NewMat(m.Rows, m.Cols)
	for i := range out.W {
		out.W[i] = m.W[i] * keep[i]
	}

	g.addBackward(func() {
		for i := range out.Dw {
			m.Dw[i] += out.Dw[i] * keep[i]
		}
	})

	return out
}

// Lookup gathers rows of the embedding table for each id. Ids equal to pad, or outside the
// table, produce zero rows and receive no gradient. If frozen is true the table receives no
// gradient at all.
func (g *Graph) Lookup(table *Mat, ids []int, pad int, frozen bool) *Mat {
	out := NewMat(len(ids), table.Cols)
	for r, id := range ids {
		if id == pad || id < 0 || id >= table.Rows {
			continue
		}
		copy(out.Row(r), table.Row(id))
	}

	if frozen {
		return out
	}

	g.addBackward(func() {
		for r, id := range ids {
			if id == pad || id < 0 || id >= table.Rows {
				continue
			}
			td, od := table.GradRow(id), out.GradRow(r)
			for c := range od {
				td[c] += od[c]
			}
		}
	})

	return out
}

// SoftmaxRows takes a softmax over each row of m. If lens is not nil, row r is normalized over
// its first lens[r] columns only and the remaining columns are exactly zero.
func (g *Graph) SoftmaxRows(m *Mat, lens []int) *Mat {
	if lens != nil && len(lens) != m.Rows {
		panic(SizeError{fmt.Sprintf("SoftmaxRows: %d lengths for %d rows", len(lens), m.Rows)})
	}

	width := func(r int) int {
		if lens == nil || lens[r] > m.Cols {
			return m.Cols
		}
		return lens[r]
	}

	out := NewMat(m.Rows, m.Cols)
	for r := 0; r < m.Rows; r++ {
		n := width(r)
		if n <= 0 {
			continue
		}

		src, dst := m.Row(r)[:n], out.Row(r)[:n]
		max := math.Inf(-1)
		for _, v := range src {
			if v > max {
				max = v
			}
		}

		var sum float64
		for i, v := range src {
			dst[i] = math.Exp(v - max)
			sum += dst[i]
		}
		for i := range dst {
			dst[i] /= sum
		}
	}

	g.addBackward(func() {
		for r := 0; r < m.Rows; r++ {
			n := width(r)
			if n <= 0 {
				continue
			}

			p, dp, dx := out.Row(r)[:n], out.GradRow(r)[:n], m.GradRow(r)[:n]
			var dot float64
			for i := range p {
				dot += p[i] * dp[i]
			}
			for i := range p {
				dx[i] += p[i] * (dp[i] - dot)
			}
		}
	})

	return out
}

// WeightedSum returns, for each row b, Σ_t weights[b][t] · seq[t][b]. weights is
// rows x len(seq); each seq[t] is rows x H. The result is rows x H.
func (g *Graph) WeightedSum(weights *Mat, seq []*Mat) *Mat {
	if weights.Cols != len(seq) {
		panic(SizeError{fmt.Sprintf("WeightedSum: %d weight columns for %d steps", weights.Cols, len(seq))})
	}

	rows, width := weights.Rows, seq[0].Cols
	for t, s := range seq {
		if s.Rows != rows || s.Cols != width {
			panic(SizeError{fmt.Sprintf("WeightedSum: step %d is %dx%d, expected %dx%d", t, s.Rows, s.Cols, rows, width)})
		}
	}

	out := NewMat(rows, width)
	for b := 0; b < rows; b++ {
		dst := out.Row(b)
		for t, s := range seq {
			w := weights.W[b*weights.Cols+t]
			if w == 0 {
				continue
			}
			for h, v := range s.Row(b) {
				dst[h] += w * v
			}
		}
	}

	g.addBackward(func() {
		for b := 0; b < rows; b++ {
			dy := out.GradRow(b)
			for t, s := range seq {
				w := weights.W[b*weights.Cols+t]
				src, ds := s.Row(b), s.GradRow(b)

				var dw float64
				for h := range dy {
					dw += dy[h] * src[h]
					ds[h] += w * dy[h]
				}
				weights.Dw[b*weights.Cols+t] += dw
			}
		}
	})

	return out
}

// Pick returns the rows x 1 matrix of m[r][idx[r]].
func (g *Graph) Pick(m *Mat, idx []int) *Mat {
	if len(idx) != m.Rows {
		panic(SizeError{fmt.Sprintf("Pick: %d indices for %d rows", len(idx), m.Rows)})
	}

	out := NewMat(m.Rows, 1)
	for r, c := range idx {
		if c < 0 || c >= m.Cols {
			panic(SizeError{fmt.Sprintf("Pick: index %d out of range for row %d (%d columns)", c, r, m.Cols)})
		}
		out.W[r] = m.W[r*m.Cols+c]
	}

	g.addBackward(func() {
		for r, c := range idx {
			m.Dw[r*m.Cols+c] += out.Dw[r]
		}
	})

	return out
}

// Sum returns the 1x1 sum of every value in m.
func (g *Graph) Sum(m *Mat) *Mat {
	out := NewMat(1, 1)
	for _, v := range m.W {
		out.W[0] += v
	}

	g.addBackward(func() {
		for i := range m.Dw {
			m.Dw[i] += out.Dw[0]
		}
	})

	return out
}

// Bilinear returns the rows x 1 matrix whose r'th value is p[r]ᵀ · reward[r] · q[r]. p and q
// must have the same shape; reward[r] is indexed [i][j] with i over p's columns and j over q's.
// Reward entries outside the matrices' columns are ignored.
func (g *Graph) Bilinear(p, q *Mat, reward [][][]float64) *Mat {
	mustSameShape("Bilinear", p, q)
	if len(reward) != p.Rows {
		panic(SizeError{fmt.Sprintf("Bilinear: %d reward matrices for %d rows", len(reward), p.Rows)})
	}

	n := p.Cols
	clip := func(r int) (rows int) {
		rows = len(reward[r])
		if rows > n {
			rows = n
		}
		return rows
	}

	out := NewMat(p.Rows, 1)
	for r := 0; r < p.Rows; r++ {
		pr, qr := p.Row(r), q.Row(r)
		var total float64
		for i := 0; i < clip(r); i++ {
			if pr[i] == 0 {
				continue
			}
			row := reward[r][i]
			var inner float64
			for j := 0; j < len(row) && j < n; j++ {
				inner += row[j] * qr[j]
			}
			total += pr[i] * inner
		}
		out.W[r] = total
	}

	g.addBackward(func() {
		for r := 0; r < p.Rows; r++ {
			dy := out.Dw[r]
			if dy == 0 {
				continue
			}

			pr, qr := p.Row(r), q.Row(r)
			dp, dq := p.GradRow(r), q.GradRow(r)
			for i := 0; i < clip(r); i++ {
				row := reward[r][i]
				var inner float64
				for j := 0; j < len(row) && j < n; j++ {
					inner += row[j] * qr[j]
					dq[j] += dy * pr[i] * row[j]
				}
				dp[i] += dy * inner
			}
		}
	})

	return out
}
