// Package ag is a small reverse-mode automatic differentiation tape over dense, row-major
// float64 matrices.
//
// Every operation on a Graph computes its output immediately and, if the Graph needs
// backpropagation, records a closure that adds the output's gradient into the gradients of its
// inputs. Graph.Backward replays those closures in reverse order.
//
// Throughout q-net the row index of a Mat is the batch element and the column index is the
// feature, so a sequence of hidden states is a []*Mat indexed by time.
package ag

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mat is a matrix of values (W) and the gradient of the current loss w.r.t. those values (Dw).
// Both are stored row-major.
type Mat struct {
	Rows, Cols int
	W          []float64
	Dw         []float64
}

// NewMat returns a zeroed matrix. NewMat panics with a SizeError if either dimension is not
// positive.
func NewMat(rows, cols int) *Mat {
	if rows < 1 || cols < 1 {
		panic(SizeError{fmt.Sprintf("matrix dimensions must be positive, got %dx%d", rows, cols)})
	}

	return &Mat{
		Rows: rows,
		Cols: cols,
		W:    make([]float64, rows*cols),
		Dw:   make([]float64, rows*cols),
	}
}

// FromRows builds a matrix from equal-length rows. The values are copied.
func FromRows(rows [][]float64) *Mat {
	if len(rows) == 0 {
		panic(SizeError{"FromRows given no rows"})
	}

	m := NewMat(len(rows), len(rows[0]))
	for r := range rows {
		if len(rows[r]) != m.Cols {
			panic(SizeError{fmt.Sprintf("row %d has %d values, expected %d", r, len(rows[r]), m.Cols)})
		}
		copy(m.Row(r), rows[r])
	}

	return m
}

// Size returns the total number of values in the matrix.
func (m *Mat) Size() int {
	return m.Rows * m.Cols
}

// At returns the value at (r, c).
func (m *Mat) At(r, c int) float64 {
	return m.W[r*m.Cols+c]
}

// Set sets the value at (r, c).
func (m *Mat) Set(r, c int, v float64) {
	m.W[r*m.Cols+c] = v
}

// Row returns the values of row r. The returned slice is NOT a copy.
func (m *Mat) Row(r int) []float64 {
	return m.W[r*m.Cols : (r+1)*m.Cols]
}

// GradRow returns the gradients of row r. The returned slice is NOT a copy.
func (m *Mat) GradRow(r int) []float64 {
	return m.Dw[r*m.Cols : (r+1)*m.Cols]
}

// ZeroGrads resets all gradients to zero.
func (m *Mat) ZeroGrads() {
	for i := range m.Dw {
		m.Dw[i] = 0
	}
}

// Clone returns a copy of the values of m, with zeroed gradients.
func (m *Mat) Clone() *Mat {
	c := NewMat(m.Rows, m.Cols)
	copy(c.W, m.W)
	return c
}

// SameShape returns whether or not the two matrices have equal dimensions.
func (m *Mat) SameShape(o *Mat) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols
}

// values and grads wrap the backing slices without copying; gonum writes through them.
func (m *Mat) values() *mat.Dense {
	return mat.NewDense(m.Rows, m.Cols, m.W)
}

func (m *Mat) grads() *mat.Dense {
	return mat.NewDense(m.Rows, m.Cols, m.Dw)
}

// SizeError is panicked when matrices passed to an operation have incompatible shapes. Shape
// mismatches are programming errors, so they are not returned.
type SizeError struct{ string }

func (err SizeError) Error() string {
	return "ag: " + err.string
}

// Param is a trainable matrix with a stable name. Names identify parameters in optimizer state and
// in checkpoints.
type Param struct {
	Name string
	*Mat
}
