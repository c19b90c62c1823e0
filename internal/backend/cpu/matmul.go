package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// MatMul computes c = op(a) @ op(b) with SGEMM.
//
// After op, a is m×k and b is k×n. A transposed operand is stored in its
// untransposed row-major layout (k×m for a, n×k for b).
func (cpu *CPUBackend) MatMul(c, a, b []float32, m, k, n int, transA, transB bool) {
	checkLen("matmul", "a", len(a), m*k)
	checkLen("matmul", "b", len(b), k*n)
	checkLen("matmul", "c", len(c), m*n)
	gemm(c, a, b, m, k, n, transA, transB, 0)
}

// gemm computes c = op(a) @ op(b) + beta*c.
func gemm(c, a, b []float32, m, k, n int, transA, transB bool, beta float32) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		scale(c[:m*n], beta)
		return
	}
	ga := general(a, m, k, transA)
	gb := general(b, k, n, transB)
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]}
	blas32.Gemm(transpose(transA), transpose(transB), 1, ga, gb, beta, gc)
}

// general wraps a row-major buffer whose logical (post-op) shape is rows×cols.
func general(data []float32, rows, cols int, trans bool) blas32.General {
	if trans {
		rows, cols = cols, rows
	}
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data[:rows*cols]}
}

func transpose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func scale(x []float32, alpha float32) {
	if alpha == 0 {
		clear(x)
		return
	}
	blas32.Scal(alpha, blas32.Vector{N: len(x), Inc: 1, Data: x})
}
