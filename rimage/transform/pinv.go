package transform

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PseudoInverse returns the Moore-Penrose pseudo-inverse of the square matrix a computed by SVD,
// together with the numerical rank. Singular values below n * eps * sigma_max are treated as zero,
// so a singular or near-singular matrix yields the least-squares minimum-norm inverse rather than
// an error.
func PseudoInverse(a mat.Matrix) (*mat.Dense, int, error) {
	r, c := a.Dims()
	if r != c {
		return nil, 0, errors.Errorf("pseudo-inverse expects a square matrix, got %dx%d", r, c)
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, 0, errors.New("SVD factorization failed")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := float64(r) * floats.Max(values) * 2.220446049250313e-16
	rank := 0
	inv := make([]float64, len(values))
	for i, s := range values {
		if s > tol && !math.IsInf(s, 0) {
			inv[i] = 1 / s
			rank++
		}
	}

	// V * diag(1/s) * U^T
	var vs mat.Dense
	vs.Apply(func(_, j int, val float64) float64 { return val * inv[j] }, &v)
	out := mat.NewDense(r, r, nil)
	out.Mul(&vs, u.T())
	return out, rank, nil
}

// SolveNormal returns the minimum-norm least-squares solution x of a * x = b for a symmetric
// positive semi-definite a, along with the rank of a.
func SolveNormal(a mat.Symmetric, b mat.Vector) (*mat.VecDense, int, error) {
	inv, rank, err := PseudoInverse(a)
	if err != nil {
		return nil, 0, err
	}
	x := mat.NewVecDense(b.Len(), nil)
	x.MulVec(inv, b)
	return x, rank, nil
}
