package transform

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	"go.viam.com/test"
)

func TestPseudoInverseRegular(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	inv, rank, err := PseudoInverse(a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rank, test.ShouldEqual, 3)

	var prod mat.Dense
	prod.Mul(a, inv)
	test.That(t, mat.EqualApprox(&prod, eye(3), 1e-12), test.ShouldBeTrue)
}

func TestPseudoInverseSingular(t *testing.T) {
	// rank one: the second row repeats the first
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	inv, rank, err := PseudoInverse(a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rank, test.ShouldEqual, 1)

	// the Moore-Penrose inverse of u u^T is u u^T / |u|^4
	want := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	want.Scale(1.0/25, want)
	test.That(t, mat.EqualApprox(inv, want, 1e-12), test.ShouldBeTrue)

	zero := mat.NewDense(2, 2, nil)
	inv, rank, err = PseudoInverse(zero)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rank, test.ShouldEqual, 0)
	test.That(t, mat.Norm(inv, 1), test.ShouldAlmostEqual, 0, 1e-12)

	_, _, err = PseudoInverse(mat.NewDense(2, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveNormal(t *testing.T) {
	a := mat.NewSymDense(2, []float64{2, 0, 0, 8})
	x, rank, err := SolveNormal(a, mat.NewVecDense(2, []float64{4, 4}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rank, test.ShouldEqual, 2)
	test.That(t, x.AtVec(0), test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, x.AtVec(1), test.ShouldAlmostEqual, 0.5, 1e-12)

	// a singular system yields the minimum-norm solution
	singular := mat.NewSymDense(2, []float64{1, 0, 0, 0})
	x, rank, err = SolveNormal(singular, mat.NewVecDense(2, []float64{3, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rank, test.ShouldEqual, 1)
	test.That(t, x.AtVec(0), test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, x.AtVec(1), test.ShouldAlmostEqual, 0, 1e-12)
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
