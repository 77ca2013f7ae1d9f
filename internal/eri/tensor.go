// tensor.go --  This file is part of goHF project.
// Mirzaeva Irina, 2023
//
//	goHF is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package eri holds the two-electron repulsion tensor G and its Coulomb
// and exchange contractions with a density matrix.
package eri

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Tensor is (pq|rs) in chemist's notation, stored flat with s fastest.
type Tensor struct {
	n    int
	data []float64
}

// New wraps a flat n^4 slice.
func New(n int, data []float64) (*Tensor, error) {
	if n <= 0 || len(data) != n*n*n*n {
		return nil, fmt.Errorf("eri: %d values do not form a %d^4 tensor", len(data), n)
	}
	return &Tensor{n: n, data: data}, nil
}

// Zeros allocates an n^4 tensor.
func Zeros(n int) *Tensor {
	return &Tensor{n: n, data: make([]float64, n*n*n*n)}
}

// N is the number of basis functions.
func (t *Tensor) N() int { return t.n }

// Raw exposes the flat storage.
func (t *Tensor) Raw() []float64 { return t.data }

func (t *Tensor) offset(p, q, r, s int) int {
	n := t.n
	return ((p*n+q)*n+r)*n + s
}

// At returns (pq|rs).
func (t *Tensor) At(p, q, r, s int) float64 {
	return t.data[t.offset(p, q, r, s)]
}

// Set stores (pq|rs).
func (t *Tensor) Set(p, q, r, s int, v float64) {
	t.data[t.offset(p, q, r, s)] = v
}

// Index splits a flat offset back into p, q, r, s.
func (t *Tensor) Index(flat int) (p, q, r, s int) {
	n := t.n
	p = flat / (n * n * n)
	flat %= n * n * n
	q = flat / (n * n)
	flat %= n * n
	r = flat / n
	s = flat % n
	return p, q, r, s
}

// Matrix views the tensor as an n^2 x n^2 matrix with rows pq and columns rs.
func (t *Tensor) Matrix() *mat.Dense {
	nn := t.n * t.n
	return mat.NewDense(nn, nn, t.data)
}

// FromMatrix is the inverse of Matrix.
func FromMatrix(m mat.Matrix) (*Tensor, error) {
	r, c := m.Dims()
	n := 0
	for n*n < r {
		n++
	}
	if n*n != r || r != c {
		return nil, fmt.Errorf("eri: %dx%d matrix is not an n^2 x n^2 supermatrix", r, c)
	}
	t := Zeros(n)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.data[i*c+j] = m.At(i, j)
		}
	}
	return t, nil
}

// J contracts the last two indices with D: J_pq = sum_rs (pq|rs) D_rs.
func (t *Tensor) J(D mat.Matrix) *mat.Dense {
	return t.contract(D, func(p, q, r, s int) int { return t.offset(p, q, r, s) })
}

// K contracts the middle-swapped tensor with D: K_pq = sum_rs (pr|qs) D_rs.
func (t *Tensor) K(D mat.Matrix) *mat.Dense {
	return t.contract(D, func(p, q, r, s int) int { return t.offset(p, r, q, s) })
}

// contract splits rows p into contiguous chunks, one goroutine each. Every
// output element is summed by a single goroutine in a fixed order, so the
// result does not depend on scheduling.
func (t *Tensor) contract(D mat.Matrix, at func(p, q, r, s int) int) *mat.Dense {
	n := t.n
	d := mat.DenseCopyOf(D).RawMatrix()
	out := mat.NewDense(n, n, nil)
	raw := out.RawMatrix()

	rows := func(lo, hi int) {
		for p := lo; p < hi; p++ {
			for q := 0; q < n; q++ {
				sum := 0.0
				for r := 0; r < n; r++ {
					for s := 0; s < n; s++ {
						sum += t.data[at(p, q, r, s)] * d.Data[r*d.Stride+s]
					}
				}
				raw.Data[p*raw.Stride+q] = sum
			}
		}
	}

	workers := min(runtime.GOMAXPROCS(0), n)
	if workers <= 1 {
		rows(0, n)
		return out
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows(lo, hi)
		}()
	}
	wg.Wait()
	return out
}
