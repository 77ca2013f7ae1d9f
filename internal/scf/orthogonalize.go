// orthogonalize.go --  This file is part of goHF project.
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
package scf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNotPositiveDefinite means S could not be factorized; the basis is
// linearly dependent.
var ErrNotPositiveDefinite = errors.New("scf: overlap matrix is not positive definite")

// symmetricCopy builds a SymDense from the upper triangle of m.
func symmetricCopy(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s
}

// CholeskyOrthogonalizer returns A = (L^-1)^T where S = L L^T, so that
// A^T S A = 1.
func CholeskyOrthogonalizer(S mat.Matrix) (*mat.Dense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(symmetricCopy(S)); !ok {
		return nil, ErrNotPositiveDefinite
	}
	// S = U^T U with U = L^T, hence A = U^-1.
	var U mat.TriDense
	chol.UTo(&U)
	var A mat.Dense
	if err := A.Inverse(&U); err != nil {
		return nil, fmt.Errorf("scf: invert cholesky factor: %w", err)
	}
	return &A, nil
}

// SymmetricOrthogonalizer returns S^-1/2 from the eigendecomposition of S.
func SymmetricOrthogonalizer(S mat.Matrix) (*mat.Dense, error) {
	var eigsym mat.EigenSym
	if ok := eigsym.Factorize(symmetricCopy(S), true); !ok {
		return nil, fmt.Errorf("scf: S eigendecomposition failed")
	}
	vals := eigsym.Values(nil)
	n := len(vals)
	invSqrt := make([]float64, n)
	for i, v := range vals {
		if v <= 0 {
			return nil, ErrNotPositiveDefinite
		}
		invSqrt[i] = 1 / math.Sqrt(v)
	}
	var ev mat.Dense
	eigsym.VectorsTo(&ev)

	var A mat.Dense
	A.Mul(&ev, mat.NewDiagDense(n, invSqrt))
	A.Mul(&A, ev.T())
	return &A, nil
}

func orthogonalizer(name string, S mat.Matrix) (*mat.Dense, error) {
	if name == Symmetric {
		return SymmetricOrthogonalizer(S)
	}
	return CholeskyOrthogonalizer(S)
}
