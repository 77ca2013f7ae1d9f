// diis.go --  This file is part of goHF project.
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
	"gonum.org/v1/gonum/mat"
)

// diis keeps the recent Fock matrices and their residuals for Pulay
// extrapolation.
type diis struct {
	space  int
	focks  []*mat.Dense
	resids []*mat.Dense
}

func newDIIS(space int) *diis {
	return &diis{space: space}
}

func (d *diis) push(F, e *mat.Dense) {
	d.focks = append(d.focks, mat.DenseCopyOf(F))
	d.resids = append(d.resids, mat.DenseCopyOf(e))
	if len(d.focks) > d.space {
		d.focks = d.focks[1:]
		d.resids = d.resids[1:]
	}
}

// buildB is the bordered matrix of residual overlaps:
//
//	| <e_i, e_j>  -1 |
//	|    -1        0 |
func (d *diis) buildB() *mat.Dense {
	m := len(d.focks)
	B := mat.NewDense(m+1, m+1, nil)
	for i := 0; i < m; i++ {
		B.Set(i, m, -1)
		B.Set(m, i, -1)
		for j := 0; j <= i; j++ {
			b := frob(d.resids[i], d.resids[j])
			B.Set(i, j, b)
			B.Set(j, i, b)
		}
	}
	return B
}

// extrapolate returns sum_i c_i F_i with sum_i c_i = 1 minimizing the
// combined residual. ok is false with fewer than two iterates or when B is
// singular, in which case the caller keeps its own F.
func (d *diis) extrapolate() (F *mat.Dense, ok bool) {
	m := len(d.focks)
	if m < 2 {
		return nil, false
	}
	rhs := mat.NewVecDense(m+1, nil)
	rhs.SetVec(m, -1)

	var lu mat.LU
	lu.Factorize(d.buildB())
	var coefs mat.VecDense
	if err := lu.SolveVecTo(&coefs, false, rhs); err != nil {
		return nil, false
	}

	r, c := d.focks[0].Dims()
	F = mat.NewDense(r, c, nil)
	for i, Fi := range d.focks {
		F.Add(F, scaled(coefs.AtVec(i), Fi))
	}
	return F, true
}
