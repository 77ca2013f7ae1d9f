// gradient.go --  This file is part of goHF project.
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

	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/eri"
)

// ErrNoAuxData is returned by Gradient for results run without ReturnAux.
var ErrNoAuxData = errors.New("scf: result carries no orbitals, run with return_aux")

// DerivativeIntegrals supplies first derivatives of the integrals with
// respect to every coordinate.
type DerivativeIntegrals interface {
	Jacobians(g []float64) (dS, dT, dV []*mat.Dense, err error)
	TwoElectronJacobian(g []float64) ([]*eri.Tensor, error)
}

// EnergyWeightedDensity is W = C_occ diag(eps_occ) C_occ^T.
func EnergyWeightedDensity(C *mat.Dense, eps []float64, nDocc int) *mat.Dense {
	n, _ := C.Dims()
	W := mat.NewDense(n, n, nil)
	if nDocc == 0 {
		return W
	}
	occ := C.Slice(0, n, 0, nDocc)
	var ce mat.Dense
	ce.Mul(occ, mat.NewDiagDense(nDocc, eps[:nDocc]))
	W.Mul(&ce, occ.T())
	return W
}

// frob is the Frobenius inner product sum_ij a_ij b_ij.
func frob(a, b mat.Matrix) float64 {
	var p mat.Dense
	p.MulElem(a, b)
	return mat.Sum(&p)
}

// Gradient returns dE_total/dx_i of a converged result:
//
//	2 sum D dH + sum D_pq D_rs (2 d(pq|rs) - d(pr|qs)) - 2 sum W dS + dEnuc
func Gradient(res *Result, d DerivativeIntegrals) ([]float64, error) {
	if res.C == nil || res.Density == nil || res.Eps == nil {
		return nil, ErrNoAuxData
	}
	g := res.Geometry
	dS, dT, dV, err := d.Jacobians(g)
	if err != nil {
		return nil, fmt.Errorf("scf: gradient: %w", err)
	}
	dG, err := d.TwoElectronJacobian(g)
	if err != nil {
		return nil, fmt.Errorf("scf: gradient: %w", err)
	}
	if len(dS) != len(g) || len(dT) != len(g) || len(dV) != len(g) || len(dG) != len(g) {
		return nil, fmt.Errorf("scf: gradient: derivative count does not match %d coordinates", len(g))
	}
	grad, err := NuclearRepulsionGradient(g, res.Charges)
	if err != nil {
		return nil, err
	}

	D := res.Density
	W := EnergyWeightedDensity(res.C, res.Eps, res.NDocc)
	for i := range g {
		var dH mat.Dense
		dH.Add(dT[i], dV[i])
		grad[i] += 2 * frob(D, &dH)
		grad[i] += 2*frob(D, dG[i].J(D)) - frob(D, dG[i].K(D))
		grad[i] -= 2 * frob(W, dS[i])
	}
	return grad, nil
}
