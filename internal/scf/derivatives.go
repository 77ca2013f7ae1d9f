// derivatives.go --  This file is part of goHF project.
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

	"github.com/mirzaevaiv/gohf/internal/derivindex"
)

// ErrNotConverged is returned when an SCF at a displaced geometry stops at
// MaxIter while differentiating the energy.
var ErrNotConverged = errors.New("scf: displaced geometry did not converge")

// Mover relocates the integral source the solver reads, typically the
// session behind an oei.Set.
type Mover interface {
	Geometry() []float64
	SetGeometry(g []float64) error
}

// EnergyDerivative returns d^v E_total at in.Geometry by central
// differences of converged SCF energies, with the step derivindex.Step
// picks for the order of v. Order 0 is the total energy. m is moved to each
// displaced geometry and restored afterwards.
func (s *Solver) EnergyDerivative(in Input, m Mover, v derivindex.Vector) (float64, error) {
	if err := checkEnergyVector(in, v); err != nil {
		return 0, err
	}
	out, err := s.energyDerivatives(in, m, v.Order(), []derivindex.Vector{v})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// EnergyDerivatives returns every derivative of the total energy of the
// given order, one per column of derivindex.Enumerate(len(in.Geometry),
// order). Displaced energies shared by several columns are computed once.
func (s *Solver) EnergyDerivatives(in Input, m Mover, order int) ([]float64, error) {
	if order < 0 {
		return nil, &derivindex.MalformedError{Index: order, Reason: "negative derivative order"}
	}
	return s.energyDerivatives(in, m, order, derivindex.Enumerate(len(in.Geometry), order))
}

// Hessian unpacks the second energy derivatives into a symmetric 3N x 3N
// matrix.
func (s *Solver) Hessian(in Input, m Mover) (*mat.SymDense, error) {
	dim := len(in.Geometry)
	vs := derivindex.Enumerate(dim, 2)
	d2, err := s.energyDerivatives(in, m, 2, vs)
	if err != nil {
		return nil, err
	}
	H := mat.NewSymDense(dim, nil)
	for c, v := range vs {
		idx := v.MultiIndex()
		H.SetSym(idx[0], idx[1], d2[c])
	}
	return H, nil
}

func checkEnergyVector(in Input, v derivindex.Vector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if len(v) != len(in.Geometry) {
		return &derivindex.MalformedError{
			Vector: v.Clone(),
			Reason: fmt.Sprintf("length %d, geometry has %d coordinates", len(v), len(in.Geometry)),
		}
	}
	return nil
}

func (s *Solver) energyDerivatives(in Input, m Mover, order int, vs []derivindex.Vector) (out []float64, err error) {
	g0 := m.Geometry()
	defer func() {
		if rerr := m.SetGeometry(g0); err == nil {
			err = rerr
		}
	}()

	h := derivindex.Step(order)
	memo := make(map[string]float64)
	energy := func(p derivindex.Point) (float64, error) {
		key := p.Key()
		if e, ok := memo[key]; ok {
			return e, nil
		}
		disp := in
		disp.Geometry = p.Displace(in.Geometry, h)
		if err := m.SetGeometry(disp.Geometry); err != nil {
			return 0, err
		}
		res, err := s.Run(disp)
		if err != nil {
			return 0, err
		}
		if res.Status != Converged {
			return 0, fmt.Errorf("%w: step %s after %d iterations", ErrNotConverged, key, res.Iterations)
		}
		memo[key] = res.Total()
		return memo[key], nil
	}

	out = make([]float64, len(vs))
	for c, v := range vs {
		for _, p := range derivindex.Stencil(v, h) {
			e, err := energy(p)
			if err != nil {
				return nil, err
			}
			out[c] += p.Coeff * e
		}
	}
	s.logger.Debug().Int("order", order).Int("columns", len(vs)).Int("scf_runs", len(memo)).
		Msg("energy derivatives by finite differences")
	return out, nil
}
