// set.go --  This file is part of goHF project.
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
package oei

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/ad"
	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/derivstore"
	"github.com/mirzaevaiv/gohf/internal/eri"
)

// TwoElectronKind is the store key prefix of two-electron derivatives.
// Its datasets are n^2 x n^2 supermatrices, see eri.Tensor.Matrix.
const TwoElectronKind = "eri"

// Set bundles the operators of one session together with its two-electron
// tensor. It is what the SCF solver and the gradient consume.
type Set struct {
	lib Library
	src derivstore.Source

	S, T, V *Operator
}

// NewSet builds the overlap, kinetic and potential operators over lib and src.
func NewSet(lib Library, src derivstore.Source, opts ...Option) *Set {
	return &Set{
		lib: lib,
		src: src,
		S:   New(Overlap, lib, src, opts...),
		T:   New(Kinetic, lib, src, opts...),
		V:   New(Potential, lib, src, opts...),
	}
}

// Operator returns the base operator of kind.
func (s *Set) Operator(k Kind) *Operator {
	switch k {
	case Overlap:
		return s.S
	case Kinetic:
		return s.T
	}
	return s.V
}

// Overlap returns S at g.
func (s *Set) Overlap(g []float64) (*mat.Dense, error) { return s.S.Eval(g) }

// Kinetic returns T at g.
func (s *Set) Kinetic(g []float64) (*mat.Dense, error) { return s.T.Eval(g) }

// Potential returns V at g.
func (s *Set) Potential(g []float64) (*mat.Dense, error) { return s.V.Eval(g) }

// TwoElectron returns G from the session.
func (s *Set) TwoElectron(g []float64) (*eri.Tensor, error) {
	if c, ok := s.lib.(geometryChecker); ok {
		if err := c.CheckGeometry(g); err != nil {
			return nil, fmt.Errorf("oei: two-electron: %w", err)
		}
	}
	flat, err := s.lib.TwoElectron()
	if err != nil {
		return nil, fmt.Errorf("oei: two-electron: %w", err)
	}
	n := 0
	for n*n*n*n < len(flat) {
		n++
	}
	t, err := eri.New(n, flat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSquare, err)
	}
	return t, nil
}

// Registry registers the three operators under their primitive names.
func (s *Set) Registry() (*ad.Registry, error) {
	reg := ad.NewRegistry()
	for _, k := range Kinds {
		op := s.Operator(k)
		if err := reg.Register(op, op.Deriv()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Jacobians returns dS/dx_i, dT/dx_i and dV/dx_i for every coordinate.
func (s *Set) Jacobians(g []float64) (dS, dT, dV []*mat.Dense, err error) {
	out := make([][]*mat.Dense, len(Kinds))
	for i, k := range Kinds {
		jac, err := ad.Jacobian(s.Operator(k).Deriv(), g)
		if err != nil {
			return nil, nil, nil, err
		}
		out[i] = jac.Items
	}
	return out[0], out[1], out[2], nil
}

// TwoElectronJacobian returns d(pq|rs)/dx_i for every coordinate, read from
// the store's eri datasets.
func (s *Set) TwoElectronJacobian(g []float64) ([]*eri.Tensor, error) {
	if c, ok := s.src.(geometryChecker); ok {
		if err := c.CheckGeometry(g); err != nil {
			return nil, fmt.Errorf("oei: two-electron derivative: %w", err)
		}
	}
	out := make([]*eri.Tensor, len(g))
	for i := range g {
		m, err := s.src.Slice(TwoElectronKind, derivindex.Unit(len(g), i))
		if err != nil {
			return nil, fmt.Errorf("oei: two-electron derivative %d: %w", i, err)
		}
		t, err := eri.FromMatrix(m)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
