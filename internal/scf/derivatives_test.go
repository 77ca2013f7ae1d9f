// derivatives_test.go --  This file is part of goHF project.
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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/derivstore"
)

func TestFirstEnergyDerivativesMatchGradient(t *testing.T) {
	ref := heh(t, nil)
	path := filepath.Join(t.TempDir(), "derivs.arrow")
	w := derivstore.NewWriter(path)
	require.NoError(t, ref.session.Populate(w, 1))
	require.NoError(t, w.Close())
	store, err := derivstore.Open(path)
	require.NoError(t, err)

	sys := heh(t, derivstore.NewCached(store))
	opts := DefaultOptions()
	opts.ReturnAux = true
	res := run(t, sys, opts)
	grad, err := Gradient(res, sys.set)
	require.NoError(t, err)

	solver, err := New(sys.set, DefaultOptions())
	require.NoError(t, err)
	fd, err := solver.EnergyDerivatives(sys.input, sys.session, 1)
	require.NoError(t, err)
	require.Len(t, fd, 6)
	assert.InDeltaSlice(t, grad, fd, 1e-5)
	assert.Equal(t, sys.input.Geometry, sys.session.Geometry())

	e0, err := solver.EnergyDerivative(sys.input, sys.session, derivindex.Zero(6))
	require.NoError(t, err)
	assert.InDelta(t, res.Total(), e0, 1e-12)
}

func TestHessianH2(t *testing.T) {
	sys := h2(t, nil)
	solver, err := New(sys.set, DefaultOptions())
	require.NoError(t, err)

	H, err := solver.Hessian(sys.input, sys.session)
	require.NoError(t, err)
	require.Equal(t, 6, H.SymmetricDim())
	assert.Equal(t, sys.input.Geometry, sys.session.Geometry())

	// E(R) along the bond with a five-point second difference
	const R, h = 1.4, 5e-3
	energyAt := func(r float64) float64 {
		g := []float64{0, 0, 0, 0, 0, r}
		require.NoError(t, sys.session.SetGeometry(g))
		in := sys.input
		in.Geometry = g
		res, err := solver.Run(in)
		require.NoError(t, err)
		return res.Total()
	}
	d2 := (-energyAt(R+2*h) + 16*energyAt(R+h) - 30*energyAt(R) + 16*energyAt(R-h) - energyAt(R-2*h)) / (12 * h * h)
	require.NoError(t, sys.session.SetGeometry(sys.input.Geometry))

	assert.InDelta(t, d2, H.At(5, 5), 1e-5)
	assert.InDelta(t, d2, H.At(2, 2), 1e-5)
	assert.InDelta(t, -d2, H.At(2, 5), 1e-5)

	// perpendicular displacements only stretch the bond to second order:
	// d2E/dx2 = E'(R) / R
	dEdR, err := solver.EnergyDerivative(sys.input, sys.session, derivindex.Unit(6, 5))
	require.NoError(t, err)
	for _, i := range []int{0, 1, 3, 4} {
		assert.InDelta(t, dEdR/R, H.At(i, i), 1e-5, "coordinate %d", i)
	}
	assert.InDelta(t, -dEdR/R, H.At(0, 3), 1e-5)

	// rigid translations leave the energy unchanged
	for i := 0; i < 6; i++ {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 0, H.At(i, k)+H.At(i, k+3), 1e-5, "row %d axis %d", i, k)
		}
	}
}

func TestEnergyDerivativeErrors(t *testing.T) {
	sys := heh(t, nil)
	solver, err := New(sys.set, DefaultOptions())
	require.NoError(t, err)

	_, err = solver.EnergyDerivative(sys.input, sys.session, derivindex.Unit(9, 0))
	assert.ErrorIs(t, err, derivindex.ErrMalformed)
	_, err = solver.EnergyDerivative(sys.input, sys.session, derivindex.Vector{1, -1, 0, 0, 0, 0})
	assert.ErrorIs(t, err, derivindex.ErrMalformed)
	_, err = solver.EnergyDerivatives(sys.input, sys.session, -1)
	assert.ErrorIs(t, err, derivindex.ErrMalformed)

	opts := DefaultOptions()
	opts.MaxIter = 1
	short, err := New(sys.set, opts)
	require.NoError(t, err)
	_, err = short.EnergyDerivative(sys.input, sys.session, derivindex.Unit(6, 2))
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.Equal(t, sys.input.Geometry, sys.session.Geometry())
}
