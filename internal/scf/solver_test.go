// solver_test.go --  This file is part of goHF project.
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
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivstore"
	"github.com/mirzaevaiv/gohf/internal/gaussian"
	"github.com/mirzaevaiv/gohf/internal/molecule"
	"github.com/mirzaevaiv/gohf/internal/oei"
)

type system struct {
	session *gaussian.Session
	set     *oei.Set
	input   Input
}

func newSystem(t *testing.T, atoms []molecule.Atom, charge int, src derivstore.Source) *system {
	t.Helper()
	mol := &molecule.Molecule{Atoms: atoms, Charge: charge}
	require.NoError(t, mol.ApplyBasis("sto-3g"))
	s, err := gaussian.NewSession(mol)
	require.NoError(t, err)
	return &system{
		session: s,
		set:     oei.NewSet(s, src),
		input: Input{
			Geometry: mol.Geometry(),
			Basis:    "sto-3g",
			Charges:  mol.Charges(),
			Charge:   charge,
		},
	}
}

func h2(t *testing.T, src derivstore.Source) *system {
	return newSystem(t, []molecule.Atom{
		{Z: 1, Name: "H1"},
		{Z: 1, Name: "H2", Coords: [3]float64{0, 0, 1.4}},
	}, 0, src)
}

func heh(t *testing.T, src derivstore.Source) *system {
	return newSystem(t, []molecule.Atom{
		{Z: 2, Name: "He1"},
		{Z: 1, Name: "H2", Coords: [3]float64{0, 0, 1.4632}},
	}, 1, src)
}

func run(t *testing.T, sys *system, opts Options) *Result {
	t.Helper()
	solver, err := New(sys.set, opts)
	require.NoError(t, err)
	res, err := solver.Run(sys.input)
	require.NoError(t, err)
	return res
}

func TestH2Converges(t *testing.T) {
	sys := h2(t, nil)
	res := run(t, sys, DefaultOptions())

	require.Equal(t, Converged, res.Status)
	assert.Less(t, res.Iterations, 100)
	assert.InDelta(t, 1/1.4, res.NuclearRepulsion, 1e-14)
	assert.InDelta(t, -1.1167, res.Total(), 2e-4)

	// closed form for the sigma_g orbital: E = 2 h_gg + (gg|gg)
	S, err := sys.set.Overlap(sys.input.Geometry)
	require.NoError(t, err)
	T, err := sys.set.Kinetic(sys.input.Geometry)
	require.NoError(t, err)
	V, err := sys.set.Potential(sys.input.Geometry)
	require.NoError(t, err)
	G, err := sys.set.TwoElectron(sys.input.Geometry)
	require.NoError(t, err)
	c2 := 1 / (2 * (1 + S.At(0, 1)))
	hgg, jgg := 0.0, 0.0
	for p := 0; p < 2; p++ {
		for q := 0; q < 2; q++ {
			hgg += c2 * (T.At(p, q) + V.At(p, q))
			for r := 0; r < 2; r++ {
				for s := 0; s < 2; s++ {
					jgg += c2 * c2 * G.At(p, q, r, s)
				}
			}
		}
	}
	assert.InDelta(t, 2*hgg+jgg, res.Energy, 1e-8)

	half := res.History[len(res.History)/2:]
	for i := 1; i < len(half); i++ {
		assert.LessOrEqual(t, math.Abs(half[i].DeltaE), math.Abs(half[i-1].DeltaE)+1e-14)
	}
}

func TestFixedPointIdempotent(t *testing.T) {
	sys := heh(t, nil)
	opts := DefaultOptions()
	opts.ReturnAux = true
	res := run(t, sys, opts)
	require.Equal(t, Converged, res.Status)
	require.NotNil(t, res.Density)

	S, err := sys.set.Overlap(sys.input.Geometry)
	require.NoError(t, err)
	T, err := sys.set.Kinetic(sys.input.Geometry)
	require.NoError(t, err)
	V, err := sys.set.Potential(sys.input.Geometry)
	require.NoError(t, err)
	h, err := NewHamiltonian(S, T, V, res.G, res.NDocc, opts)
	require.NoError(t, err)

	F := h.Fock(res.Density)
	step, err := h.Iterate(F, res.Density)
	require.NoError(t, err)
	assert.InDelta(t, res.Energy, step.Energy, 1e-9)
	assert.True(t, mat.EqualApprox(res.Density, step.D, 1e-8))

	_, dRMS := h.Residual(F, res.Density)
	assert.Less(t, dRMS, 1e-8)
}

func TestMaxIterReturnsPartialEstimate(t *testing.T) {
	sys := heh(t, nil)
	opts := DefaultOptions()
	opts.MaxIter = 2
	solver, err := New(sys.set, opts)
	require.NoError(t, err)
	assert.Equal(t, Init, solver.Status())

	res, err := solver.Run(sys.input)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, MaxIterReached, res.Status)
	assert.Equal(t, MaxIterReached, solver.Status())
	assert.Len(t, res.History, 2)
	assert.NotZero(t, res.Energy)
}

func TestVariantsAgree(t *testing.T) {
	ref := run(t, heh(t, nil), DefaultOptions())
	require.Equal(t, Converged, ref.Status)

	tests := []struct {
		name  string
		opts  func(*Options)
		delta float64
	}{
		{"symmetric", func(o *Options) { o.Orthogonalizer = Symmetric }, 1e-8},
		{"damping", func(o *Options) { o.Damping = true; o.DampFactor = 0.5; o.MaxIter = 200 }, 1e-8},
		{"spectral shift", func(o *Options) { o.SpectralShift = true }, 1e-6},
		{"diis", func(o *Options) { o.DIIS = true }, 1e-8},
		{"diis with damping", func(o *Options) { o.DIIS = true; o.DIISSpace = 3; o.Damping = true; o.MaxIter = 200 }, 1e-8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.opts(&opts)
			res := run(t, heh(t, nil), opts)
			assert.Equal(t, Converged, res.Status)
			assert.InDelta(t, ref.Energy, res.Energy, tt.delta)
		})
	}
}

func TestEnergyReturnsElectronicEnergy(t *testing.T) {
	sys := h2(t, nil)
	solver, err := New(sys.set, DefaultOptions())
	require.NoError(t, err)
	e, err := solver.Energy(sys.input)
	require.NoError(t, err)
	res := run(t, sys, DefaultOptions())
	assert.Equal(t, res.Energy, e)
	assert.Nil(t, res.C)
}

func TestDensityGuess(t *testing.T) {
	sys := heh(t, nil)
	opts := DefaultOptions()
	opts.ReturnAux = true
	cold := run(t, sys, opts)

	sys.input.DensityGuess = cold.Density
	warm := run(t, sys, opts)
	assert.InDelta(t, cold.Energy, warm.Energy, 1e-9)
	assert.LessOrEqual(t, warm.Iterations, cold.Iterations)

	sys.input.DensityGuess = mat.NewDense(3, 3, nil)
	solver, err := New(sys.set, opts)
	require.NoError(t, err)
	_, err = solver.Run(sys.input)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Options)
	}{
		{"maxit", func(o *Options) { o.MaxIter = 0 }},
		{"damp factor", func(o *Options) { o.Damping = true; o.DampFactor = 0 }},
		{"convergence", func(o *Options) { o.Convergence = -1 }},
		{"orthogonalizer", func(o *Options) { o.Orthogonalizer = "lowdin-canonical" }},
		{"diis space", func(o *Options) { o.DIIS = true; o.DIISSpace = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mod(&o)
			_, err := New(nil, o)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}

	o := DefaultOptions()
	assert.Equal(t, DefaultConvergence, o.Threshold())
	o.SpectralShift = true
	assert.Equal(t, ShiftedConvergence, o.Threshold())
	o.Convergence = 1e-6
	assert.Equal(t, 1e-6, o.Threshold())
}

func TestOrthogonalizers(t *testing.T) {
	S := mat.NewDense(3, 3, []float64{
		1, 0.4, 0.1,
		0.4, 1, 0.3,
		0.1, 0.3, 1,
	})
	for name, fn := range map[string]func(mat.Matrix) (*mat.Dense, error){
		Cholesky: CholeskyOrthogonalizer, Symmetric: SymmetricOrthogonalizer,
	} {
		A, err := fn(S)
		require.NoError(t, err, name)
		var ats mat.Dense
		ats.Mul(A.T(), S)
		ats.Mul(&ats, A)
		eye := mat.NewDiagDense(3, []float64{1, 1, 1})
		assert.True(t, mat.EqualApprox(&ats, eye, 1e-12), name)
	}

	singular := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	_, err := CholeskyOrthogonalizer(singular)
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}

func TestDegenerate(t *testing.T) {
	assert.True(t, degenerate([]float64{-0.5, -0.5, 0.3, 0.3}))
	assert.False(t, degenerate([]float64{-0.5, -0.2, 0.3, 0.7, 1.1}))
	assert.True(t, degenerate([]float64{1.0000001, 1.0000002, 2, 3}))
	assert.False(t, degenerate(nil))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "maxit", MaxIterReached.String())
}

func TestNuclearRepulsion(t *testing.T) {
	geom := []float64{0, 0, 0, 0, 0, 1.4632, 1, 0, 0}
	z := []float64{2, 1, 1}
	e, err := NuclearRepulsion(geom, z)
	require.NoError(t, err)
	want := 2/1.4632 + 2/1.0 + 1/math.Sqrt(1+1.4632*1.4632)
	assert.InDelta(t, want, e, 1e-14)

	grad, err := NuclearRepulsionGradient(geom, z)
	require.NoError(t, err)
	h := 1e-5
	for i := range geom {
		p, m := append([]float64(nil), geom...), append([]float64(nil), geom...)
		p[i] += h
		m[i] -= h
		ep, _ := NuclearRepulsion(p, z)
		em, _ := NuclearRepulsion(m, z)
		assert.InDelta(t, (ep-em)/(2*h), grad[i], 1e-8, "coordinate %d", i)
	}

	_, err = NuclearRepulsion([]float64{0, 0}, z)
	assert.Error(t, err)
}

func TestGradientMatchesFiniteDifferences(t *testing.T) {
	for name, build := range map[string]func(*testing.T, derivstore.Source) *system{"H2": h2, "HeH+": heh} {
		t.Run(name, func(t *testing.T) {
			srcSys := build(t, nil)
			path := filepath.Join(t.TempDir(), "derivs.parquet")
			w := derivstore.NewWriter(path)
			require.NoError(t, srcSys.session.Populate(w, 1))
			require.NoError(t, w.Close())
			store, err := derivstore.Open(path)
			require.NoError(t, err)

			sys := build(t, derivstore.NewCached(store))
			opts := DefaultOptions()
			opts.ReturnAux = true
			res := run(t, sys, opts)
			require.Equal(t, Converged, res.Status)

			grad, err := Gradient(res, sys.set)
			require.NoError(t, err)
			require.Len(t, grad, 6)

			g0 := sys.input.Geometry
			energyAt := func(g []float64) float64 {
				require.NoError(t, sys.session.SetGeometry(g))
				in := sys.input
				in.Geometry = g
				solver, err := New(sys.set, DefaultOptions())
				require.NoError(t, err)
				out, err := solver.Run(in)
				require.NoError(t, err)
				return out.Total()
			}
			h := 1e-3
			for _, i := range []int{2, 5} {
				p := append([]float64(nil), g0...)
				m := append([]float64(nil), g0...)
				p[i] += h
				m[i] -= h
				fd := (energyAt(p) - energyAt(m)) / (2 * h)
				assert.InDelta(t, fd, grad[i], 1e-5, "coordinate %d", i)
			}
			require.NoError(t, sys.session.SetGeometry(g0))

			assert.InDelta(t, 0, grad[2]+grad[5], 1e-7)
			for _, i := range []int{0, 1, 3, 4} {
				assert.InDelta(t, 0, grad[i], 1e-7)
			}
		})
	}
}

func TestGradientErrors(t *testing.T) {
	sys := h2(t, nil)
	res := run(t, sys, DefaultOptions())
	_, err := Gradient(res, sys.set)
	assert.ErrorIs(t, err, ErrNoAuxData)

	srcSys := h2(t, nil)
	path := filepath.Join(t.TempDir(), "derivs.arrow")
	w := derivstore.NewWriter(path)
	require.NoError(t, srcSys.session.Populate(w, 1, "overlap", "kinetic", "potential"))
	require.NoError(t, w.Close())
	store, err := derivstore.Open(path)
	require.NoError(t, err)

	sys = h2(t, store)
	opts := DefaultOptions()
	opts.ReturnAux = true
	res = run(t, sys, opts)
	_, err = Gradient(res, sys.set)
	assert.ErrorIs(t, err, derivstore.ErrMissingDerivativeData)
}

func TestDIISExtrapolation(t *testing.T) {
	d := newDIIS(2)
	_, ok := d.extrapolate()
	assert.False(t, ok)

	F1 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	F2 := mat.NewDense(2, 2, []float64{3, 0, 0, 3})
	// residuals of opposite sign cancel at c = (1/2, 1/2)
	e1 := mat.NewDense(2, 2, []float64{0, 1, -1, 0})
	e2 := mat.NewDense(2, 2, []float64{0, -1, 1, 0})
	d.push(F1, e1)
	d.push(F2, e2)

	F, ok := d.extrapolate()
	require.True(t, ok)
	assert.InDelta(t, 2, F.At(0, 0), 1e-12)
	assert.InDelta(t, 2, F.At(1, 1), 1e-12)
	assert.InDelta(t, 0, F.At(0, 1), 1e-12)

	// the oldest iterate is dropped; identical residuals make B singular
	d.push(F2, e2)
	assert.Len(t, d.focks, 2)
	_, ok = d.extrapolate()
	assert.False(t, ok)
}

func TestDoublyOccupied(t *testing.T) {
	tests := []struct {
		charges []float64
		charge  int
		want    int
	}{
		{[]float64{1, 1}, 0, 1},
		{[]float64{1.5, 0.5}, 0, 1},
		{[]float64{2, 1}, 1, 1},
		{[]float64{1, 1}, 2, 0},
		{[]float64{0.6, 0.6}, 0, 0},
		{[]float64{2.4, 1}, 0, 1},
		{[]float64{8, 1, 1}, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DoublyOccupied(tt.charges, tt.charge), "%v charge %d", tt.charges, tt.charge)
	}
}

func TestFractionalCharges(t *testing.T) {
	ref := run(t, h2(t, nil), DefaultOptions())

	sys := h2(t, nil)
	sys.input.Charges = []float64{1.5, 0.5}
	res := run(t, sys, DefaultOptions())
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, 1, res.NDocc)
	// the basis and integrals do not depend on Charges
	assert.InDelta(t, ref.Energy, res.Energy, 1e-10)
	assert.InDelta(t, 0.75/1.4, res.NuclearRepulsion, 1e-12)
}

func TestNoOccupiedOrbitals(t *testing.T) {
	sys := h2(t, nil)
	sys.input.Charge = 2
	opts := DefaultOptions()
	opts.ReturnAux = true
	res := run(t, sys, opts)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, 0, res.NDocc)
	assert.Equal(t, 0.0, res.Energy)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, nil), res.Density))
}
