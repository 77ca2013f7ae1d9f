// hamiltonian.go --  This file is part of goHF project.
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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/mirzaevaiv/gohf/internal/eri"
)

// ErrEigen is returned when the transformed Fock matrix cannot be
// diagonalized.
var ErrEigen = errors.New("scf: Fock eigendecomposition failed")

// Hamiltonian holds everything fixed during one SCF run: S, the core
// Hamiltonian H = T + V, G, the orthogonalizer A and the spectral shift.
type Hamiltonian struct {
	S, H, A *mat.Dense
	G       *eri.Tensor
	NDocc   int

	n     int
	shift []float64
}

// NewHamiltonian assembles H and A. With the spectral shift enabled the
// diagonal of the transformed Fock matrix is perturbed by
// linspace(0, 1, n) * threshold.
func NewHamiltonian(S, T, V *mat.Dense, G *eri.Tensor, nDocc int, opts Options) (*Hamiltonian, error) {
	n, c := S.Dims()
	if n != c {
		return nil, fmt.Errorf("scf: S is %dx%d", n, c)
	}
	for name, m := range map[string]*mat.Dense{"T": T, "V": V} {
		if r, c := m.Dims(); r != n || c != n {
			return nil, fmt.Errorf("scf: %s is %dx%d, S is %dx%d", name, r, c, n, n)
		}
	}
	if G.N() != n {
		return nil, fmt.Errorf("scf: G has %d basis functions, S has %d", G.N(), n)
	}
	if nDocc < 0 || nDocc > n {
		return nil, fmt.Errorf("scf: %d doubly occupied orbitals do not fit %d basis functions", nDocc, n)
	}

	A, err := orthogonalizer(opts.Orthogonalizer, S)
	if err != nil {
		return nil, err
	}
	h := &Hamiltonian{S: S, A: A, G: G, NDocc: nDocc, n: n}
	h.H = mat.NewDense(n, n, nil)
	h.H.Add(T, V)

	if opts.SpectralShift {
		h.shift = make([]float64, n)
		if n > 1 {
			floats.Span(h.shift, 0, 1)
		}
		floats.Scale(opts.Threshold(), h.shift)
	}
	return h, nil
}

// N is the number of basis functions.
func (h *Hamiltonian) N() int { return h.n }

// Fock returns F = H + 2J(D) - K(D).
func (h *Hamiltonian) Fock(D mat.Matrix) *mat.Dense {
	F := h.G.J(D)
	F.Scale(2, F)
	F.Sub(F, h.G.K(D))
	F.Add(F, h.H)
	return F
}

// ElectronicEnergy is sum_pq (F+H)_pq D_pq. Nuclear repulsion is not
// included.
func (h *Hamiltonian) ElectronicEnergy(F, D mat.Matrix) float64 {
	e := 0.0
	for i := 0; i < h.n; i++ {
		for j := 0; j < h.n; j++ {
			e += (F.At(i, j) + h.H.At(i, j)) * D.At(i, j)
		}
	}
	return e
}

// Step is the outcome of one Fock diagonalization.
type Step struct {
	// Energy is evaluated with the density F was built from.
	Energy float64
	D      *mat.Dense
	C      *mat.Dense
	Eps    []float64
}

// Iterate performs one update: energy, F' = A^T F A (+ shift),
// diagonalization, back-transformation C = A C' and the new density from
// the NDocc lowest orbitals.
func (h *Hamiltonian) Iterate(F, D mat.Matrix) (*Step, error) {
	return h.IterateExtrapolated(F, F, D)
}

// IterateExtrapolated evaluates the energy with F and D but diagonalizes Fx,
// an extrapolated Fock matrix.
func (h *Hamiltonian) IterateExtrapolated(F, Fx, D mat.Matrix) (*Step, error) {
	st := &Step{Energy: h.ElectronicEnergy(F, D)}

	var Fp mat.Dense
	Fp.Mul(h.A.T(), Fx)
	Fp.Mul(&Fp, h.A)
	for i, s := range h.shift {
		Fp.Set(i, i, Fp.At(i, i)+s)
	}

	var eigsym mat.EigenSym
	if ok := eigsym.Factorize(symmetricCopy(&Fp), true); !ok {
		return nil, ErrEigen
	}
	st.Eps = eigsym.Values(nil)
	var Cp mat.Dense
	eigsym.VectorsTo(&Cp)

	st.C = mat.NewDense(h.n, h.n, nil)
	st.C.Mul(h.A, &Cp)
	st.D = Density(st.C, h.NDocc)
	return st, nil
}

// Density returns C_occ C_occ^T for the first nDocc columns of C. With no
// occupied orbitals D is zero.
func Density(C *mat.Dense, nDocc int) *mat.Dense {
	n, _ := C.Dims()
	D := mat.NewDense(n, n, nil)
	if nDocc == 0 {
		return D
	}
	occ := C.Slice(0, n, 0, nDocc)
	D.Mul(occ, occ.T())
	return D
}

// Residual returns the commutator error e = A^T (F D S - S D F) A and its
// root mean square.
func (h *Hamiltonian) Residual(F, D mat.Matrix) (*mat.Dense, float64) {
	var fds, sdf mat.Dense
	fds.Mul(F, D)
	fds.Mul(&fds, h.S)
	sdf.Mul(h.S, D)
	sdf.Mul(&sdf, F)
	fds.Sub(&fds, &sdf)

	var e mat.Dense
	e.Mul(h.A.T(), &fds)
	e.Mul(&e, h.A)

	sq := mat.DenseCopyOf(&e)
	sq.MulElem(sq, sq)
	return &e, math.Sqrt(stat.Mean(sq.RawMatrix().Data, nil))
}
