// molecule.go --  This file is part of goHF project.
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

// Package molecule reads molecule input files and attaches basis sets to
// their atoms. Coordinates are kept in bohr.
package molecule

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
)

// BohrRadius is one bohr in angstrom.
const BohrRadius = 0.52917720859

var (
	ErrNoAtoms           = errors.New("molecule: no atoms")
	ErrUnknownElement    = errors.New("molecule: unknown element")
	ErrBadCoordinates    = errors.New("molecule: bad coordinates")
	ErrUnterminatedBlock = errors.New("molecule: block has no end")
	ErrUnknownBasis      = errors.New("molecule: unknown basis set")
	ErrOddElectrons      = errors.New("molecule: odd number of electrons")
)

// Symbols lists element symbols by atomic number; index 0 is a dummy.
var Symbols = []string{
	"X",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
}

// AtomicNumber returns Z for an element symbol, case-insensitive.
func AtomicNumber(symbol string) (int, error) {
	if len(symbol) == 0 {
		return 0, fmt.Errorf("%w: empty symbol", ErrUnknownElement)
	}
	norm := strings.ToUpper(symbol[:1]) + strings.ToLower(symbol[1:])
	z := slices.Index(Symbols, norm)
	if z <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownElement, symbol)
	}
	return z, nil
}

// Shell is a contracted Cartesian shell of angular momentum L. Coefficients
// apply to normalized primitives.
type Shell struct {
	L         int
	Exponents []float64
	Coeffs    []float64
}

// Atom is a nucleus with its basis functions.
type Atom struct {
	Z      int
	Name   string
	Coords [3]float64
	Basis  []Shell
}

// Molecule holds the atoms, net charge and basis set name of one input.
type Molecule struct {
	Atoms     []Atom
	Charge    int
	BasisName string
}

// Geometry flattens the coordinates into a 3N vector.
func (m *Molecule) Geometry() []float64 {
	g := make([]float64, 0, 3*len(m.Atoms))
	for _, a := range m.Atoms {
		g = append(g, a.Coords[:]...)
	}
	return g
}

// SetGeometry moves the atoms to g.
func (m *Molecule) SetGeometry(g []float64) error {
	if len(g) != 3*len(m.Atoms) {
		return fmt.Errorf("%w: %d coordinates for %d atoms", ErrBadCoordinates, len(g), len(m.Atoms))
	}
	for i := range m.Atoms {
		copy(m.Atoms[i].Coords[:], g[3*i:3*i+3])
	}
	return nil
}

// Charges returns the nuclear charges in atom order.
func (m *Molecule) Charges() []float64 {
	z := make([]float64, len(m.Atoms))
	for i, a := range m.Atoms {
		z[i] = float64(a.Z)
	}
	return z
}

// NElectrons is the electron count after the net charge.
func (m *Molecule) NElectrons() int {
	n := 0
	for _, a := range m.Atoms {
		n += a.Z
	}
	return n - m.Charge
}

// NBasis counts Cartesian basis functions.
func (m *Molecule) NBasis() int {
	n := 0
	for _, a := range m.Atoms {
		for _, sh := range a.Basis {
			n += (sh.L + 1) * (sh.L + 2) / 2
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{Charge: m.Charge, BasisName: m.BasisName, Atoms: make([]Atom, len(m.Atoms))}
	for i, a := range m.Atoms {
		c.Atoms[i] = a
		c.Atoms[i].Basis = slices.Clone(a.Basis)
	}
	return c
}

// Validate checks that the molecule can be treated closed-shell.
func (m *Molecule) Validate() error {
	if len(m.Atoms) == 0 {
		return ErrNoAtoms
	}
	if n := m.NElectrons(); n <= 0 || n%2 != 0 {
		return fmt.Errorf("%w: %d", ErrOddElectrons, n)
	}
	for i := range m.Atoms {
		for j := 0; j < i; j++ {
			if distance(m.Atoms[i].Coords, m.Atoms[j].Coords) < 1e-8 {
				return fmt.Errorf("%w: atoms %s and %s coincide", ErrBadCoordinates, m.Atoms[j].Name, m.Atoms[i].Name)
			}
		}
	}
	return nil
}

func distance(a, b [3]float64) float64 {
	return math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]) + (a[2]-b[2])*(a[2]-b[2]))
}
