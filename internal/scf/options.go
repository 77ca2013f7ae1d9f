// options.go --  This file is part of goHF project.
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
)

const (
	// DefaultConvergence is the energy and residual threshold.
	DefaultConvergence = 1e-10
	// ShiftedConvergence replaces DefaultConvergence when the spectral
	// shift is on, since the shift perturbs energies at that scale.
	ShiftedConvergence = 1e-8
	// DampingIterations is how many leading iterations are damped.
	DampingIterations = 10
	// DefaultDIISSpace is how many Fock matrices DIIS keeps.
	DefaultDIISSpace = 8
	// DegeneracyThreshold is the fraction of degenerate orbitals above
	// which a run is flagged.
	DegeneracyThreshold = 0.20
)

// Orthogonalizer names.
const (
	Cholesky  = "cholesky"
	Symmetric = "symmetric"
)

// ErrInvalidOptions is wrapped by Options.Validate failures.
var ErrInvalidOptions = errors.New("scf: invalid options")

// Options control the RHF iteration.
type Options struct {
	MaxIter       int     `yaml:"maxit"`
	Damping       bool    `yaml:"damping"`
	DampFactor    float64 `yaml:"damp_factor"`
	SpectralShift bool    `yaml:"spectral_shift"`
	// Convergence overrides the threshold when non-zero.
	Convergence    float64 `yaml:"convergence"`
	Orthogonalizer string  `yaml:"orthogonalizer"`
	ReturnAux      bool    `yaml:"return_aux"`
	// DIIS extrapolates the Fock matrix from the last DIISSpace iterates
	// using the commutator residuals.
	DIIS      bool `yaml:"diis"`
	DIISSpace int  `yaml:"diis_space"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxIter:        100,
		DampFactor:     0.5,
		Orthogonalizer: Cholesky,
		DIISSpace:      DefaultDIISSpace,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.MaxIter <= 0 {
		return fmt.Errorf("%w: maxit must be positive, got %d", ErrInvalidOptions, o.MaxIter)
	}
	if o.Damping && (o.DampFactor <= 0 || o.DampFactor > 1) {
		return fmt.Errorf("%w: damp_factor must be in (0, 1], got %g", ErrInvalidOptions, o.DampFactor)
	}
	if o.Convergence < 0 {
		return fmt.Errorf("%w: convergence must not be negative", ErrInvalidOptions)
	}
	if o.DIIS && o.DIISSpace < 2 {
		return fmt.Errorf("%w: diis_space must be at least 2, got %d", ErrInvalidOptions, o.DIISSpace)
	}
	switch o.Orthogonalizer {
	case "", Cholesky, Symmetric:
	default:
		return fmt.Errorf("%w: unknown orthogonalizer %q", ErrInvalidOptions, o.Orthogonalizer)
	}
	return nil
}

// Threshold is the convergence threshold the options imply.
func (o Options) Threshold() float64 {
	if o.Convergence > 0 {
		return o.Convergence
	}
	if o.SpectralShift {
		return ShiftedConvergence
	}
	return DefaultConvergence
}
