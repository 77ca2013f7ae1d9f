// solver.go --  This file is part of goHF project.
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

// Package scf implements the restricted Hartree-Fock self-consistent field
// iteration and its analytic nuclear gradient.
package scf

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/eri"
	"github.com/mirzaevaiv/gohf/internal/metrics"
)

// Integrals supplies the matrices the solver consumes at a geometry.
type Integrals interface {
	Overlap(g []float64) (*mat.Dense, error)
	Kinetic(g []float64) (*mat.Dense, error)
	Potential(g []float64) (*mat.Dense, error)
	TwoElectron(g []float64) (*eri.Tensor, error)
}

// Input describes one SCF evaluation.
type Input struct {
	Geometry []float64
	Basis    string
	// DerivOrder is carried for logging only.
	DerivOrder int
	Charges    []float64
	Charge     int
	// DensityGuess seeds D instead of zero, e.g. a converged density from a
	// nearby geometry.
	DensityGuess mat.Matrix
}

// Status is the solver state.
type Status int

const (
	Init Status = iota
	Iterating
	Converged
	MaxIterReached
)

func (s Status) String() string {
	switch s {
	case Init:
		return "init"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterReached:
		return "maxit"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Iteration is one entry of the convergence history.
type Iteration struct {
	Iter   int
	Energy float64
	DeltaE float64
	DRMS   float64
}

// Result is the outcome of Run. C, Eps, G and Density are set only when
// Options.ReturnAux is on.
type Result struct {
	Energy           float64
	NuclearRepulsion float64
	Iterations       int
	Status           Status
	DeltaE           float64
	DRMS             float64
	Degenerate       bool
	NDocc            int
	History          []Iteration

	Geometry []float64
	Charges  []float64

	C       *mat.Dense
	Eps     []float64
	G       *eri.Tensor
	Density *mat.Dense
}

// DoublyOccupied is floor((sum(charges) - charge) / 2). Charges may be
// fractional; only their sum is rounded.
func DoublyOccupied(charges []float64, charge int) int {
	return int(math.Floor((floats.Sum(charges) - float64(charge)) / 2))
}

// Total is the electronic energy plus nuclear repulsion.
func (r *Result) Total() float64 {
	return r.Energy + r.NuclearRepulsion
}

// Solver runs RHF over an integral source.
type Solver struct {
	ints   Integrals
	opts   Options
	logger zerolog.Logger
	status Status
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger for iteration checkpoints.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// New validates opts and returns a solver.
func New(ints Integrals, opts Options, o ...Option) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Orthogonalizer == "" {
		opts.Orthogonalizer = Cholesky
	}
	s := &Solver{ints: ints, opts: opts, logger: zerolog.Nop(), status: Init}
	for _, fn := range o {
		fn(s)
	}
	return s, nil
}

// Status reports the state of the last run.
func (s *Solver) Status() Status { return s.status }

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

// Energy runs the iteration and returns the electronic energy only.
func (s *Solver) Energy(in Input) (float64, error) {
	res, err := s.Run(in)
	if err != nil {
		return 0, err
	}
	return res.Energy, nil
}

// Run iterates to self-consistency or until MaxIter. Reaching MaxIter is
// reported through Result.Status, not as an error.
func (s *Solver) Run(in Input) (*Result, error) {
	s.status = Init
	start := time.Now()

	ndocc := DoublyOccupied(in.Charges, in.Charge)

	S, err := s.ints.Overlap(in.Geometry)
	if err != nil {
		return nil, fmt.Errorf("scf: overlap: %w", err)
	}
	T, err := s.ints.Kinetic(in.Geometry)
	if err != nil {
		return nil, fmt.Errorf("scf: kinetic: %w", err)
	}
	V, err := s.ints.Potential(in.Geometry)
	if err != nil {
		return nil, fmt.Errorf("scf: potential: %w", err)
	}
	G, err := s.ints.TwoElectron(in.Geometry)
	if err != nil {
		return nil, fmt.Errorf("scf: two-electron: %w", err)
	}
	enuc, err := NuclearRepulsion(in.Geometry, in.Charges)
	if err != nil {
		return nil, err
	}
	h, err := NewHamiltonian(S, T, V, G, ndocc, s.opts)
	if err != nil {
		return nil, err
	}

	n := h.N()
	D := mat.NewDense(n, n, nil)
	if in.DensityGuess != nil {
		if r, c := in.DensityGuess.Dims(); r != n || c != n {
			return nil, fmt.Errorf("%w: density guess is %dx%d, basis has %d functions", ErrInvalidOptions, r, c, n)
		}
		D.Copy(in.DensityGuess)
	}

	conv := s.opts.Threshold()
	s.logger.Debug().Str("basis", in.Basis).Int("nbf", n).Int("ndocc", ndocc).
		Int("deriv_order", in.DerivOrder).Float64("convergence", conv).Msg("scf initialized")

	s.status = Iterating
	var (
		iter  int
		eScf  = 1.0
		eOld  = 0.0
		dRMS  = 1.0
		dOld  = mat.DenseCopyOf(D)
		last  *Step
		hist  []Iteration
		fDamp = s.opts.DampFactor
		acc   *diis
	)
	if s.opts.DIIS {
		acc = newDIIS(s.opts.DIISSpace)
	}
	for math.Abs(eScf-eOld) > conv || dRMS > conv {
		eOld = eScf
		if s.opts.Damping && iter < DampingIterations {
			var damped mat.Dense
			damped.Scale(fDamp, dOld)
			damped.Add(&damped, scaled(fDamp, D))
			D = &damped
			dOld = mat.DenseCopyOf(D)
		}
		F := h.Fock(D)
		Fx := F
		if acc != nil || iter > 1 {
			e, rms := h.Residual(F, D)
			if iter > 1 {
				dRMS = rms
			}
			if acc != nil {
				acc.push(F, e)
				if fx, ok := acc.extrapolate(); ok {
					Fx = fx
				}
			}
		}
		last, err = h.IterateExtrapolated(F, Fx, D)
		if err != nil {
			return nil, err
		}
		eScf, D = last.Energy, last.D
		iter++

		hist = append(hist, Iteration{Iter: iter, Energy: eScf, DeltaE: eScf - eOld, DRMS: dRMS})
		s.logger.Debug().Int("iter", iter).Float64("energy", eScf).Float64("dE", eScf-eOld).
			Float64("dRMS", dRMS).Msg("scf iteration")
		if iter == s.opts.MaxIter {
			break
		}
	}

	res := &Result{
		Energy:           eScf,
		NuclearRepulsion: enuc,
		Iterations:       iter,
		DeltaE:           eScf - eOld,
		DRMS:             dRMS,
		NDocc:            ndocc,
		History:          hist,
		Geometry:         slices.Clone(in.Geometry),
		Charges:          slices.Clone(in.Charges),
	}
	if math.Abs(eScf-eOld) > conv || dRMS > conv {
		res.Status = MaxIterReached
		s.logger.Warn().Int("iterations", iter).Float64("dE", res.DeltaE).Float64("dRMS", dRMS).
			Msg("SCF did not converge")
	} else {
		res.Status = Converged
	}
	s.status = res.Status

	if last != nil {
		res.Degenerate = degenerate(last.Eps)
		if res.Degenerate {
			metrics.SCFDegeneracyWarningsTotal.Inc()
			s.logger.Warn().Msg("more than 20% of orbitals are degenerate, higher order derivatives may be unstable")
		}
		if s.opts.ReturnAux {
			res.C, res.Eps, res.G, res.Density = last.C, last.Eps, G, last.D
		}
	}

	metrics.SCFRunsTotal.WithLabelValues(res.Status.String()).Inc()
	metrics.SCFIterations.Observe(float64(iter))
	s.logger.Info().Int("iterations", iter).Str("status", res.Status.String()).Float64("energy", res.Energy).
		Float64("total", res.Total()).Dur("elapsed", time.Since(start)).Msg("RHF iterations performed")
	return res, nil
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

// degenerate rounds eps to 6 decimals and reports whether more than
// DegeneracyThreshold of them are duplicates.
func degenerate(eps []float64) bool {
	if len(eps) == 0 {
		return false
	}
	rounded := make([]float64, len(eps))
	for i, e := range eps {
		rounded[i] = math.Round(e*1e6) / 1e6
	}
	slices.Sort(rounded)
	unique := slices.Compact(rounded)
	ndegen := len(eps) - len(unique)
	return float64(ndegen)/float64(len(eps)) > DegeneracyThreshold
}
