// session.go --  This file is part of goHF project.
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

// Package gaussian is a reference integral session over contracted s-type
// Gaussians. It answers the one- and two-electron integral calls for the
// geometry it is loaded with and can fill a derivative store by finite
// differences.
package gaussian

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mathext"

	"github.com/mirzaevaiv/gohf/internal/metrics"
	"github.com/mirzaevaiv/gohf/internal/molecule"
)

var (
	// ErrUnsupportedShell is returned for shells with angular momentum above 0.
	ErrUnsupportedShell = errors.New("gaussian: only s shells are supported")
	// ErrGeometryMismatch means a caller asked for integrals at a geometry
	// the session is not loaded with.
	ErrGeometryMismatch = errors.New("gaussian: geometry differs from session geometry")
)

// primitive is one normalized Gaussian of a contraction.
type primitive struct {
	alpha float64
	coeff float64 // contraction coefficient times normalization
}

// function is a contracted s function centred on an atom.
type function struct {
	atom  int
	prims []primitive
}

func normCoeff(alpha float64) float64 {
	return math.Pow(2*alpha/math.Pi, 0.75)
}

// Session holds one molecule and its basis functions.
type Session struct {
	mol    *molecule.Molecule
	funcs  []function
	logger zerolog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession loads a copy of mol.
func NewSession(mol *molecule.Molecule, opts ...Option) (*Session, error) {
	s := &Session{mol: mol.Clone(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	for i, a := range s.mol.Atoms {
		for _, sh := range a.Basis {
			if sh.L != 0 {
				return nil, fmt.Errorf("%w: atom %s has an l=%d shell", ErrUnsupportedShell, a.Name, sh.L)
			}
			f := function{atom: i}
			for k, alpha := range sh.Exponents {
				f.prims = append(f.prims, primitive{alpha: alpha, coeff: sh.Coeffs[k] * normCoeff(alpha)})
			}
			s.funcs = append(s.funcs, f)
		}
	}
	if len(s.funcs) == 0 {
		return nil, fmt.Errorf("gaussian: molecule has no basis functions")
	}
	return s, nil
}

// NBasis is the number of basis functions.
func (s *Session) NBasis() int { return len(s.funcs) }

// Molecule returns the session's molecule.
func (s *Session) Molecule() *molecule.Molecule { return s.mol }

// Geometry returns the loaded geometry.
func (s *Session) Geometry() []float64 { return s.mol.Geometry() }

// SetGeometry reloads the session at g.
func (s *Session) SetGeometry(g []float64) error {
	return s.mol.SetGeometry(g)
}

// CheckGeometry reports whether g is the loaded geometry.
func (s *Session) CheckGeometry(g []float64) error {
	cur := s.mol.Geometry()
	if len(cur) != len(g) {
		return fmt.Errorf("%w: %d coordinates, session has %d", ErrGeometryMismatch, len(g), len(cur))
	}
	for i := range g {
		if cur[i] != g[i] {
			return fmt.Errorf("%w: coordinate %d", ErrGeometryMismatch, i)
		}
	}
	return nil
}

func (s *Session) center(f function) [3]float64 {
	return s.mol.Atoms[f.atom].Coords
}

func dist2(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// gaussianProduct returns the exponent sum, reduced exponent and centre of
// the product of two primitives.
func gaussianProduct(a, b float64, A, B [3]float64) (p, q float64, P [3]float64) {
	p = a + b
	q = a * b / p
	for k := 0; k < 3; k++ {
		P[k] = (a*A[k] + b*B[k]) / p
	}
	return p, q, P
}

// Boys is the zeroth-order Boys function F0(x).
func Boys(x float64) float64 {
	if x < 1e-10 {
		return 1 - x/3
	}
	return mathext.GammaIncReg(0.5, x) * math.Gamma(0.5) / (2 * math.Sqrt(x))
}

// oneElectron fills a symmetric n x n matrix from the pair kernel.
func (s *Session) oneElectron(name string, kernel func(i, j function) float64) []float64 {
	n := len(s.funcs)
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := kernel(s.funcs[i], s.funcs[j])
			out[i*n+j] = v
			out[j*n+i] = v
		}
	}
	metrics.IntegralEvaluationsTotal.WithLabelValues("gaussian_" + name).Inc()
	return out
}

// Overlap returns S row-major.
func (s *Session) Overlap() ([]float64, error) {
	return s.oneElectron("overlap", func(fi, fj function) float64 {
		A, B := s.center(fi), s.center(fj)
		R2 := dist2(A, B)
		sum := 0.0
		for _, a := range fi.prims {
			for _, b := range fj.prims {
				p, q, _ := gaussianProduct(a.alpha, b.alpha, A, B)
				sum += a.coeff * b.coeff * math.Exp(-q*R2) * math.Pow(math.Pi/p, 1.5)
			}
		}
		return sum
	}), nil
}

// Kinetic returns T row-major.
func (s *Session) Kinetic() ([]float64, error) {
	return s.oneElectron("kinetic", func(fi, fj function) float64 {
		A, B := s.center(fi), s.center(fj)
		R2 := dist2(A, B)
		sum := 0.0
		for _, a := range fi.prims {
			for _, b := range fj.prims {
				p, q, _ := gaussianProduct(a.alpha, b.alpha, A, B)
				ov := a.coeff * b.coeff * math.Exp(-q*R2) * math.Pow(math.Pi/p, 1.5)
				sum += q * (3 - 2*q*R2) * ov
			}
		}
		return sum
	}), nil
}

// Potential returns the electron-nuclear attraction V row-major.
func (s *Session) Potential() ([]float64, error) {
	atoms := s.mol.Atoms
	return s.oneElectron("potential", func(fi, fj function) float64 {
		A, B := s.center(fi), s.center(fj)
		R2 := dist2(A, B)
		sum := 0.0
		for _, a := range fi.prims {
			for _, b := range fj.prims {
				p, q, P := gaussianProduct(a.alpha, b.alpha, A, B)
				pre := a.coeff * b.coeff * math.Exp(-q*R2) * 2 * math.Pi / p
				for _, at := range atoms {
					sum -= float64(at.Z) * pre * Boys(p*dist2(P, at.Coords))
				}
			}
		}
		return sum
	}), nil
}

// TwoElectron returns (pq|rs) as a flat n^4 array with s fastest. Rows p
// are computed concurrently; each element is written exactly once.
func (s *Session) TwoElectron() ([]float64, error) {
	n := len(s.funcs)
	out := make([]float64, n*n*n*n)
	idx := func(p, q, r, t int) int { return ((p*n+q)*n+r)*n + t }

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for p := 0; p < n; p++ {
		g.Go(func() error {
			for q := 0; q < n; q++ {
				for r := 0; r < n; r++ {
					for t := 0; t < n; t++ {
						out[idx(p, q, r, t)] = s.eri(s.funcs[p], s.funcs[q], s.funcs[r], s.funcs[t])
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.IntegralEvaluationsTotal.WithLabelValues("gaussian_eri").Inc()
	return out, nil
}

func (s *Session) eri(fi, fj, fk, fl function) float64 {
	A, B, C, D := s.center(fi), s.center(fj), s.center(fk), s.center(fl)
	RAB, RCD := dist2(A, B), dist2(C, D)
	sum := 0.0
	for _, a := range fi.prims {
		for _, b := range fj.prims {
			p, qab, P := gaussianProduct(a.alpha, b.alpha, A, B)
			eab := math.Exp(-qab * RAB)
			for _, c := range fk.prims {
				for _, d := range fl.prims {
					r, qcd, Q := gaussianProduct(c.alpha, d.alpha, C, D)
					pre := 2 * math.Pow(math.Pi, 2.5) / (p * r * math.Sqrt(p+r))
					sum += a.coeff * b.coeff * c.coeff * d.coeff * pre * eab * math.Exp(-qcd*RCD) *
						Boys(p*r/(p+r)*dist2(P, Q))
				}
			}
		}
	}
	return sum
}
