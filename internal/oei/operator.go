// operator.go --  This file is part of goHF project.
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

// Package oei implements the differentiable one-electron integral operators.
//
// For each integral kind there is a base operator, whose value comes from
// the integral library session, and a derivative operator, whose value
// comes from the derivative store. Both satisfy the ad primitive contracts.
package oei

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/ad"
	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/derivstore"
	"github.com/mirzaevaiv/gohf/internal/metrics"
)

var (
	// ErrNotSquare means the library returned a flat array whose length is
	// not n*n. It is an integration error, never a user error.
	ErrNotSquare = errors.New("oei: integral output is not a square matrix")
	// ErrUnknownKind is returned by ParseKind.
	ErrUnknownKind = errors.New("oei: unknown integral kind")
)

// Library is an integral session loaded with one geometry and basis. Each
// call returns a flat row-major array for the session's current geometry.
type Library interface {
	Overlap() ([]float64, error)
	Kinetic() ([]float64, error)
	Potential() ([]float64, error)
	TwoElectron() ([]float64, error)
}

// geometryChecker is implemented by sessions and stores that know which
// geometry they were prepared for.
type geometryChecker interface {
	CheckGeometry(g []float64) error
}

// Kind selects an integral.
type Kind int

const (
	Overlap Kind = iota
	Kinetic
	Potential
)

// Kinds lists the one-electron kinds in Hamiltonian order.
var Kinds = []Kind{Overlap, Kinetic, Potential}

func (k Kind) String() string {
	switch k {
	case Overlap:
		return "overlap"
	case Kinetic:
		return "kinetic"
	case Potential:
		return "potential"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the store key prefix of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) call(lib Library) ([]float64, error) {
	switch k {
	case Overlap:
		return lib.Overlap()
	case Kinetic:
		return lib.Kinetic()
	case Potential:
		return lib.Potential()
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

type options struct {
	logger zerolog.Logger
}

// Option configures operators.
type Option func(*options)

// WithLogger sets the logger used at evaluation checkpoints.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// reshape turns a flat n*n array into an n x n matrix.
func reshape(flat []float64) (*mat.Dense, error) {
	n := int(math.Round(math.Sqrt(float64(len(flat)))))
	if n == 0 || n*n != len(flat) {
		return nil, fmt.Errorf("%w: length %d", ErrNotSquare, len(flat))
	}
	data := make([]float64, len(flat))
	copy(data, flat)
	return mat.NewDense(n, n, data), nil
}

// Operator is the base evaluator eval_k(g).
type Operator struct {
	kind   Kind
	lib    Library
	deriv  *DerivOperator
	logger zerolog.Logger
}

// New builds the operator pair for kind. lib answers base evaluations and
// src answers derivative lookups.
func New(kind Kind, lib Library, src derivstore.Source, opts ...Option) *Operator {
	o := buildOptions(opts)
	op := &Operator{kind: kind, lib: lib, logger: o.logger}
	op.deriv = &DerivOperator{base: op, src: src, logger: o.logger}
	return op
}

// Kind reports the integral kind.
func (o *Operator) Kind() Kind { return o.kind }

// Name is the primitive name, e.g. "overlap".
func (o *Operator) Name() string { return o.kind.String() }

// Deriv returns the derivative operator eval_k_deriv.
func (o *Operator) Deriv() *DerivOperator { return o.deriv }

// Eval returns the integral matrix at g. The library session must already be
// loaded with g; sessions that can tell are checked.
func (o *Operator) Eval(g []float64) (*mat.Dense, error) {
	if c, ok := o.lib.(geometryChecker); ok {
		if err := c.CheckGeometry(g); err != nil {
			return nil, fmt.Errorf("oei: %s: %w", o.Name(), err)
		}
	}
	flat, err := o.kind.call(o.lib)
	if err != nil {
		return nil, fmt.Errorf("oei: %s: %w", o.Name(), err)
	}
	m, err := reshape(flat)
	if err != nil {
		return nil, fmt.Errorf("oei: %s: %w", o.Name(), err)
	}
	metrics.IntegralEvaluationsTotal.WithLabelValues(o.Name()).Inc()
	return m, nil
}

// JVP returns eval_k(g) and its directional derivative along t, which is
// eval_k_deriv(g, t).
func (o *Operator) JVP(g []float64, t derivindex.Vector) (*mat.Dense, *mat.Dense, error) {
	primal, err := o.Eval(g)
	if err != nil {
		return nil, nil, err
	}
	tangent, err := o.deriv.Eval(g, t)
	if err != nil {
		return nil, nil, err
	}
	return primal, tangent, nil
}

// DerivOperator is the derivative evaluator eval_k_deriv(g, v).
type DerivOperator struct {
	base   *Operator
	src    derivstore.Source
	logger zerolog.Logger
}

// Name is the primitive name, e.g. "overlap_deriv".
func (d *DerivOperator) Name() string { return d.base.Name() + "_deriv" }

// Eval returns d^v eval_k(g). The zero vector is the base value.
func (d *DerivOperator) Eval(g []float64, v derivindex.Vector) (*mat.Dense, error) {
	if len(v) != len(g) {
		return nil, &derivindex.MalformedError{
			Vector: v.Clone(),
			Reason: fmt.Sprintf("length %d does not match %d geometry coordinates", len(v), len(g)),
		}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.Order() == 0 {
		return d.base.Eval(g)
	}
	if c, ok := d.src.(geometryChecker); ok {
		if err := c.CheckGeometry(g); err != nil {
			return nil, fmt.Errorf("oei: %s: %w", d.Name(), err)
		}
	}
	m, err := d.src.Slice(d.base.Name(), v)
	if err != nil {
		return nil, fmt.Errorf("oei: %s %v: %w", d.Name(), v, err)
	}
	metrics.IntegralEvaluationsTotal.WithLabelValues(d.Name()).Inc()
	return m, nil
}

// JVP returns d^v f(g) and its tangent d^(v+t) f(g).
func (d *DerivOperator) JVP(g []float64, v, t derivindex.Vector) (*mat.Dense, *mat.Dense, error) {
	primal, err := d.Eval(g, v)
	if err != nil {
		return nil, nil, err
	}
	next, err := v.Add(t)
	if err != nil {
		return nil, nil, err
	}
	tangent, err := d.Eval(g, next)
	if err != nil {
		return nil, nil, err
	}
	return primal, tangent, nil
}

// Batch evaluates every vector against g and stacks the results along a new
// leading axis, which is reported as 0.
func (d *DerivOperator) Batch(g []float64, vs []derivindex.Vector) (*ad.Stack, int, error) {
	metrics.BatchSize.Observe(float64(len(vs)))
	s := &ad.Stack{Items: make([]*mat.Dense, len(vs))}
	for i, v := range vs {
		m, err := d.Eval(g, v)
		if err != nil {
			return nil, 0, err
		}
		s.Items[i] = m
	}
	d.logger.Debug().Str("operator", d.Name()).Int("batch", len(vs)).Msg("batched derivative evaluation")
	return s, 0, nil
}

var (
	_ ad.Primitive      = (*Operator)(nil)
	_ ad.DerivPrimitive = (*DerivOperator)(nil)
)
