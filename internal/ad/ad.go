// ad.go --  This file is part of goHF project.
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

// Package ad is a small forward-mode differentiation engine for matrix-valued
// functions of nuclear geometry.
//
// An operator is described by two primitives: the base evaluation f(g) and
// the derivative evaluation d^v f(g) for a derivative vector v. Their rules
// are
//
//	jvp(f)(g; t)       = d^t f(g)
//	jvp(d^v f)(g; t)   = d^(v+t) f(g)
//
// so any order is reached by applying the second rule repeatedly. Batched
// evaluation stacks independent requests along a leading axis; it is the
// path Jacobian and Tensor take instead of one dispatch per direction.
package ad

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
)

var (
	// ErrUnknownPrimitive is returned by Registry.Lookup.
	ErrUnknownPrimitive = errors.New("ad: unknown primitive")
	// ErrDuplicatePrimitive is returned when a name is registered twice.
	ErrDuplicatePrimitive = errors.New("ad: primitive already registered")
	// ErrBatchAxis is returned when a batching rule reports an axis other than 0.
	ErrBatchAxis = errors.New("ad: unsupported batch axis")
)

// Primitive is a base operator f(g).
type Primitive interface {
	Name() string
	Eval(g []float64) (*mat.Dense, error)
	JVP(g []float64, t derivindex.Vector) (primal, tangent *mat.Dense, err error)
}

// DerivPrimitive is the derivative operator d^v f(g) with its batching rule.
// Batch returns the stacked results and the position of the batch axis.
type DerivPrimitive interface {
	Name() string
	Eval(g []float64, v derivindex.Vector) (*mat.Dense, error)
	JVP(g []float64, v, t derivindex.Vector) (primal, tangent *mat.Dense, err error)
	Batch(g []float64, vs []derivindex.Vector) (*Stack, int, error)
}

// Stack holds batched matrices along axis 0.
type Stack struct {
	Items []*mat.Dense
}

// Len is the batch size.
func (s *Stack) Len() int { return len(s.Items) }

// At returns batch element i.
func (s *Stack) At(i int) *mat.Dense { return s.Items[i] }

// Rule pairs the base and derivative primitives of one operator.
type Rule struct {
	Base  Primitive
	Deriv DerivPrimitive
}

// Registry maps primitive names to their rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds an operator under the base primitive's name.
func (r *Registry) Register(base Primitive, deriv DerivPrimitive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := base.Name()
	if _, ok := r.rules[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePrimitive, name)
	}
	r.rules[name] = Rule{Base: base, Deriv: deriv}
	return nil
}

// Lookup finds an operator by base or derivative primitive name.
func (r *Registry) Lookup(name string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rule, ok := r.rules[name]; ok {
		return rule, nil
	}
	for _, rule := range r.rules {
		if rule.Deriv != nil && rule.Deriv.Name() == name {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrUnknownPrimitive, name)
}

// Names lists registered base primitives in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Nested differentiates f along ts in turn and returns the final tangent,
// i.e. d^(t1+...+tk) f(g). With no tangents it returns f(g).
func Nested(rule Rule, g []float64, ts ...derivindex.Vector) (*mat.Dense, error) {
	if len(ts) == 0 {
		return rule.Base.Eval(g)
	}
	_, tangent, err := rule.Base.JVP(g, ts[0])
	if err != nil {
		return nil, err
	}
	acc := ts[0].Clone()
	for _, t := range ts[1:] {
		_, tangent, err = rule.Deriv.JVP(g, acc, t)
		if err != nil {
			return nil, err
		}
		if acc, err = acc.Add(t); err != nil {
			return nil, err
		}
	}
	return tangent, nil
}

func batch(d DerivPrimitive, g []float64, vs []derivindex.Vector) (*Stack, error) {
	s, axis, err := d.Batch(g, vs)
	if err != nil {
		return nil, err
	}
	if axis != 0 {
		return nil, fmt.Errorf("%w: %s reported axis %d", ErrBatchAxis, d.Name(), axis)
	}
	return s, nil
}

// BatchJVP evaluates the tangents of d^v f along every t in ts in one batch.
func BatchJVP(d DerivPrimitive, g []float64, v derivindex.Vector, ts []derivindex.Vector) (*Stack, error) {
	vs := make([]derivindex.Vector, len(ts))
	for i, t := range ts {
		sum, err := v.Add(t)
		if err != nil {
			return nil, err
		}
		vs[i] = sum
	}
	return batch(d, g, vs)
}

// Jacobian returns df/dg_i for every coordinate i, stacked along axis 0.
func Jacobian(d DerivPrimitive, g []float64) (*Stack, error) {
	dim := len(g)
	units := make([]derivindex.Vector, dim)
	for i := range units {
		units[i] = derivindex.Unit(dim, i)
	}
	return batch(d, g, units)
}

// Tensor returns every distinct derivative of the given order in canonical
// column order, together with the vectors they belong to.
func Tensor(d DerivPrimitive, g []float64, order int) (*Stack, []derivindex.Vector, error) {
	vs := derivindex.Enumerate(len(g), order)
	s, err := batch(d, g, vs)
	if err != nil {
		return nil, nil, err
	}
	return s, vs, nil
}
