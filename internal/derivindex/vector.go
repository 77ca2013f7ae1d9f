// vector.go --  This file is part of goHF project.
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
package derivindex

import (
	"fmt"
	"strconv"
	"strings"
)

// Vector holds the partial-derivative order requested along each
// Cartesian coordinate of a flattened geometry (length 3*natom).
type Vector []int

// Zero returns the order-0 vector of the given dimensionality.
func Zero(dim int) Vector {
	return make(Vector, dim)
}

// Unit returns the vector with a single first derivative along coordinate i.
func Unit(dim, i int) Vector {
	v := make(Vector, dim)
	v[i] = 1
	return v
}

// Order is the total derivative order, the sum of all entries.
func (v Vector) Order() int {
	n := 0
	for _, k := range v {
		n += k
	}
	return n
}

// Clone returns a copy that does not share storage with v.
func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Validate reports negative entries as a malformed request.
func (v Vector) Validate() error {
	for i, k := range v {
		if k < 0 {
			return &MalformedError{Vector: v.Clone(), Reason: fmt.Sprintf("negative order %d at coordinate %d", k, i)}
		}
	}
	return nil
}

// Add composes two derivative requests. Tangents add in derivative-order
// space, so differentiating d^v f along t yields d^(v+t) f.
func (v Vector) Add(t Vector) (Vector, error) {
	if len(v) != len(t) {
		return nil, &MalformedError{
			Vector: t.Clone(),
			Reason: fmt.Sprintf("tangent length %d does not match vector length %d", len(t), len(v)),
		}
	}
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] + t[i]
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Equal reports element-wise equality.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// MultiIndex expands v into the sorted list of coordinates it
// differentiates along, e.g. [1 0 2] -> [0 2 2].
func (v Vector) MultiIndex() []int {
	idx := make([]int, 0, v.Order())
	for i, k := range v {
		for j := 0; j < k; j++ {
			idx = append(idx, i)
		}
	}
	return idx
}

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, k := range v {
		parts[i] = strconv.Itoa(k)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Parse reads a vector written as comma or space separated integers.
func Parse(s string) (Vector, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '[' || r == ']'
	})
	v := make(Vector, len(fields))
	for i, f := range fields {
		k, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("derivindex: parse %q: %w", s, err)
		}
		v[i] = k
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}
