// index.go --  This file is part of goHF project.
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

// Package derivindex maps derivative vectors to flat column indices of a
// derivative tensor and back.
//
// All vectors of total order N over D coordinates are ranked by their sorted
// coordinate multi-index, in the lexicographic order of combinations with
// replacement of N items drawn from {0..D-1}. For D=3, N=2 the columns are
//
//	(0,0) (0,1) (0,2) (1,1) (1,2) (2,2)
//
// The ordering depends only on D and N, so a store written by one process
// can be read by another.
package derivindex

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"
)

// multichoose counts multisets of size k drawn from n kinds.
func multichoose(n, k int) int {
	if k == 0 {
		return 1
	}
	if n <= 0 {
		return 0
	}
	return combin.Binomial(n+k-1, k)
}

// Count returns the number of distinct derivative vectors of the given
// total order over dim coordinates, i.e. the number of tensor columns.
func Count(dim, order int) int {
	if dim < 0 || order < 0 {
		return 0
	}
	return multichoose(dim, order)
}

// Encode returns the flat column of v among vectors of its own order and length.
func Encode(v Vector) (int, error) {
	if err := v.Validate(); err != nil {
		return 0, err
	}
	return rank(v.MultiIndex(), len(v)), nil
}

// Index is Encode with the declared order and dimensionality checked first.
// A mismatch fails loudly instead of truncating.
func Index(v Vector, order, dim int) (int, error) {
	if len(v) != dim {
		return 0, &MalformedError{Vector: v.Clone(), Reason: fmt.Sprintf("length %d, want dimensionality %d", len(v), dim)}
	}
	if got := v.Order(); got != order {
		return 0, &MalformedError{Vector: v.Clone(), Reason: fmt.Sprintf("order %d, want %d", got, order)}
	}
	return Encode(v)
}

func rank(multi []int, dim int) int {
	n := len(multi)
	idx := 0
	prev := 0
	for i, c := range multi {
		rest := n - i - 1
		for val := prev; val < c; val++ {
			idx += multichoose(dim-val, rest)
		}
		prev = c
	}
	return idx
}

// Decode inverts Encode for a given order and dimensionality.
func Decode(index, order, dim int) (Vector, error) {
	if order < 0 || dim < 0 {
		return nil, &MalformedError{Index: index, Reason: fmt.Sprintf("invalid order %d or dimensionality %d", order, dim)}
	}
	total := Count(dim, order)
	if index < 0 || index >= total {
		return nil, &MalformedError{Index: index, Reason: fmt.Sprintf("out of range [0,%d) for order %d, dimensionality %d", total, order, dim)}
	}
	v := make(Vector, dim)
	prev := 0
	for i := 0; i < order; i++ {
		rest := order - i - 1
		for val := prev; val < dim; val++ {
			cnt := multichoose(dim-val, rest)
			if index < cnt {
				v[val]++
				prev = val
				break
			}
			index -= cnt
		}
	}
	return v, nil
}

// Enumerate lists every vector of the given order in column order.
func Enumerate(dim, order int) []Vector {
	total := Count(dim, order)
	out := make([]Vector, 0, total)
	multi := make([]int, order)
	var walk func(pos, start int)
	walk = func(pos, start int) {
		if pos == order {
			v := make(Vector, dim)
			for _, c := range multi {
				v[c]++
			}
			out = append(out, v)
			return
		}
		for c := start; c < dim; c++ {
			multi[pos] = c
			walk(pos+1, c)
		}
	}
	if dim == 0 && order > 0 {
		return out
	}
	walk(0, 0)
	return out
}
