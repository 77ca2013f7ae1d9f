// errors.go --  This file is part of goHF project.
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
	"errors"
	"fmt"
)

// ErrMalformed marks derivative requests that can never be satisfied:
// wrong length, wrong total order, negative entries, or an index outside
// the enumeration. These are caller bugs.
var ErrMalformed = errors.New("derivindex: malformed derivative request")

// MalformedError carries the offending vector (or index) for diagnostics.
type MalformedError struct {
	Vector Vector
	Index  int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Vector != nil {
		return fmt.Sprintf("%v: vector %v: %s", ErrMalformed, e.Vector, e.Reason)
	}
	return fmt.Sprintf("%v: index %d: %s", ErrMalformed, e.Index, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}
