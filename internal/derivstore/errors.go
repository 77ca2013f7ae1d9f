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
package derivstore

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDerivativeData means the requested (kind, order) dataset was
	// never precomputed. Callers differentiating to higher order check for it
	// with errors.Is to tell "not computed" apart from a malformed request.
	ErrMissingDerivativeData = errors.New("derivstore: derivative data not precomputed")

	// ErrDuplicateDataset is returned when a writer is asked to store a key twice.
	ErrDuplicateDataset = errors.New("derivstore: dataset already written")

	// ErrWriterClosed is returned on use of a closed writer.
	ErrWriterClosed = errors.New("derivstore: writer closed")

	// ErrCorrupt marks a container whose contents do not match its declared shape.
	ErrCorrupt = errors.New("derivstore: corrupt dataset")

	// ErrGeometryMismatch means the store was populated for another geometry.
	ErrGeometryMismatch = errors.New("derivstore: store populated for a different geometry")
)

// MissingDerivativeDataError names the dataset that could not be found.
type MissingDerivativeDataError struct {
	Kind  string
	Order int
	Path  string
}

func (e *MissingDerivativeDataError) Error() string {
	return fmt.Sprintf("derivstore: no dataset %s in %s (derivative order %d not precomputed)",
		DatasetName(e.Kind, e.Order), e.Path, e.Order)
}

func (e *MissingDerivativeDataError) Unwrap() error {
	return ErrMissingDerivativeData
}
