// dataset.go --  This file is part of goHF project.
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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GeometryKey is the reserved dataset holding the geometry a store was
// populated for. It is a 1 x 3N x 1 array.
const GeometryKey = "geometry"

// DatasetName is the container key for a (kind, order) pair.
func DatasetName(kind string, order int) string {
	return fmt.Sprintf("%s_deriv%d", kind, order)
}

// Dataset is a Rows x Cols x Columns array stored row-major: element
// (i, j, c) lives at Data[(i*Cols+j)*Columns+c]. Column c is the slice of
// the c-th derivative vector in canonical order.
type Dataset struct {
	Name    string
	Rows    int
	Cols    int
	Columns int
	Data    []float64
}

// NewDataset allocates a zeroed dataset for kind at the given order.
func NewDataset(kind string, order, rows, cols, columns int) *Dataset {
	return &Dataset{
		Name:    DatasetName(kind, order),
		Rows:    rows,
		Cols:    cols,
		Columns: columns,
		Data:    make([]float64, rows*cols*columns),
	}
}

func (d *Dataset) validate() error {
	if d.Rows <= 0 || d.Cols <= 0 || d.Columns <= 0 {
		return fmt.Errorf("%w: %s has shape (%d,%d,%d)", ErrCorrupt, d.Name, d.Rows, d.Cols, d.Columns)
	}
	if len(d.Data) != d.Rows*d.Cols*d.Columns {
		return fmt.Errorf("%w: %s holds %d values, shape (%d,%d,%d) needs %d",
			ErrCorrupt, d.Name, len(d.Data), d.Rows, d.Cols, d.Columns, d.Rows*d.Cols*d.Columns)
	}
	return nil
}

// Column extracts the Rows x Cols slice at column c as a fresh matrix.
func (d *Dataset) Column(c int) (*mat.Dense, error) {
	if c < 0 || c >= d.Columns {
		return nil, fmt.Errorf("derivstore: column %d out of range for %s with %d columns", c, d.Name, d.Columns)
	}
	out := mat.NewDense(d.Rows, d.Cols, nil)
	for i := 0; i < d.Rows; i++ {
		for j := 0; j < d.Cols; j++ {
			out.Set(i, j, d.Data[(i*d.Cols+j)*d.Columns+c])
		}
	}
	return out, nil
}

// SetColumn writes m into column c.
func (d *Dataset) SetColumn(c int, m mat.Matrix) error {
	r, k := m.Dims()
	if r != d.Rows || k != d.Cols {
		return fmt.Errorf("derivstore: %dx%d matrix does not fit %s (%dx%d)", r, k, d.Name, d.Rows, d.Cols)
	}
	if c < 0 || c >= d.Columns {
		return fmt.Errorf("derivstore: column %d out of range for %s with %d columns", c, d.Name, d.Columns)
	}
	for i := 0; i < d.Rows; i++ {
		for j := 0; j < d.Cols; j++ {
			d.Data[(i*d.Cols+j)*d.Columns+c] = m.At(i, j)
		}
	}
	return nil
}
