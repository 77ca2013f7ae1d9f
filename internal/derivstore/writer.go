// writer.go --  This file is part of goHF project.
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

	"github.com/rs/zerolog"
)

// Writer collects datasets for one run and writes the container on Close.
// Keys can be added once; there is no update or delete.
type Writer struct {
	path   string
	c      container
	logger zerolog.Logger
	sets   []*Dataset
	names  map[string]struct{}
	closed bool
}

// NewWriter prepares a container at path. The format follows the file
// extension, as with Open.
func NewWriter(path string, opts ...Option) *Writer {
	o := buildOptions(opts)
	return &Writer{
		path:   path,
		c:      containerFor(path, o),
		logger: o.logger,
		names:  make(map[string]struct{}),
	}
}

// Put appends a dataset.
func (w *Writer) Put(ds *Dataset) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := ds.validate(); err != nil {
		return err
	}
	if _, ok := w.names[ds.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDataset, ds.Name)
	}
	w.names[ds.Name] = struct{}{}
	w.sets = append(w.sets, ds)
	return nil
}

// SetGeometry records the geometry the datasets were computed for.
func (w *Writer) SetGeometry(g []float64) error {
	data := make([]float64, len(g))
	copy(data, g)
	return w.Put(&Dataset{Name: GeometryKey, Rows: 1, Cols: len(g), Columns: 1, Data: data})
}

// Close writes the container. A writer cannot be reused.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	if err := w.c.write(w.path, w.sets); err != nil {
		return fmt.Errorf("derivstore: write %s: %w", w.path, err)
	}
	w.logger.Info().Str("path", w.path).Str("format", w.c.name()).Int("datasets", len(w.sets)).Msg("derivative store written")
	return nil
}
