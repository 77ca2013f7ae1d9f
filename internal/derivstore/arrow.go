// arrow.go --  This file is part of goHF project.
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
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// containerSchema is one row per dataset.
var containerSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "dataset", Type: arrow.BinaryTypes.String},
		{Name: "rows", Type: arrow.PrimitiveTypes.Int32},
		{Name: "cols", Type: arrow.PrimitiveTypes.Int32},
		{Name: "columns", Type: arrow.PrimitiveTypes.Int32},
		{Name: "values", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
	},
	nil,
)

type arrowContainer struct {
	mem memory.Allocator
}

func (c arrowContainer) name() string { return "arrow" }

func (c arrowContainer) write(path string, sets []*Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	b := array.NewRecordBuilder(c.mem, containerSchema)
	defer b.Release()

	nameB := b.Field(0).(*array.StringBuilder)
	rowsB := b.Field(1).(*array.Int32Builder)
	colsB := b.Field(2).(*array.Int32Builder)
	columnsB := b.Field(3).(*array.Int32Builder)
	valuesB := b.Field(4).(*array.ListBuilder)
	valB := valuesB.ValueBuilder().(*array.Float64Builder)

	for _, ds := range sets {
		nameB.Append(ds.Name)
		rowsB.Append(int32(ds.Rows))
		colsB.Append(int32(ds.Cols))
		columnsB.Append(int32(ds.Columns))
		valuesB.Append(true)
		valB.AppendValues(ds.Data, nil)
	}

	rec := b.NewRecord()
	defer rec.Release()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(containerSchema), ipc.WithAllocator(c.mem))
	if err != nil {
		return fmt.Errorf("derivstore: arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("derivstore: write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// scan visits every dataset in the file until fn returns false. The file
// is opened and closed within the call.
func (c arrowContainer) scan(path string, fn func(ds *Dataset) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(c.mem))
	if err != nil {
		return fmt.Errorf("derivstore: open arrow container %s: %w", path, err)
	}
	defer r.Close()

	if !r.Schema().Equal(containerSchema) {
		return fmt.Errorf("%w: unexpected schema in %s", ErrCorrupt, path)
	}

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return fmt.Errorf("derivstore: read record %d: %w", i, err)
		}
		names := rec.Column(0).(*array.String)
		rows := rec.Column(1).(*array.Int32)
		cols := rec.Column(2).(*array.Int32)
		columns := rec.Column(3).(*array.Int32)
		values := rec.Column(4).(*array.List)
		flat := values.ListValues().(*array.Float64).Float64Values()

		for j := 0; j < int(rec.NumRows()); j++ {
			start, end := values.ValueOffsets(j)
			ds := &Dataset{
				Name:    names.Value(j),
				Rows:    int(rows.Value(j)),
				Cols:    int(cols.Value(j)),
				Columns: int(columns.Value(j)),
				Data:    make([]float64, end-start),
			}
			// the record is owned by the reader, copy out before moving on
			copy(ds.Data, flat[start:end])
			if !fn(ds) {
				return nil
			}
		}
	}
	return nil
}
