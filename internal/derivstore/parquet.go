// parquet.go --  This file is part of goHF project.
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
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// datasetRow represents a single dataset for Parquet serialization
type datasetRow struct {
	Dataset string    `parquet:"dataset"`
	Rows    int32     `parquet:"rows"`
	Cols    int32     `parquet:"cols"`
	Columns int32     `parquet:"columns"`
	Values  []float64 `parquet:"values"`
}

type parquetContainer struct{}

func (parquetContainer) name() string { return "parquet" }

func (parquetContainer) write(path string, sets []*Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[datasetRow](f, parquet.Compression(&parquet.Zstd))
	rows := make([]datasetRow, len(sets))
	for i, ds := range sets {
		rows[i] = datasetRow{
			Dataset: ds.Name,
			Rows:    int32(ds.Rows),
			Cols:    int32(ds.Cols),
			Columns: int32(ds.Columns),
			Values:  ds.Data,
		}
	}
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func (parquetContainer) scan(path string, fn func(ds *Dataset) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return err
	}

	pr := parquet.NewGenericReader[datasetRow](pf)
	defer pr.Close()

	rows := make([]datasetRow, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	for _, row := range rows[:n] {
		ds := &Dataset{
			Name:    row.Dataset,
			Rows:    int(row.Rows),
			Cols:    int(row.Cols),
			Columns: int(row.Columns),
			Data:    row.Values,
		}
		if !fn(ds) {
			return nil
		}
	}
	return nil
}
