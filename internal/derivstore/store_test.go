// store_test.go --  This file is part of goHF project.
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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
)

// fillDataset writes a recognisable value at every element:
// 1000*column + 10*i + j.
func fillDataset(kind string, order, n, dim int) *Dataset {
	cols := derivindex.Count(dim, order)
	ds := NewDataset(kind, order, n, n, cols)
	for c := 0; c < cols; c++ {
		m := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				m.Set(i, j, float64(1000*c+10*i+j))
			}
		}
		if err := ds.SetColumn(c, m); err != nil {
			panic(err)
		}
	}
	return ds
}

func writeStore(t *testing.T, path string) {
	t.Helper()
	w := NewWriter(path)
	require.NoError(t, w.SetGeometry([]float64{0, 0, 0, 0, 0, 1.4}))
	require.NoError(t, w.Put(fillDataset("overlap", 1, 2, 6)))
	require.NoError(t, w.Put(fillDataset("overlap", 2, 2, 6)))
	require.NoError(t, w.Put(fillDataset("kinetic", 1, 2, 6)))
	require.NoError(t, w.Close())
}

func TestStoreFormats(t *testing.T) {
	for _, ext := range []string{".arrow", ".parquet"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "oei_derivs"+ext)
			writeStore(t, path)

			s, err := Open(path)
			require.NoError(t, err)

			names, err := s.Names()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{GeometryKey, "overlap_deriv1", "overlap_deriv2", "kinetic_deriv1"}, names)

			ds, err := s.Dataset("overlap", 2)
			require.NoError(t, err)
			assert.Equal(t, 21, ds.Columns)
			assert.Equal(t, 2, ds.Rows)

			v := derivindex.Vector{0, 1, 0, 0, 0, 1}
			idx, err := derivindex.Encode(v)
			require.NoError(t, err)
			m, err := s.Slice("overlap", v)
			require.NoError(t, err)
			assert.Equal(t, float64(1000*idx+10*1+0), m.At(1, 0))
			assert.Equal(t, float64(1000*idx+1), m.At(0, 1))

			require.NoError(t, s.CheckGeometry([]float64{0, 0, 0, 0, 0, 1.4}))
			assert.ErrorIs(t, s.CheckGeometry([]float64{0, 0, 0, 0, 0, 1.5}), ErrGeometryMismatch)
		})
	}
}

func TestFormatsAgree(t *testing.T) {
	dir := t.TempDir()
	arrowPath := filepath.Join(dir, "s.arrow")
	parquetPath := filepath.Join(dir, "s.parquet")
	writeStore(t, arrowPath)
	writeStore(t, parquetPath)

	a, err := Open(arrowPath)
	require.NoError(t, err)
	p, err := Open(parquetPath)
	require.NoError(t, err)

	for _, v := range derivindex.Enumerate(6, 2) {
		ma, err := a.Slice("overlap", v)
		require.NoError(t, err)
		mp, err := p.Slice("overlap", v)
		require.NoError(t, err)
		assert.True(t, mat.Equal(ma, mp), "vector %v", v)
	}
}

func TestMissingDerivativeData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.arrow")
	writeStore(t, path)
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Slice("overlap", derivindex.Vector{1, 1, 1, 0, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDerivativeData))
	assert.False(t, errors.Is(err, derivindex.ErrMalformed))

	var missing *MissingDerivativeDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "overlap", missing.Kind)
	assert.Equal(t, 3, missing.Order)

	_, err = s.Slice("potential", derivindex.Unit(6, 0))
	assert.ErrorIs(t, err, ErrMissingDerivativeData)
}

func TestMalformedLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.arrow")
	writeStore(t, path)
	s, err := Open(path)
	require.NoError(t, err)

	// 9 coordinates imply 9 first-order columns, the dataset has 6
	_, err = s.Slice("overlap", derivindex.Unit(9, 0))
	assert.ErrorIs(t, err, derivindex.ErrMalformed)
	assert.NotErrorIs(t, err, ErrMissingDerivativeData)

	_, err = s.Slice("overlap", derivindex.Vector{1, -1, 0, 0, 0, 1})
	assert.ErrorIs(t, err, derivindex.ErrMalformed)

	// order 0 is never stored
	_, err = s.Slice("overlap", derivindex.Zero(6))
	assert.ErrorIs(t, err, derivindex.ErrMalformed)
	assert.NotErrorIs(t, err, ErrMissingDerivativeData)
	_, err = NewCached(s).Slice("overlap", derivindex.Zero(6))
	assert.ErrorIs(t, err, derivindex.ErrMalformed)
}

func TestWriterAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.arrow")
	w := NewWriter(path)
	require.NoError(t, w.Put(fillDataset("overlap", 1, 2, 6)))
	assert.ErrorIs(t, w.Put(fillDataset("overlap", 1, 2, 6)), ErrDuplicateDataset)
	assert.ErrorIs(t, w.Put(&Dataset{Name: "bad", Rows: 2, Cols: 2, Columns: 1, Data: []float64{1}}), ErrCorrupt)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Put(fillDataset("kinetic", 1, 2, 6)), ErrWriterClosed)
	assert.ErrorIs(t, w.Close(), ErrWriterClosed)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.arrow"))
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.parquet")
	writeStore(t, path)
	s, err := Open(path)
	require.NoError(t, err)
	c := NewCached(s)

	v := derivindex.Unit(6, 5)
	first, err := c.Slice("kinetic", v)
	require.NoError(t, err)
	second, err := c.Slice("kinetic", v)
	require.NoError(t, err)
	direct, err := s.Slice("kinetic", v)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first, second))
	assert.True(t, mat.Equal(first, direct))

	_, err = c.Slice("kinetic", derivindex.Vector{2, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrMissingDerivativeData)

	require.NoError(t, c.CheckGeometry([]float64{0, 0, 0, 0, 0, 1.4}))
	assert.ErrorIs(t, c.CheckGeometry([]float64{0, 0, 0}), ErrGeometryMismatch)
}
