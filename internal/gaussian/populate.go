// populate.go --  This file is part of goHF project.
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
package gaussian

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/derivstore"
)

// Kinds lists the store kinds Populate can write. "eri" datasets hold the
// n^2 x n^2 supermatrix of (pq|rs).
var Kinds = []string{"overlap", "kinetic", "potential", "eri"}

func (s *Session) evaluate(kind string) ([]float64, error) {
	switch kind {
	case "overlap":
		return s.Overlap()
	case "kinetic":
		return s.Kinetic()
	case "potential":
		return s.Potential()
	case "eri":
		return s.TwoElectron()
	}
	return nil, fmt.Errorf("gaussian: unknown kind %q", kind)
}

// Populate writes finite-difference derivatives of orders 1..maxOrder for
// each kind into w, together with the session geometry. The session is
// restored to its geometry afterwards. An empty kinds list means Kinds.
func (s *Session) Populate(w *derivstore.Writer, maxOrder int, kinds ...string) (err error) {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	g0 := s.Geometry()
	defer func() {
		if rerr := s.SetGeometry(g0); err == nil {
			err = rerr
		}
	}()
	if err := w.SetGeometry(g0); err != nil {
		return err
	}

	n := s.NBasis()
	dim := len(g0)
	for order := 1; order <= maxOrder; order++ {
		h := derivindex.Step(order)
		vs := derivindex.Enumerate(dim, order)
		sets := make(map[string]*derivstore.Dataset, len(kinds))
		for _, kind := range kinds {
			rows := n
			if kind == "eri" {
				rows = n * n
			}
			sets[kind] = derivstore.NewDataset(kind, order, rows, rows, len(vs))
		}

		// every displaced geometry is evaluated once per order
		memo := make(map[string]map[string][]float64)
		values := func(p derivindex.Point) (map[string][]float64, error) {
			key := p.Key()
			if vals, ok := memo[key]; ok {
				return vals, nil
			}
			if err := s.SetGeometry(p.Displace(g0, h)); err != nil {
				return nil, err
			}
			vals := make(map[string][]float64, len(kinds))
			for _, kind := range kinds {
				flat, err := s.evaluate(kind)
				if err != nil {
					return nil, err
				}
				vals[kind] = flat
			}
			memo[key] = vals
			return vals, nil
		}

		for c, v := range vs {
			acc := make(map[string][]float64, len(kinds))
			for _, p := range derivindex.Stencil(v, h) {
				vals, err := values(p)
				if err != nil {
					return err
				}
				for _, kind := range kinds {
					if acc[kind] == nil {
						acc[kind] = make([]float64, len(vals[kind]))
					}
					floats.AddScaled(acc[kind], p.Coeff, vals[kind])
				}
			}
			for _, kind := range kinds {
				ds := sets[kind]
				if err := ds.SetColumn(c, mat.NewDense(ds.Rows, ds.Cols, acc[kind])); err != nil {
					return err
				}
			}
		}
		for _, kind := range kinds {
			if err := w.Put(sets[kind]); err != nil {
				return err
			}
		}
		s.logger.Info().Int("order", order).Int("vectors", len(vs)).Int("geometries", len(memo)).
			Msg("derivative datasets computed")
	}
	return nil
}
