// cache.go --  This file is part of goHF project.
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
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/metrics"
)

// Cached is a read-through cache in front of a Store. A dataset is read from
// disk the first time its (kind, order) is requested and served from memory
// afterwards. Missing datasets are not cached, so the typed error is
// returned on every request.
type Cached struct {
	store *Store

	mu       sync.Mutex
	sets     map[string]*Dataset
	geometry []float64
	geomRead bool
}

// NewCached wraps s.
func NewCached(s *Store) *Cached {
	return &Cached{store: s, sets: make(map[string]*Dataset)}
}

// Dataset behaves like Store.Dataset.
func (c *Cached) Dataset(kind string, order int) (*Dataset, error) {
	name := DatasetName(kind, order)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ds, ok := c.sets[name]; ok {
		metrics.StoreCacheHitsTotal.Inc()
		return ds, nil
	}
	ds, err := c.store.Dataset(kind, order)
	if err != nil {
		return nil, err
	}
	c.sets[name] = ds
	return ds, nil
}

// Slice behaves like Store.Slice.
func (c *Cached) Slice(kind string, v derivindex.Vector) (*mat.Dense, error) {
	if err := checkVector(v); err != nil {
		return nil, err
	}
	ds, err := c.Dataset(kind, v.Order())
	if err != nil {
		return nil, err
	}
	return sliceOf(ds, v)
}

// CheckGeometry behaves like Store.CheckGeometry, reading the recorded
// geometry once.
func (c *Cached) CheckGeometry(g []float64) error {
	c.mu.Lock()
	if !c.geomRead {
		ref, err := c.store.Geometry()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.geometry = ref
		c.geomRead = true
	}
	ref := c.geometry
	c.mu.Unlock()
	return compareGeometry(ref, g)
}
