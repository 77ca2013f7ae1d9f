// store.go --  This file is part of goHF project.
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

// Package derivstore reads and writes the on-disk repository of integral
// derivative tensors.
//
// A container holds one dataset per (integral kind, derivative order) under
// the key "{kind}_deriv{order}". Each dataset is a Rows x Cols x Columns
// array whose third axis is indexed by derivindex's canonical column order.
// Containers are written once per geometry/basis and are read-only
// afterwards; every read opens the file and closes it before returning.
package derivstore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/metrics"
)

type container interface {
	name() string
	write(path string, sets []*Dataset) error
	scan(path string, fn func(ds *Dataset) bool) error
}

type options struct {
	logger zerolog.Logger
	mem    memory.Allocator
}

// Option configures a Store or Writer.
type Option func(*options)

// WithLogger sets the logger for open and lookup checkpoints.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAllocator sets the Arrow allocator used for IPC containers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), mem: memory.NewGoAllocator()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func containerFor(path string, o options) container {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return parquetContainer{}
	}
	return arrowContainer{mem: o.mem}
}

// Source resolves derivative vectors to integral slices.
type Source interface {
	Slice(kind string, v derivindex.Vector) (*mat.Dense, error)
}

// Store is a read-only handle on a derivative container.
type Store struct {
	path   string
	c      container
	logger zerolog.Logger
}

// Open checks that the container exists and returns a handle on it. No file
// descriptor is held between calls.
func Open(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("derivstore: open %s: %w", path, err)
	}
	o := buildOptions(opts)
	return &Store{path: path, c: containerFor(path, o), logger: o.logger}, nil
}

// Path returns the container path.
func (s *Store) Path() string {
	return s.path
}

// find performs one scoped read of the container.
func (s *Store) find(name string) (*Dataset, error) {
	start := time.Now()
	var found *Dataset
	err := s.c.scan(s.path, func(ds *Dataset) bool {
		if ds.Name == name {
			found = ds
			return false
		}
		return true
	})
	metrics.StoreOpenDurationSeconds.WithLabelValues(s.c.name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("derivstore: read %s: %w", s.path, err)
	}
	return found, nil
}

// Dataset returns the full tensor for kind at the given derivative order.
func (s *Store) Dataset(kind string, order int) (*Dataset, error) {
	name := DatasetName(kind, order)
	ds, err := s.find(name)
	if err != nil {
		metrics.StoreLookupsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	if ds == nil {
		metrics.StoreLookupsTotal.WithLabelValues(kind, "missing").Inc()
		s.logger.Debug().Str("dataset", name).Str("path", s.path).Msg("derivative dataset missing")
		return nil, &MissingDerivativeDataError{Kind: kind, Order: order, Path: s.path}
	}
	if err := ds.validate(); err != nil {
		metrics.StoreLookupsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	metrics.StoreLookupsTotal.WithLabelValues(kind, "hit").Inc()
	s.logger.Debug().Str("dataset", name).Int("columns", ds.Columns).Msg("derivative dataset loaded")
	return ds, nil
}

// Slice returns the integral derivative matrix for v.
func (s *Store) Slice(kind string, v derivindex.Vector) (*mat.Dense, error) {
	if err := checkVector(v); err != nil {
		return nil, err
	}
	ds, err := s.Dataset(kind, v.Order())
	if err != nil {
		return nil, err
	}
	return sliceOf(ds, v)
}

// checkVector rejects invalid vectors and order 0, which is the base
// integral and never stored.
func checkVector(v derivindex.Vector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if v.Order() == 0 {
		return &derivindex.MalformedError{Vector: v.Clone(), Reason: "order 0 is the base integral, evaluate it on the session"}
	}
	return nil
}

func sliceOf(ds *Dataset, v derivindex.Vector) (*mat.Dense, error) {
	order := v.Order()
	if want := derivindex.Count(len(v), order); want != ds.Columns {
		return nil, &derivindex.MalformedError{
			Vector: v.Clone(),
			Reason: fmt.Sprintf("length %d implies %d columns at order %d, %s has %d", len(v), want, order, ds.Name, ds.Columns),
		}
	}
	idx, err := derivindex.Index(v, order, len(v))
	if err != nil {
		return nil, err
	}
	return ds.Column(idx)
}

// Geometry returns the geometry recorded by the writer, or nil when the
// container does not carry one.
func (s *Store) Geometry() ([]float64, error) {
	ds, err := s.find(GeometryKey)
	if err != nil || ds == nil {
		return nil, err
	}
	return ds.Data, nil
}

// Names lists the dataset keys in the container.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.c.scan(s.path, func(ds *Dataset) bool {
		names = append(names, ds.Name)
		return true
	})
	return names, err
}

// CheckGeometry fails with ErrGeometryMismatch when the store was written
// for a different geometry. Stores without a recorded geometry pass.
func (s *Store) CheckGeometry(g []float64) error {
	ref, err := s.Geometry()
	if err != nil {
		return err
	}
	return compareGeometry(ref, g)
}

const geometryTolerance = 1e-10

func compareGeometry(ref, g []float64) error {
	if ref == nil {
		return nil
	}
	if len(ref) != len(g) {
		return fmt.Errorf("%w: %d coordinates recorded, %d given", ErrGeometryMismatch, len(ref), len(g))
	}
	for i := range ref {
		if math.Abs(ref[i]-g[i]) > geometryTolerance {
			return fmt.Errorf("%w: coordinate %d differs (%g vs %g)", ErrGeometryMismatch, i, ref[i], g[i])
		}
	}
	return nil
}
