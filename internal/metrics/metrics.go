// metrics.go --  This file is part of goHF project.
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

// Package metrics holds the Prometheus instruments shared by gohf packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreLookupsTotal counts derivative-store lookups by integral kind and outcome
	StoreLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohf_store_lookups_total",
			Help: "Total number of derivative tensor store lookups",
		},
		[]string{"kind", "status"},
	)

	// StoreOpenDurationSeconds measures how long a scoped store access takes
	StoreOpenDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gohf_store_open_duration_seconds",
			Help:    "Duration of a single open-read-close cycle on the derivative store",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	// StoreCacheHitsTotal counts read-through cache hits
	StoreCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gohf_store_cache_hits_total",
			Help: "Total number of derivative datasets served from the in-memory cache",
		},
	)

	// IntegralEvaluationsTotal counts operator evaluations by operator name
	IntegralEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohf_integral_evaluations_total",
			Help: "Total number of integral operator evaluations",
		},
		[]string{"operator"},
	)

	// BatchSize observes the number of requests in a batched derivative evaluation
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gohf_batch_size",
			Help:    "Number of derivative vectors per batched evaluation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// SCFRunsTotal counts finished SCF runs by final status
	SCFRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohf_scf_runs_total",
			Help: "Total number of SCF runs by final status",
		},
		[]string{"status"},
	)

	// SCFIterations observes iterations needed per SCF run
	SCFIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gohf_scf_iterations",
			Help:    "Number of SCF iterations per run",
			Buckets: prometheus.LinearBuckets(0, 5, 21),
		},
	)

	// SCFDegeneracyWarningsTotal counts runs flagged for orbital degeneracy
	SCFDegeneracyWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gohf_scf_degeneracy_warnings_total",
			Help: "Total number of SCF runs with more than 20% degenerate orbitals",
		},
	)
)
