// main.go --  This file is part of goHF project.
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
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mirzaevaiv/gohf/internal/config"
	"github.com/mirzaevaiv/gohf/internal/logging"
)

var (
	configFile  string
	envFile     string
	logLevel    string
	logFormat   string
	metricsAddr string
	plot        bool

	// scf
	maxIter        int
	damping        bool
	spectralShift  bool
	orthogonalizer string
	useDIIS        bool
	printMatrices  bool

	// populate, grad, deriv
	storePath string
	order     int
	kinds     []string
	kind      string
	vecText   string

	cfg    *config.Config
	logger zerolog.Logger
)

// main runs the gohf command line and exits with status 1 when a command
// fails.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "gohf",
		Short:             "restricted Hartree-Fock with differentiable integrals",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with GOHF_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&plot, "plot", false, "plot the SCF convergence history")

	scfCmd := &cobra.Command{
		Use:   "scf [input]",
		Short: "run RHF on an input file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSCF,
	}
	addSCFFlags(scfCmd)
	scfCmd.Flags().BoolVar(&printMatrices, "print", false, "print S, H, orbitals and density")

	populateCmd := &cobra.Command{
		Use:   "populate [input]",
		Short: "write finite-difference integral derivatives to a store",
		Args:  cobra.ExactArgs(1),
		RunE:  runPopulate,
	}
	populateCmd.Flags().IntVar(&order, "order", 1, "highest derivative order")
	populateCmd.Flags().StringVar(&storePath, "out", "", "store path (.arrow or .parquet)")
	populateCmd.Flags().StringSliceVar(&kinds, "kinds", nil, "integral kinds to write")

	derivCmd := &cobra.Command{
		Use:   "deriv [store]",
		Short: "print one derivative slice from a store",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeriv,
	}
	derivCmd.Flags().StringVar(&kind, "kind", "overlap", "integral kind")
	derivCmd.Flags().StringVar(&vecText, "vec", "", "derivative vector, e.g. \"1,0,0,0,0,0\"")
	_ = derivCmd.MarkFlagRequired("vec")

	gradCmd := &cobra.Command{
		Use:   "grad [input]",
		Short: "run RHF and the analytic nuclear gradient",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrad,
	}
	addSCFFlags(gradCmd)
	gradCmd.Flags().StringVar(&storePath, "store", "", "derivative store written by populate")

	hessianCmd := &cobra.Command{
		Use:   "hessian [input]",
		Short: "second energy derivatives by central differences of SCF energies",
		Args:  cobra.ExactArgs(1),
		RunE:  runHessian,
	}
	addSCFFlags(hessianCmd)

	rootCmd.AddCommand(scfCmd, populateCmd, derivCmd, gradCmd, hessianCmd)
	return rootCmd
}

func addSCFFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxIter, "maxit", 100, "maximum SCF iterations")
	cmd.Flags().BoolVar(&damping, "damping", false, "damp the density in the first iterations")
	cmd.Flags().BoolVar(&spectralShift, "spectral-shift", false, "shift the transformed Fock diagonal")
	cmd.Flags().StringVar(&orthogonalizer, "ortho", "cholesky", "orthogonalizer (cholesky, symmetric)")
	cmd.Flags().BoolVar(&useDIIS, "diis", false, "extrapolate the Fock matrix with DIIS")
}

// setup builds the run configuration from defaults, the config file, the
// environment and explicit flags, in that order.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("plot") {
		cfg.Plot = plot
	}
	if flags.Changed("maxit") {
		cfg.SCF.MaxIter = maxIter
	}
	if flags.Changed("damping") {
		cfg.SCF.Damping = damping
	}
	if flags.Changed("spectral-shift") {
		cfg.SCF.SpectralShift = spectralShift
	}
	if flags.Changed("diis") {
		cfg.SCF.DIIS = useDIIS
	}
	if flags.Changed("ortho") {
		cfg.SCF.Orthogonalizer = orthogonalizer
	}
	if flags.Changed("out") || flags.Changed("store") {
		cfg.StorePath = storePath
	}
	if flags.Changed("order") {
		cfg.PopulateOrder = order
	}
	if flags.Changed("kinds") {
		cfg.Kinds = kinds
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err = logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stderr})
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func printDelimiter() {
	fmt.Println(strings.Repeat("-", 70))
}

func setThreads(n int) {
	if n > 0 {
		runtime.GOMAXPROCS(n)
		logger.Info().Int("nprocs", n).Msg("number of threads set")
	}
}

func memDebug() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	logger.Debug().Uint64("alloc", memStats.Alloc).Uint64("total_alloc", memStats.TotalAlloc).
		Uint64("heap_alloc", memStats.HeapAlloc).Uint64("heap_sys", memStats.HeapSys).Msg("memory")
}
