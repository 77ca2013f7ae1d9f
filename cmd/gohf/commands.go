// commands.go --  This file is part of goHF project.
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
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/derivstore"
	"github.com/mirzaevaiv/gohf/internal/gaussian"
	"github.com/mirzaevaiv/gohf/internal/molecule"
	"github.com/mirzaevaiv/gohf/internal/oei"
	"github.com/mirzaevaiv/gohf/internal/scf"
)

// loadSession parses the input file and prepares the reference integrals.
func loadSession(fname string) (*molecule.Input, *gaussian.Session, error) {
	logger.Info().Str("input", fname).Msg("starting gohf")
	inp, err := molecule.ReadFile(fname, logger)
	if err != nil {
		return nil, nil, err
	}
	setThreads(inp.Nprocs)
	sess, err := gaussian.NewSession(inp.Molecule, gaussian.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return inp, sess, nil
}

func solve(mol *molecule.Molecule, set *oei.Set, opts scf.Options) (*scf.Result, error) {
	solver, err := scf.New(set, opts, scf.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return solver.Run(scf.Input{
		Geometry: mol.Geometry(),
		Basis:    mol.BasisName,
		Charges:  mol.Charges(),
		Charge:   mol.Charge,
	})
}

func printEnergies(res *scf.Result) {
	printDelimiter()
	fmt.Printf("SCF status            = %s after %d iterations\n", res.Status, res.Iterations)
	fmt.Printf("Electronic energy     = %.10f a.u.\n", res.Energy)
	fmt.Printf("Nuclei repulsion      = %.10f a.u.\n", res.NuclearRepulsion)
	fmt.Printf("Final total energy    = %.10f a.u.\n", res.Total())
	if res.Degenerate {
		fmt.Println("Warning: degenerate orbitals, higher order derivatives may be unstable")
	}
	printDelimiter()
}

func plotHistory(res *scf.Result) {
	if len(res.History) < 2 {
		return
	}
	data := make([]float64, len(res.History))
	for i, it := range res.History {
		data[i] = it.Energy
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("electronic energy over %d iterations", len(data))),
	)
	fmt.Println(graph)
}

func printDense(name string, m mat.Matrix) {
	fmt.Println(name)
	fa := mat.Formatted(m, mat.Prefix("    "), mat.Squeeze())
	fmt.Printf("    %.8f\n", fa)
}

func runSCF(cmd *cobra.Command, args []string) error {
	inp, sess, err := loadSession(args[0])
	if err != nil {
		return err
	}
	opts := cfg.SCF
	opts.ReturnAux = opts.ReturnAux || printMatrices
	set := oei.NewSet(sess, nil, oei.WithLogger(logger))
	res, err := solve(inp.Molecule, set, opts)
	if err != nil {
		return err
	}

	printEnergies(res)
	if cfg.Plot {
		plotHistory(res)
	}
	if printMatrices {
		g := inp.Molecule.Geometry()
		S, err := set.Overlap(g)
		if err != nil {
			return err
		}
		printDense("Overlap matrix:", S)
		printDense("MO coefficients:", res.C)
		printDense("Density matrix:", res.Density)
		fmt.Printf("Orbital energies: %.8f\n", res.Eps)
	}
	memDebug()
	return nil
}

func runPopulate(cmd *cobra.Command, args []string) error {
	_, sess, err := loadSession(args[0])
	if err != nil {
		return err
	}
	w := derivstore.NewWriter(cfg.StorePath, derivstore.WithLogger(logger))
	if err := sess.Populate(w, cfg.PopulateOrder, cfg.Kinds...); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Printf("Derivatives up to order %d written to %s\n", cfg.PopulateOrder, cfg.StorePath)
	return nil
}

func runDeriv(cmd *cobra.Command, args []string) error {
	store, err := derivstore.Open(args[0], derivstore.WithLogger(logger))
	if err != nil {
		return err
	}
	v, err := derivindex.Parse(vecText)
	if err != nil {
		return err
	}
	m, err := store.Slice(kind, v)
	if err != nil {
		return err
	}
	printDense(fmt.Sprintf("%s derivative %s:", kind, v), m)
	return nil
}

func runGrad(cmd *cobra.Command, args []string) error {
	inp, sess, err := loadSession(args[0])
	if err != nil {
		return err
	}
	store, err := derivstore.Open(cfg.StorePath, derivstore.WithLogger(logger))
	if err != nil {
		return err
	}
	set := oei.NewSet(sess, derivstore.NewCached(store), oei.WithLogger(logger))

	opts := cfg.SCF
	opts.ReturnAux = true
	res, err := solve(inp.Molecule, set, opts)
	if err != nil {
		return err
	}
	printEnergies(res)
	if cfg.Plot {
		plotHistory(res)
	}
	if res.Status != scf.Converged {
		logger.Warn().Msg("gradient of an unconverged SCF")
	}

	grad, err := scf.Gradient(res, set)
	if err != nil {
		return err
	}
	fmt.Println("Nuclear gradient (a.u.):")
	for i, a := range inp.Molecule.Atoms {
		fmt.Printf("  %-3s %16.10f %16.10f %16.10f\n", a.Name, grad[3*i], grad[3*i+1], grad[3*i+2])
	}
	printDelimiter()
	memDebug()
	return nil
}

func runHessian(cmd *cobra.Command, args []string) error {
	inp, sess, err := loadSession(args[0])
	if err != nil {
		return err
	}
	solver, err := scf.New(oei.NewSet(sess, nil, oei.WithLogger(logger)), cfg.SCF, scf.WithLogger(logger))
	if err != nil {
		return err
	}
	mol := inp.Molecule
	H, err := solver.Hessian(scf.Input{
		Geometry: mol.Geometry(),
		Basis:    mol.BasisName,
		Charges:  mol.Charges(),
		Charge:   mol.Charge,
	}, sess)
	if err != nil {
		return err
	}
	printDense("Nuclear Hessian (a.u.):", H)
	printDelimiter()
	memDebug()
	return nil
}
