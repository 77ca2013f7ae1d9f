// main_test.go --  This file is part of goHF project.
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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzaevaiv/gohf/internal/derivindex"
	"github.com/mirzaevaiv/gohf/internal/scf"
)

const h2Input = `# hydrogen molecule
Atoms
H 0.0 0.0 0.0
H 0.0 0.0 1.4
End
Basis
STO-3G
End
Units bohr
`

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"))
	return cmd.Execute()
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "h2.inp")
	require.NoError(t, os.WriteFile(path, []byte(h2Input), 0644))
	return path
}

func TestSCFCommand(t *testing.T) {
	inp := writeInput(t)
	require.NoError(t, execute(t, "scf", inp, "--plot", "--print", "--maxit", "50"))
	assert.Equal(t, 50, cfg.SCF.MaxIter)
	assert.True(t, cfg.Plot)

	require.NoError(t, execute(t, "scf", inp, "--diis", "--spectral-shift"))
	assert.True(t, cfg.SCF.DIIS)
	assert.True(t, cfg.SCF.SpectralShift)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	inp := writeInput(t)
	conf := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("scf:\n  maxit: 40\n  orthogonalizer: symmetric\n"), 0644))

	require.NoError(t, execute(t, "scf", inp, "--config", conf, "--maxit", "30"))
	assert.Equal(t, 30, cfg.SCF.MaxIter)
	assert.Equal(t, scf.Symmetric, cfg.SCF.Orthogonalizer)
}

func TestInvalidConfiguration(t *testing.T) {
	inp := writeInput(t)
	assert.Error(t, execute(t, "scf", inp, "--ortho", "qr"))
	assert.Error(t, execute(t, "scf", inp, "--log-format", "xml"))
	assert.Error(t, execute(t, "scf", filepath.Join(t.TempDir(), "missing.inp")))
}

func TestPopulateDerivGrad(t *testing.T) {
	inp := writeInput(t)
	store := filepath.Join(t.TempDir(), "h2.parquet")

	require.NoError(t, execute(t, "populate", inp, "--order", "1", "--out", store))
	assert.FileExists(t, store)
	assert.Equal(t, 1, cfg.PopulateOrder)

	require.NoError(t, execute(t, "deriv", store, "--kind", "overlap", "--vec", "0,0,1,0,0,0"))
	assert.Error(t, execute(t, "deriv", store, "--kind", "overlap", "--vec", "0,0,2,0,0,0"))
	assert.ErrorIs(t, execute(t, "deriv", store, "--kind", "overlap", "--vec", "0,0,0,0,0,0"), derivindex.ErrMalformed)

	require.NoError(t, execute(t, "grad", inp, "--store", store))
}

func TestHessianCommand(t *testing.T) {
	inp := writeInput(t)
	require.NoError(t, execute(t, "hessian", inp, "--ortho", "symmetric"))
	assert.Equal(t, scf.Symmetric, cfg.SCF.Orthogonalizer)
	assert.Error(t, execute(t, "hessian", inp, "--maxit", "1"))
}

func TestGradMissingStore(t *testing.T) {
	inp := writeInput(t)
	assert.Error(t, execute(t, "grad", inp, "--store", filepath.Join(t.TempDir(), "absent.arrow")))
}
