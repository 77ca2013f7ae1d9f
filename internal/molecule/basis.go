// basis.go --  This file is part of goHF project.
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
package molecule

import (
	"fmt"
	"strings"
)

var sto3gS = []float64{0.1543289673, 0.5353281423, 0.4446345422}

// basisSets maps a lower-case basis name onto per-element shells.
var basisSets = map[string]map[int][]Shell{
	"sto-3g": {
		1: {{L: 0, Exponents: []float64{3.425250914, 0.6239137298, 0.1688554040}, Coeffs: sto3gS}},
		2: {{L: 0, Exponents: []float64{6.362421394, 1.158922999, 0.3136497915}, Coeffs: sto3gS}},
		3: {
			{L: 0, Exponents: []float64{16.11957475, 2.936200663, 0.7946504870}, Coeffs: sto3gS},
			{L: 0, Exponents: []float64{0.6362897469, 0.1478600533, 0.04808867840}, Coeffs: []float64{-0.09996722919, 0.3995128261, 0.7001154689}},
			{L: 1, Exponents: []float64{0.6362897469, 0.1478600533, 0.04808867840}, Coeffs: []float64{0.1559162750, 0.6076837186, 0.3919573931}},
		},
	},
	"6-31g": {
		1: {
			{L: 0, Exponents: []float64{18.73113696, 2.825394365, 0.6401216923}, Coeffs: []float64{0.03349460434, 0.2347269535, 0.8137573261}},
			{L: 0, Exponents: []float64{0.1612777588}, Coeffs: []float64{1.0}},
		},
		2: {
			{L: 0, Exponents: []float64{38.4216340, 5.7780300, 1.2417740}, Coeffs: []float64{0.0237660, 0.1546790, 0.4696300}},
			{L: 0, Exponents: []float64{0.2979640000}, Coeffs: []float64{1.0}},
		},
	},
}

// BasisNames lists the built-in basis sets.
func BasisNames() []string {
	names := make([]string, 0, len(basisSets))
	for name := range basisSets {
		names = append(names, name)
	}
	return names
}

// ApplyBasis attaches the named basis set to every atom.
func (m *Molecule) ApplyBasis(name string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	set, ok := basisSets[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBasis, name)
	}
	for i, a := range m.Atoms {
		shells, ok := set[a.Z]
		if !ok {
			return fmt.Errorf("%w: %s has no entry for %s", ErrUnknownBasis, key, Symbols[a.Z])
		}
		m.Atoms[i].Basis = shells
	}
	m.BasisName = key
	return nil
}
