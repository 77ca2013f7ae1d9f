// nuclear.go --  This file is part of goHF project.
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
package scf

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// NuclearRepulsion is sum_{i<j} Z_i Z_j / |r_i - r_j| for a flat geometry in
// bohr.
func NuclearRepulsion(geom, charges []float64) (float64, error) {
	if len(geom) != 3*len(charges) {
		return 0, fmt.Errorf("scf: %d coordinates for %d charges", len(geom), len(charges))
	}
	res := 0.0
	for i := range charges {
		for j := 0; j < i; j++ {
			res += charges[i] * charges[j] / pairDistance(geom, i, j)
		}
	}
	return res, nil
}

// NuclearRepulsionGradient is the derivative of NuclearRepulsion with
// respect to every coordinate.
func NuclearRepulsionGradient(geom, charges []float64) ([]float64, error) {
	if len(geom) != 3*len(charges) {
		return nil, fmt.Errorf("scf: %d coordinates for %d charges", len(geom), len(charges))
	}
	grad := make([]float64, len(geom))
	for i := range charges {
		for j := 0; j < i; j++ {
			r := pairDistance(geom, i, j)
			f := charges[i] * charges[j] / (r * r * r)
			for k := 0; k < 3; k++ {
				d := geom[3*i+k] - geom[3*j+k]
				grad[3*i+k] -= f * d
				grad[3*j+k] += f * d
			}
		}
	}
	return grad, nil
}

func pairDistance(geom []float64, i, j int) float64 {
	return floats.Distance(geom[3*i:3*i+3], geom[3*j:3*j+3], 2)
}
