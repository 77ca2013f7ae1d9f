// stencil.go --  This file is part of goHF project.
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
package derivindex

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// Step is the finite-difference step in bohr for a derivative order.
func Step(order int) float64 {
	return math.Pow(10, float64(order-5))
}

// Point is one displaced geometry of a stencil: Coeff times the function
// at g0 + h*Steps.
type Point struct {
	Coeff float64
	Steps []float64
}

// Key identifies the displacement, so points shared between vectors are
// evaluated once.
func (p Point) Key() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Displace returns g0 + h*Steps.
func (p Point) Displace(g0 []float64, h float64) []float64 {
	g := make([]float64, len(g0))
	copy(g, g0)
	floats.AddScaled(g, h, p.Steps)
	return g
}

// Stencil is the tensor product of n-th order central differences along
// every coordinate v differentiates:
//
//	d^n f/dx^n ~ sum_k (-1)^k C(n,k) f(x + (n/2-k)h) / h^n
func Stencil(v Vector, h float64) []Point {
	pts := []Point{{Coeff: 1, Steps: make([]float64, len(v))}}
	for i, n := range v {
		if n == 0 {
			continue
		}
		var next []Point
		for _, p := range pts {
			for k := 0; k <= n; k++ {
				sign := 1.0
				if k%2 == 1 {
					sign = -1
				}
				steps := make([]float64, len(p.Steps))
				copy(steps, p.Steps)
				steps[i] = float64(n)/2 - float64(k)
				c := sign * float64(combin.Binomial(n, k)) / math.Pow(h, float64(n))
				next = append(next, Point{Coeff: p.Coeff * c, Steps: steps})
			}
		}
		pts = next
	}
	return pts
}
