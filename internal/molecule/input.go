// input.go --  This file is part of goHF project.
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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBasis is used when the input has no Basis block.
const DefaultBasis = "sto-3g"

// Input is a parsed input file.
type Input struct {
	Molecule *Molecule
	// Nprocs is the requested thread count, 0 when not given.
	Nprocs int
	// Units of the Atoms block, "angstrom" or "bohr".
	Units string
}

// ReadFileLines returns the lines of fname.
func ReadFileLines(fname string) ([]string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var result []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	return result, scanner.Err()
}

// ReadFile parses the input file at fname.
func ReadFile(fname string, logger zerolog.Logger) (*Input, error) {
	data, err := ReadFileLines(fname)
	if err != nil {
		return nil, fmt.Errorf("molecule: read input: %w", err)
	}
	return Parse(data, logger)
}

// Parse reads an input made of blocks and keyword lines:
//
//	Atoms
//	H 0.0 0.0 0.0
//	H 0.0 0.0 0.74
//	End
//	Basis
//	STO-3G
//	End
//	Charge 0
//	Units angstrom
//	Nprocs 2
//
// Lines starting with '#' are ignored. Coordinates are in angstrom unless
// Units says bohr.
func Parse(data []string, logger zerolog.Logger) (*Input, error) {
	in := &Input{Units: "angstrom"}
	var atomStart, atomEnd = -1, -1
	basisName := ""
	charge := 0

	for i := 0; i < len(data); i++ {
		words := strings.Fields(data[i])
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}
		switch strings.ToLower(words[0]) {
		case "atoms":
			end, err := findBlockEnd(i, data, "Atoms")
			if err != nil {
				return nil, err
			}
			atomStart, atomEnd = i+1, end-1
			logger.Debug().Int("start", atomStart).Int("end", atomEnd).Msg("atoms block found")
			i = end
		case "basis":
			end, err := findBlockEnd(i, data, "Basis")
			if err != nil {
				return nil, err
			}
			if end > i+1 {
				basisName = strings.TrimSpace(data[i+1])
			}
			logger.Debug().Str("basis", basisName).Msg("basis block found")
			i = end
		case "charge":
			v, err := keywordInt(words)
			if err != nil {
				return nil, err
			}
			charge = v
		case "units":
			if len(words) < 2 {
				return nil, fmt.Errorf("molecule: units keyword needs a value")
			}
			u := strings.ToLower(words[1])
			if u != "angstrom" && u != "bohr" {
				return nil, fmt.Errorf("molecule: unknown units %q", words[1])
			}
			in.Units = u
		case "nprocs":
			v, err := keywordInt(words)
			if err != nil {
				return nil, err
			}
			in.Nprocs = v
		}
	}

	if atomStart < 0 {
		return nil, fmt.Errorf("%w: input has no Atoms block", ErrNoAtoms)
	}
	mol, err := addAtoms(data, atomStart, atomEnd, in.Units == "bohr")
	if err != nil {
		return nil, err
	}
	mol.Charge = charge
	in.Molecule = mol

	if basisName == "" {
		logger.Info().Str("basis", DefaultBasis).Msg("no basis given, using default")
		basisName = DefaultBasis
	}
	if err := mol.ApplyBasis(basisName); err != nil {
		return nil, err
	}
	return in, nil
}

func keywordInt(words []string) (int, error) {
	if len(words) < 2 {
		return 0, fmt.Errorf("molecule: %s keyword needs a value", words[0])
	}
	v, err := strconv.Atoi(words[1])
	if err != nil {
		return 0, fmt.Errorf("molecule: %s: %w", words[0], err)
	}
	return v, nil
}

func addAtoms(data []string, start, end int, bohr bool) (*Molecule, error) {
	mol := &Molecule{}
	scale := 1 / BohrRadius
	if bohr {
		scale = 1
	}
	for i := start; i <= end; i++ {
		words := strings.Fields(data[i])
		if len(words) == 0 {
			continue
		}
		z, err := AtomicNumber(words[0])
		if err != nil {
			return nil, err
		}
		atm := Atom{Z: z, Name: Symbols[z] + strconv.Itoa(len(mol.Atoms)+1)}
		if len(words) < 4 {
			return nil, fmt.Errorf("%w: atom %s: %q", ErrBadCoordinates, atm.Name, data[i])
		}
		for k := 0; k < 3; k++ {
			x, err := strconv.ParseFloat(words[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: atom %s: %v", ErrBadCoordinates, atm.Name, err)
			}
			atm.Coords[k] = x * scale
		}
		mol.Atoms = append(mol.Atoms, atm)
	}
	if len(mol.Atoms) == 0 {
		return nil, ErrNoAtoms
	}
	return mol, nil
}

func findBlockEnd(n int, data []string, bname string) (int, error) {
	for i := n + 1; i < len(data); i++ {
		words := strings.Fields(data[i])
		if len(words) > 0 && strings.ToLower(words[0]) == "end" {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnterminatedBlock, bname)
}
