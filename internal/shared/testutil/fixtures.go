package testutil

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"clinicalqc/internal/config"
	"clinicalqc/pkg/contracts/domain"
)

// DiabetesCSV is the head of the Pima Indians diabetes file. Zeros in the
// biological columns stand for missing measurements.
const DiabetesCSV = `6,148,72,35,0,33.6,0.627,50,1
1,85,66,29,0,26.6,0.351,31,0
8,183,64,0,0,23.3,0.672,32,1
1,89,66,23,94,28.1,0.167,21,0
0,137,40,35,168,43.1,2.288,33,1
5,116,74,0,0,25.6,0.201,30,0
3,78,50,32,88,31,0.248,26,1
10,115,0,0,0,35.3,0.134,29,0
2,197,70,45,543,30.5,0.158,53,1
8,125,96,0,0,0,0.232,54,1
`

// HeartDiseaseCSV is the head of the Cleveland heart disease file with two '?' cells
const HeartDiseaseCSV = `63.0,1.0,1.0,145.0,233.0,1.0,2.0,150.0,0.0,2.3,3.0,0.0,6.0,0
67.0,1.0,4.0,160.0,286.0,0.0,2.0,108.0,1.0,1.5,2.0,3.0,3.0,2
67.0,1.0,4.0,120.0,229.0,0.0,2.0,129.0,1.0,2.6,2.0,2.0,7.0,1
37.0,1.0,3.0,130.0,250.0,0.0,0.0,187.0,0.0,3.5,3.0,0.0,3.0,0
41.0,0.0,2.0,130.0,204.0,0.0,2.0,172.0,0.0,1.4,1.0,?,3.0,0
56.0,1.0,2.0,120.0,236.0,0.0,0.0,178.0,0.0,0.8,1.0,0.0,3.0,0
62.0,0.0,4.0,140.0,268.0,0.0,2.0,160.0,0.0,3.6,3.0,2.0,?,3
57.0,0.0,4.0,120.0,354.0,0.0,0.0,163.0,1.0,0.6,1.0,0.0,3.0,0
63.0,1.0,4.0,130.0,254.0,0.0,2.0,147.0,0.0,1.4,2.0,1.0,7.0,2
53.0,1.0,4.0,140.0,203.0,1.0,2.0,155.0,1.0,3.1,3.0,0.0,7.0,1
`

// DiabetesSpec returns the built-in diabetes dataset spec
func DiabetesSpec() domain.DatasetSpec {
	spec, _ := config.DefaultRegistry().Get(domain.DatasetDiabetes)
	return spec
}

// HeartDiseaseSpec returns the built-in heart disease dataset spec
func HeartDiseaseSpec() domain.DatasetSpec {
	spec, _ := config.DefaultRegistry().Get(domain.DatasetHeartDisease)
	return spec
}

// SyntheticDiabetesRaw generates a raw diabetes-shaped table with correlated
// columns. Roughly zeroFraction of each biological cell is replaced by a zero.
// The same seed always yields the same table.
func SyntheticDiabetesRaw(rows int, zeroFraction float64, seed uint64) *domain.Table {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	t := domain.NewTable(DiabetesSpec().Names(), rows)

	for r := 0; r < rows; r++ {
		age := 21 + math.Floor(rng.Float64()*50)
		bmi := 22 + rng.NormFloat64()*5 + (age-40)*0.05
		glucose := 90 + bmi*1.2 + rng.NormFloat64()*20
		bp := 60 + age*0.3 + rng.NormFloat64()*8
		skin := 10 + bmi*0.6 + rng.NormFloat64()*4
		insulin := 40 + glucose*0.5 + rng.NormFloat64()*30
		outcome := 0.0
		if glucose > 140 {
			outcome = 1
		}

		row := []float64{
			math.Floor(rng.Float64() * 10),
			round1(glucose),
			round1(bp),
			round1(skin),
			round1(math.Max(insulin, 15)),
			round1(bmi),
			math.Round(rng.Float64()*2000) / 1000,
			age,
			outcome,
		}
		for c, v := range row {
			t.Columns[c].Values[r] = v
		}
	}

	spec := DiabetesSpec()
	for c, cs := range spec.Columns {
		if cs.Role != domain.RoleBiological {
			continue
		}
		for r := 0; r < rows; r++ {
			if rng.Float64() < zeroFraction {
				t.Columns[c].Values[r] = 0
			}
		}
	}
	return t
}

// TableCSV renders rows of a table as headerless CSV, writing missing cells as '?'
func TableCSV(t *domain.Table) string {
	var b strings.Builder
	for r := 0; r < t.Rows(); r++ {
		for c := range t.Columns {
			if c > 0 {
				b.WriteByte(',')
			}
			v := t.Columns[c].Values[r]
			if domain.IsMissing(v) {
				b.WriteByte('?')
				continue
			}
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Column builds a float column for hand-written tables
func Column(name string, values ...float64) domain.Column {
	return domain.Column{Name: name, Values: values}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
