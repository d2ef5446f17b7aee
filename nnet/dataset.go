package nnet

import (
	"encoding/gob"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Directory used for cached data files, from $MLP_DATA if set.
var DataDir = dataDir()

func dataDir() string {
	if dir := os.Getenv("MLP_DATA"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mlp")
	}
	return "data"
}

// Data holds a feature table with one row per sample and an integer class label per row.
type Data struct {
	Names  []string
	Target string
	Nfeat  int
	Inputs []float64
	Labels []int
}

// NewData creates a data set from rows of features and the corresponding labels.
func NewData(names []string, target string, rows [][]float64, labels []int) (Data, error) {
	if len(rows) != len(labels) {
		return Data{}, errors.Errorf("got %d rows but %d labels", len(rows), len(labels))
	}
	d := Data{Names: names, Target: target, Labels: append([]int{}, labels...)}
	for i, row := range rows {
		if i == 0 {
			d.Nfeat = len(row)
		} else if len(row) != d.Nfeat {
			return Data{}, errors.Errorf("row %d has %d features, expected %d", i, len(row), d.Nfeat)
		}
		d.Inputs = append(d.Inputs, row...)
	}
	return d, nil
}

func (d Data) Len() int { return len(d.Labels) }

func (d Data) Features() int { return d.Nfeat }

// Sorted list of distinct labels.
func (d Data) Classes() []int { return stats.Unique(d.Labels) }

// Shape of the feature matrix as rows, cols.
func (d Data) Shape() []int { return []int{d.Len(), d.Nfeat} }

func (d Data) Row(i int) []float64 { return d.Inputs[i*d.Nfeat : (i+1)*d.Nfeat] }

// Matrix returns the feature table as a matrix which shares storage with the Data.
func (d Data) Matrix() *mat.Dense {
	if d.Len() == 0 {
		return nil
	}
	return mat.NewDense(d.Len(), d.Nfeat, d.Inputs)
}

// Subset copies the rows with the given indexes.
func (d Data) Subset(index []int) Data {
	s := Data{Names: d.Names, Target: d.Target, Nfeat: d.Nfeat}
	s.Inputs = make([]float64, 0, len(index)*d.Nfeat)
	s.Labels = make([]int, len(index))
	for i, ix := range index {
		s.Inputs = append(s.Inputs, d.Row(ix)...)
		s.Labels[i] = d.Labels[ix]
	}
	return s
}

// Check the table and label sizes are consistent.
func (d Data) Validate() error {
	if d.Len() == 0 {
		return errors.New("data set is empty")
	}
	if d.Nfeat <= 0 || len(d.Inputs) != d.Len()*d.Nfeat {
		return errors.Errorf("data set has %d values for %d samples of %d features", len(d.Inputs), d.Len(), d.Nfeat)
	}
	return nil
}

// Dataset type encapsulates a set of training or test data split into mini batches.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	indexes   []int
	batch     int
	rng       *rand.Rand
}

// Create a new Dataset, a batch size of zero uses the whole set as a single batch.
func NewDataset(data Data, batchSize int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng}
	if batchSize <= 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	d.Batches = d.Samples / d.BatchSize
	if d.Samples%d.BatchSize != 0 {
		d.Batches++
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// Get next batch of data, the last batch of an epoch may be smaller than BatchSize.
func (d *Dataset) NextBatch() (x *mat.Dense, labels []int) {
	start := d.batch * d.BatchSize
	end := start + d.BatchSize
	if end > d.Samples {
		end = d.Samples
	}
	x = mat.NewDense(end-start, d.Nfeat, nil)
	labels = make([]int, end-start)
	for i, ix := range d.indexes[start:end] {
		x.SetRow(i, d.Row(ix))
		labels[i] = d.Labels[ix]
	}
	d.batch = (d.batch + 1) % d.Batches
	return x, labels
}

// Rewind to start of data
func (d *Dataset) Rewind() {
	d.batch = 0
}

// Shuffle the data set
func (d *Dataset) Shuffle() {
	d.rng.Shuffle(len(d.indexes), func(i, j int) {
		d.indexes[i], d.indexes[j] = d.indexes[j], d.indexes[i]
	})
}

// Split data into random train and test subsets. The test set gets ceil(testSize*n) samples.
func TrainTestSplit(d Data, testSize float64, seed int64) (train, test Data, err error) {
	if err = d.Validate(); err != nil {
		return
	}
	if testSize <= 0 || testSize >= 1 {
		return train, test, errors.Errorf("test size must be > 0 and < 1, got %g", testSize)
	}
	n := d.Len()
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return train, test, errors.Errorf("test size %g leaves no training samples from %d", testSize, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return d.Subset(perm[nTest:]), d.Subset(perm[:nTest]), nil
}

// Decode data from file in gob format under DataDir
func LoadDataFile(name string) (Data, error) {
	var d Data
	f, err := os.Open(filepath.Join(DataDir, name+".dat"))
	if err != nil {
		return d, err
	}
	defer f.Close()
	if err = gob.NewDecoder(f).Decode(&d); err != nil {
		return d, errors.Wrapf(err, "decoding %s.dat", name)
	}
	return d, d.Validate()
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d Data, name string) error {
	if err := os.MkdirAll(DataDir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(DataDir, name+".dat"))
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(f).Encode(&d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(DataDir, name))
	return err == nil
}
