package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Accuracy is the fraction of predictions which match the true labels.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if err := checkLabels(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// Confusion matrix with Counts[i][j] the number of samples with true label Labels[i]
// which were predicted as Labels[j].
type Confusion struct {
	Labels []int
	Counts [][]int
}

// ConfusionMatrix tabulates predicted against actual labels. If labels is nil the sorted union
// of the labels in yTrue and yPred is used, otherwise samples with labels not in the list are
// ignored.
func ConfusionMatrix(yTrue, yPred, labels []int) (*Confusion, error) {
	if err := checkLabels(yTrue, yPred); err != nil {
		return nil, err
	}
	if labels == nil {
		labels = Unique(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, errors.New("no labels for confusion matrix")
	}
	index := make(map[int]int)
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, errors.Errorf("duplicate label %d", l)
		}
		index[l] = i
	}
	c := &Confusion{Labels: append([]int{}, labels...), Counts: make([][]int, len(labels))}
	for i := range c.Counts {
		c.Counts[i] = make([]int, len(labels))
	}
	for k := range yTrue {
		i, ok1 := index[yTrue[k]]
		j, ok2 := index[yPred[k]]
		if ok1 && ok2 {
			c.Counts[i][j]++
		}
	}
	return c, nil
}

// Total number of samples in the matrix.
func (c *Confusion) Total() int {
	total := 0
	for _, row := range c.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Number of samples on the diagonal.
func (c *Confusion) Correct() int {
	n := 0
	for i := range c.Counts {
		n += c.Counts[i][i]
	}
	return n
}

// String prints the counts as a bracketed integer matrix.
func (c *Confusion) String() string {
	width := 1
	for _, row := range c.Counts {
		for _, v := range row {
			width = max(width, len(strconv.Itoa(v)))
		}
	}
	var s strings.Builder
	for i, row := range c.Counts {
		if i == 0 {
			s.WriteString("[[")
		} else {
			s.WriteString(" [")
		}
		for j, v := range row {
			if j > 0 {
				s.WriteByte(' ')
			}
			fmt.Fprintf(&s, "%*d", width, v)
		}
		if i < len(c.Counts)-1 {
			s.WriteString("]\n")
		} else {
			s.WriteString("]]")
		}
	}
	return s.String()
}

// Per class metrics.
type ClassScore struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report holds the precision, recall and F1 score for each class derived from the confusion matrix.
type Report struct {
	Classes  []ClassScore
	Accuracy float64
	Macro    ClassScore
	Weighted ClassScore
}

// Report computes the classification metrics, classes with no predictions get zero precision.
func (c *Confusion) Report() Report {
	var r Report
	n := len(c.Labels)
	total := c.Total()
	for i := 0; i < n; i++ {
		tp := c.Counts[i][i]
		support, predicted := 0, 0
		for j := 0; j < n; j++ {
			support += c.Counts[i][j]
			predicted += c.Counts[j][i]
		}
		s := ClassScore{Label: c.Labels[i], Support: support}
		if predicted > 0 {
			s.Precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			s.Recall = float64(tp) / float64(support)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes = append(r.Classes, s)
		r.Macro.Precision += s.Precision / float64(n)
		r.Macro.Recall += s.Recall / float64(n)
		r.Macro.F1 += s.F1 / float64(n)
		if total > 0 {
			w := float64(support) / float64(total)
			r.Weighted.Precision += s.Precision * w
			r.Weighted.Recall += s.Recall * w
			r.Weighted.F1 += s.F1 * w
		}
	}
	r.Macro.Support, r.Weighted.Support = total, total
	if total > 0 {
		r.Accuracy = float64(c.Correct()) / float64(total)
	}
	return r
}

func (r Report) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "%12s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&s, "%12d %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&s, "\n%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.Macro.Support)
	fmt.Fprintf(&s, "%12s %9.2f %9.2f %9.2f %9d\n", "macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Macro.Support)
	fmt.Fprintf(&s, "%12s %9.2f %9.2f %9.2f %9d\n", "weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Weighted.Support)
	return s.String()
}

func checkLabels(yTrue, yPred []int) error {
	if len(yTrue) != len(yPred) {
		return errors.Errorf("got %d true labels and %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return errors.New("no labels")
	}
	return nil
}

// Unique returns the sorted list of distinct values in the label lists.
func Unique(lists ...[]int) []int {
	seen := make(map[int]bool)
	var res []int
	for _, list := range lists {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				res = append(res, v)
			}
		}
	}
	sort.Ints(res)
	return res
}
