package trainer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/util"
	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// MetricsLogger receives metric rows per step.
type MetricsLogger interface {
	LogMetrics(step int, metrics map[string]float64) error
	Close() error
}

var MetricsLoggers = registry.New[MetricsLogger]("metrics logger")

// CSVLogger writes metric rows to metrics.csv under its directory. The
// column set is the union of all keys logged so far: fit rows and the
// test rows of the evaluation sweep carry disjoint keys, so the file is
// rewritten as rows arrive and a row without a column leaves the cell
// empty.
type CSVLogger struct {
	Dir string

	header []string
	steps  []int
	rows   []map[string]float64
}

func (l *CSVLogger) LogMetrics(step int, metrics map[string]float64) error {
	row := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		row[k] = v
		if !l.hasColumn(k) {
			l.header = append(l.header, k)
		}
	}
	sort.Strings(l.header)
	l.steps = append(l.steps, step)
	l.rows = append(l.rows, row)
	return l.flush()
}

func (l *CSVLogger) hasColumn(name string) bool {
	for _, h := range l.header {
		if h == name {
			return true
		}
	}
	return false
}

func (l *CSVLogger) flush() error {
	if err := util.EnsureDir(l.Dir); err != nil {
		return errors.Wrap(err, "create metrics dir")
	}
	f, err := os.Create(filepath.Join(l.Dir, "metrics.csv"))
	if err != nil {
		return errors.Wrap(err, "open metrics.csv")
	}
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"step"}, l.header...)); err != nil {
		f.Close()
		return errors.Wrap(err, "write metrics header")
	}
	for i, row := range l.rows {
		record := make([]string, 0, len(l.header)+1)
		record = append(record, strconv.Itoa(l.steps[i]))
		for _, k := range l.header {
			v, ok := row[k]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return errors.Wrap(err, "write metrics row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush metrics")
	}
	return errors.Wrap(f.Close(), "close metrics.csv")
}

func (l *CSVLogger) Close() error { return nil }

// ConsoleLogger mirrors metric rows into the run log.
type ConsoleLogger struct {
	Logger log.Logger
}

func (l *ConsoleLogger) LogMetrics(step int, metrics map[string]float64) error {
	fields := logrus.Fields{"step": step}
	for k, v := range metrics {
		fields[k] = v
	}
	l.Logger.WithFields(fields).Info("metrics")
	return nil
}

func (l *ConsoleLogger) Close() error { return nil }

func init() {
	MetricsLoggers.Register("csv", func(args registry.Args) (MetricsLogger, error) {
		return &CSVLogger{Dir: args.String("dir", ".")}, nil
	})
}
