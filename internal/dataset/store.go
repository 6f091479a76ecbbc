package dataset

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
	"github.com/gulsumgudukbay/schnetpack-OOD/common/log"
)

// Molecule is one stored structure. Per-atom arrays are kept JSON-encoded in
// the row; Positions holds 3*NumAtoms coordinates.
type Molecule struct {
	ID        uint   `gorm:"primaryKey"`
	Idx       int    `gorm:"uniqueIndex;not null"`
	Formula   string `gorm:"type:varchar(255)"`
	NumAtoms  int    `gorm:"not null"`
	Numbers   string `gorm:"type:text;not null"`
	Positions string `gorm:"type:text;not null"`
	Energy    float64
}

// Atoms is the decoded form handed to the data module.
type Atoms struct {
	Idx       int
	Numbers   []int
	Positions []float64
	Energy    float64
}

// Store reads molecules from a SQLite database, with a short-lived row cache
// in front so repeated evaluation passes over the same split do not hit the
// database for every batch.
type Store struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger log.Logger
}

func Open(path string, logger log.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %q", path)
	}

	s := &Store{
		db:     db,
		cache:  cache.New(30*time.Minute, 60*time.Minute),
		logger: logger,
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&Molecule{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count molecules")
	}
	return count, nil
}

func (s *Store) Get(idx int) (*Atoms, error) {
	key := strconv.Itoa(idx)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Atoms), nil
	}

	var row Molecule
	if err := s.db.Where("idx = ?", idx).First(&row).Error; err != nil {
		return nil, errors.Wrapf(err, "load molecule %d", idx)
	}

	atoms, err := decodeRow(&row)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, atoms, cache.DefaultExpiration)
	return atoms, nil
}

// Add inserts molecules, encoding the per-atom arrays. Used by dataset
// preparation tooling and tests.
func (s *Store) Add(molecules []Atoms) error {
	rows := make([]Molecule, 0, len(molecules))
	for i := range molecules {
		m := &molecules[i]
		numbers, err := json.Marshal(m.Numbers)
		if err != nil {
			return errors.Wrap(err, "encode atomic numbers")
		}
		positions, err := json.Marshal(m.Positions)
		if err != nil {
			return errors.Wrap(err, "encode positions")
		}
		rows = append(rows, Molecule{
			Idx:       m.Idx,
			NumAtoms:  len(m.Numbers),
			Numbers:   string(numbers),
			Positions: string(positions),
			Energy:    m.Energy,
		})
	}
	return errors.Wrap(s.db.Create(&rows).Error, "insert molecules")
}

func decodeRow(row *Molecule) (*Atoms, error) {
	atoms := &Atoms{
		Idx:    row.Idx,
		Energy: row.Energy,
	}
	if err := json.Unmarshal([]byte(row.Numbers), &atoms.Numbers); err != nil {
		return nil, errors.Wrapf(err, "decode atomic numbers of molecule %d", row.Idx)
	}
	if err := json.Unmarshal([]byte(row.Positions), &atoms.Positions); err != nil {
		return nil, errors.Wrapf(err, "decode positions of molecule %d", row.Idx)
	}
	return atoms, nil
}
