package dataset

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

func (s *Store) migrate() error {
	m := gormigrate.New(s.db, &gormigrate.Options{UseTransaction: false}, []*gormigrate.Migration{
		{
			ID: "create-molecule",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Molecule{})
			},
		},
	})

	return errors.Wrap(m.Migrate(), "migrate dataset")
}
