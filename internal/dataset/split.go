package dataset

import (
	"encoding/json"
	"os"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

// Split holds the three disjoint index sets of a partition file. Indices
// reference molecule rows; nothing beyond load success is validated here.
type Split struct {
	Train []int `json:"train_idx"`
	Val   []int `json:"val_idx"`
	Test  []int `json:"test_idx"`
}

func LoadSplit(path string) (*Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read split file %q", path)
	}
	var split Split
	if err := json.Unmarshal(data, &split); err != nil {
		return nil, errors.Wrapf(err, "parse split file %q", path)
	}
	return &split, nil
}

func (s *Split) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode split")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write split file %q", path)
}
