package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"xharvest/internal/model"
)

// LoadAccounts reads the tracked accounts file. A missing file yields an
// empty list, which switches the run to home timeline mode. Entries are not
// validated; absent fields stay empty.
func LoadAccounts(path string) ([]model.TrackedAccount, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []model.TrackedAccount{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read accounts %s", path)
	}
	var out []model.TrackedAccount
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrapf(err, "parse accounts %s", path)
	}
	if out == nil {
		out = []model.TrackedAccount{}
	}
	return out, nil
}
