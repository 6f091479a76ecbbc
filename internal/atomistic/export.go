package atomistic

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

// DeployModel is the stand-alone deployment artifact: enough to rebuild the
// model and the postprocess transforms that must run on its inputs, without
// any training state.
type DeployModel struct {
	ModelName      string                 `json:"model_name"`
	ModelArgs      map[string]interface{} `json:"model_args,omitempty"`
	OutputKey      string                 `json:"output_key"`
	Params         []float64              `json:"params"`
	Postprocessors []string               `json:"postprocessors,omitempty"`
}

// SaveTask persists the full re-loadable task snapshot.
func (t *Task) SaveTask(path string) error {
	return t.SaveCheckpoint(path, 0, "", 0)
}

// SaveModel writes the deployment artifact. When doPostprocessing is false
// the postprocessor list is left out of the export.
func (t *Task) SaveModel(path string, postprocessors []string, doPostprocessing bool) error {
	deploy := DeployModel{
		ModelName: t.Model.Name(),
		ModelArgs: t.ModelArgs,
		OutputKey: t.OutputKey,
		Params:    t.Model.Parameters(),
	}
	if doPostprocessing {
		deploy.Postprocessors = postprocessors
	}
	data, err := json.MarshalIndent(&deploy, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode deploy model")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create model dir")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write model %q", path)
}

// LoadDeployModel reads a deployment artifact and rebuilds the model.
func LoadDeployModel(path string) (Model, *DeployModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read model %q", path)
	}
	var deploy DeployModel
	if err := json.Unmarshal(data, &deploy); err != nil {
		return nil, nil, errors.Wrapf(err, "parse model %q", filepath.Base(path))
	}
	model, err := Models.Build(deploy.ModelName, deploy.ModelArgs)
	if err != nil {
		return nil, nil, err
	}
	if err := model.SetParameters(deploy.Params); err != nil {
		return nil, nil, errors.Wrapf(err, "restore parameters from %q", path)
	}
	return model, &deploy, nil
}
