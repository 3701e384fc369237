package qnet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shaleenx/q-net/ag"
	"github.com/shaleenx/q-net/optimizers"
)

// The checkpoint format. A checkpoint is a directory holding a YAML manifest, the parameter values
// and the optimizer state.
const (
	CheckpointSchema  string = "qnet/checkpoint"
	CheckpointVersion int    = 2

	manifestFile  string = "manifest.yaml"
	paramsFile    string = "params.parquet"
	optimizerFile string = "optimizer.parquet"
)

// Manifest describes a checkpoint.
type Manifest struct {
	Schema  string `yaml:"schema"`
	Version int    `yaml:"version"`
	RunID   string `yaml:"run_id"`
	Epoch   int    `yaml:"epoch"`

	Config    Config        `yaml:"config"`
	Optimizer OptimizerInfo `yaml:"optimizer"`

	// Params lists every saved parameter, in Model.Params order.
	Params []ParamInfo `yaml:"params"`
}

// OptimizerInfo identifies the optimizer whose state is stored in a checkpoint. Name is empty if
// no optimizer was saved.
type OptimizerInfo struct {
	Name  string `yaml:"name,omitempty"`
	Steps int    `yaml:"steps"`
}

// ParamInfo is the name and shape of a saved parameter.
type ParamInfo struct {
	Name string `yaml:"name"`
	Rows int    `yaml:"rows"`
	Cols int    `yaml:"cols"`
}

type paramRow struct {
	Name   string    `parquet:"name"`
	Rows   int64     `parquet:"rows"`
	Cols   int64     `parquet:"cols"`
	Values []float64 `parquet:"values"`
}

type slotRow struct {
	Param  string    `parquet:"param"`
	Slot   string    `parquet:"slot"`
	Values []float64 `parquet:"values"`
}

// NewRunID returns a fresh identifier for a training run.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// CheckpointDir returns the directory of the checkpoint for an epoch.
func CheckpointDir(root string, epoch int) string {
	return filepath.Join(root, fmt.Sprintf("epoch_%d", epoch))
}

// Save writes a checkpoint of the model, and of opt if it is not nil, to dirPath. The checkpoint is
// built in a temporary directory next to dirPath and renamed into place, so a failed Save never
// leaves a partial checkpoint. If something already exists at dirPath, Save fails unless
// overwrite is true.
func (m *Model) Save(dirPath string, overwrite bool, opt optimizers.Optimizer, runID string, epoch int) error {
	if _, err := os.Stat(dirPath); err == nil && !overwrite {
		return errors.Errorf("Can't save checkpoint: %q already exists", dirPath)
	}

	parent := filepath.Dir(dirPath)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, "Failed to create directory %q\n", parent)
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dirPath)+".tmp-")
	if err != nil {
		return errors.Wrapf(err, "Failed to create temporary directory in %q\n", parent)
	}
	defer os.RemoveAll(tmp)

	man := Manifest{
		Schema:  CheckpointSchema,
		Version: CheckpointVersion,
		RunID:   runID,
		Epoch:   epoch,
		Config:  m.cfg,
	}

	params := m.Params()
	rows := make([]paramRow, len(params))
	for i, p := range params {
		man.Params = append(man.Params, ParamInfo{Name: p.Name, Rows: p.Rows, Cols: p.Cols})
		rows[i] = paramRow{Name: p.Name, Rows: int64(p.Rows), Cols: int64(p.Cols), Values: p.W}
	}

	if err := parquet.WriteFile(filepath.Join(tmp, paramsFile), rows); err != nil {
		return errors.Wrapf(err, "Failed to write parameters\n")
	}

	if opt != nil {
		man.Optimizer = OptimizerInfo{Name: opt.TypeString(), Steps: opt.Steps()}

		var slots []slotRow
		for _, s := range opt.State() {
			slots = append(slots, slotRow{Param: s.Param, Slot: s.Name, Values: s.Values})
		}

		if len(slots) > 0 {
			if err := parquet.WriteFile(filepath.Join(tmp, optimizerFile), slots); err != nil {
				return errors.Wrapf(err, "Failed to write optimizer state\n")
			}
		}
	}

	data, err := yaml.Marshal(&man)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode manifest\n")
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write manifest\n")
	}

	if overwrite {
		if err := os.RemoveAll(dirPath); err != nil {
			return errors.Wrapf(err, "Failed to remove old checkpoint %q\n", dirPath)
		}
	}
	if err := os.Rename(tmp, dirPath); err != nil {
		return errors.Wrapf(err, "Failed to move checkpoint into %q\n", dirPath)
	}

	return nil
}

// ReadManifest reads and checks the manifest of the checkpoint at dirPath.
func ReadManifest(dirPath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dirPath, manifestFile))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read manifest in %q\n", dirPath)
	}

	man := new(Manifest)
	if err := yaml.Unmarshal(data, man); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode manifest in %q\n", dirPath)
	}

	if man.Schema != CheckpointSchema {
		return nil, errors.Wrapf(ErrNotCheckpoint, "Schema of %q is %q\n", dirPath, man.Schema)
	} else if man.Version != CheckpointVersion {
		return nil, errors.Errorf("Checkpoint %q has version %d; only version %d is supported", dirPath, man.Version, CheckpointVersion)
	}

	return man, nil
}

// Load rebuilds a Model, and its optimizer if one was saved, from the checkpoint at dirPath. Frozen
// embeddings are not part of a checkpoint, so they must be given again as pretrained.
//
// Load fails if the parameters in the checkpoint do not match, by name and shape, those of a model
// built from the saved configuration.
func Load(dirPath string, pretrained *ag.Mat) (*Model, optimizers.Optimizer, *Manifest, error) {
	man, err := ReadManifest(dirPath)
	if err != nil {
		return nil, nil, nil, err
	}

	m, err := New(man.Config, pretrained)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Failed to build model from checkpoint %q\n", dirPath)
	}

	rows, err := parquet.ReadFile[paramRow](filepath.Join(dirPath, paramsFile))
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Failed to read parameters in %q\n", dirPath)
	}

	byName := make(map[string]paramRow, len(rows))
	for _, r := range rows {
		byName[r.Name] = r
	}

	params := m.Params()
	if len(params) != len(rows) || len(params) != len(man.Params) {
		return nil, nil, nil, errors.Errorf("Checkpoint %q has %d parameters (manifest lists %d), model has %d",
			dirPath, len(rows), len(man.Params), len(params))
	}

	for i, p := range params {
		if man.Params[i].Name != p.Name {
			return nil, nil, nil, errors.Errorf("Parameter %d is %q in the manifest, expected %q", i, man.Params[i].Name, p.Name)
		}

		r, ok := byName[p.Name]
		if !ok {
			return nil, nil, nil, errors.Errorf("Parameter %q is missing from %q", p.Name, paramsFile)
		} else if int(r.Rows) != p.Rows || int(r.Cols) != p.Cols || len(r.Values) != p.Size() {
			return nil, nil, nil, errors.Errorf("Parameter %q is %dx%d (%d values), expected %dx%d",
				p.Name, r.Rows, r.Cols, len(r.Values), p.Rows, p.Cols)
		}

		copy(p.W, r.Values)
	}

	if man.Optimizer.Name == "" {
		return m, nil, man, nil
	}

	opt, err := optimizers.New(man.Optimizer.Name)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Can't restore optimizer of %q\n", dirPath)
	}

	var slots []optimizers.Slot
	path := filepath.Join(dirPath, optimizerFile)
	if _, err := os.Stat(path); err == nil {
		slotRows, err := parquet.ReadFile[slotRow](path)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "Failed to read optimizer state in %q\n", dirPath)
		}

		for _, r := range slotRows {
			slots = append(slots, optimizers.Slot{Param: r.Param, Name: r.Slot, Values: r.Values})
		}
	}

	if err := opt.SetState(man.Optimizer.Steps, slots); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Can't restore optimizer of %q\n", dirPath)
	}

	return m, opt, man, nil
}
