package trajectory

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Series is a float series whose missing values (JSON or YAML null) are NaN.
type Series []float64

// MarshalJSON writes NaN and infinities as null.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null entries as NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// UnmarshalYAML reads null entries as NaN; .nan is accepted as well.
func (s *Series) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errors.Errorf("line %d: expected a sequence", node.Line)
	}
	out := make(Series, len(node.Content))
	for i, n := range node.Content {
		if n.ShortTag() == "!!null" {
			out[i] = math.NaN()
			continue
		}
		if err := n.Decode(&out[i]); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

// record is the persisted form of one trajectory.
type record struct {
	ID         int               `json:"id" yaml:"id"`
	T          []int             `json:"t" yaml:"t"`
	X          Series            `json:"x" yaml:"x"`
	Y          Series            `json:"y" yaml:"y"`
	Properties map[string]Series `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type document struct {
	Trajectories []record `json:"trajectories" yaml:"trajectories"`
}

// Decode parses a persisted trajectory document. format is "json" or "yaml".
func Decode(data []byte, format string) (*Set, error) {
	var doc document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decode trajectories json")
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decode trajectories yaml")
		}
	default:
		return nil, errors.Errorf("unsupported trajectory format %q", format)
	}

	trajs := make([]*Trajectory, 0, len(doc.Trajectories))
	for _, r := range doc.Trajectories {
		props := make(map[Property][]float64, len(r.Properties))
		for name, series := range r.Properties {
			p, err := ParseProperty(name)
			if err != nil {
				return nil, errors.Wrapf(err, "trajectory %d", r.ID)
			}
			props[p] = series
		}
		tr, err := New(r.ID, r.T, r.X, r.Y, props)
		if err != nil {
			return nil, err
		}
		trajs = append(trajs, tr)
	}
	return NewSet(trajs), nil
}

// Encode serializes s in the given format.
func Encode(s *Set, format string) ([]byte, error) {
	doc := document{Trajectories: make([]record, 0, s.Len())}
	for _, tr := range s.Trajectories() {
		r := record{ID: tr.ID, T: tr.T, X: tr.X, Y: tr.Y}
		if rec := tr.Recorded(); len(rec) > 0 {
			r.Properties = make(map[string]Series, len(rec))
			for _, p := range rec {
				r.Properties[string(p)] = tr.props[p]
			}
		}
		doc.Trajectories = append(doc.Trajectories, r)
	}
	switch format {
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	case "yaml":
		return yaml.Marshal(doc)
	default:
		return nil, errors.Errorf("unsupported trajectory format %q", format)
	}
}

// FormatFromPath picks the trajectory format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", errors.Errorf("unsupported trajectory file %q: use .json, .yaml or .yml", path)
	}
}

// Load reads a trajectory file.
func Load(path string) (*Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, errors.Wrapf(err, "read trajectories %s", path)
	}
	return Decode(data, format)
}

// Save writes s to path atomically, in the format given by its extension.
func Save(path string, s *Set) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(s, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "create trajectory directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".traj-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write trajectories")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "rename trajectory file")
}
