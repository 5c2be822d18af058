package production

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/blockx"
)

// TopologyDescriptor is a serializable, typed view of a topology for
// external tooling. It names behaviors but cannot reconstruct them.
type TopologyDescriptor struct {
	Name        string                 `json:"name" yaml:"name"`
	Initial     string                 `json:"initial" yaml:"initial"`
	Final       string                 `json:"final,omitempty" yaml:"final,omitempty"`
	Vertices    []VertexDescriptor     `json:"vertices" yaml:"vertices"`
	Transitions []TransitionDescriptor `json:"transitions" yaml:"transitions"`
}

type VertexDescriptor struct {
	Name         string `json:"name" yaml:"name"`
	Kind         string `json:"kind" yaml:"kind"`
	Parent       string `json:"parent,omitempty" yaml:"parent,omitempty"`
	InitialChild string `json:"initialChild,omitempty" yaml:"initialChild,omitempty"`
	Enter        bool   `json:"enter,omitempty" yaml:"enter,omitempty"`
	Exit         bool   `json:"exit,omitempty" yaml:"exit,omitempty"`
}

type TransitionDescriptor struct {
	Name    string `json:"name" yaml:"name"`
	Source  string `json:"source" yaml:"source"`
	Target  string `json:"target" yaml:"target"`
	Kind    string `json:"kind" yaml:"kind"`
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Guard   string `json:"guard,omitempty" yaml:"guard,omitempty"`
	Effect  string `json:"effect,omitempty" yaml:"effect,omitempty"`
}

// Describe builds the descriptor of topo.
func Describe(topo *blockx.Topology) TopologyDescriptor {
	d := TopologyDescriptor{Name: topo.Name()}
	if v := topo.Initial(); v != nil {
		d.Initial = v.Name()
	}
	if v := topo.Final(); v != nil {
		d.Final = v.Name()
	}
	for _, v := range topo.Vertices() {
		vd := VertexDescriptor{
			Name:  v.Name(),
			Kind:  v.Kind().String(),
			Enter: v.HasEnterActivity(),
			Exit:  v.HasExitActivity(),
		}
		if p := v.Parent(); p != nil {
			vd.Parent = p.Name()
		}
		if c := v.InitialChild(); c != nil {
			vd.InitialChild = c.Name()
		}
		d.Vertices = append(d.Vertices, vd)
	}
	for _, t := range topo.Transitions() {
		td := TransitionDescriptor{
			Name:   t.Name(),
			Source: t.Source().Name(),
			Target: t.Target().Name(),
			Kind:   t.Kind().String(),
			Guard:  t.GuardName(),
			Effect: t.EffectName(),
		}
		if t.Trigger().Kind != blockx.KindNone {
			td.Trigger = t.Trigger().String()
		}
		d.Transitions = append(d.Transitions, td)
	}
	return d
}

// Encode returns the descriptor as a YAML document.
func (d TopologyDescriptor) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

// DescriptorWriter exports descriptors as files, one per topology, in YAML
// or JSON depending on the file extension it was created with.
type DescriptorWriter struct {
	dir string
	ext string
}

// NewDescriptorWriter creates a writer for dir, creating it if needed. ext
// is ".yaml" or ".json".
func NewDescriptorWriter(dir, ext string) (*DescriptorWriter, error) {
	if ext != ".yaml" && ext != ".json" {
		return nil, fmt.Errorf("unsupported descriptor format %q", ext)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &DescriptorWriter{dir: dir, ext: ext}, nil
}

// Write stores d as <dir>/<name><ext> and returns the path.
func (w *DescriptorWriter) Write(d TopologyDescriptor) (string, error) {
	var (
		data []byte
		err  error
	)
	if w.ext == ".json" {
		data, err = json.MarshalIndent(d, "", "  ")
	} else {
		data, err = yaml.Marshal(d)
	}
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", d.Name, err)
	}
	fn := filepath.Join(w.dir, d.Name+w.ext)
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", fn, err)
	}
	return fn, nil
}

// Read loads the descriptor called name.
func (w *DescriptorWriter) Read(name string) (TopologyDescriptor, error) {
	fn := filepath.Join(w.dir, name+w.ext)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TopologyDescriptor{}, fmt.Errorf("topology %q: %w", name, os.ErrNotExist)
		}
		return TopologyDescriptor{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var d TopologyDescriptor
	if w.ext == ".json" {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	if err != nil {
		return TopologyDescriptor{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	return d, nil
}
