package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/uav-deconfliction/model"
)

// Format selects a scenario file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported file encodings.
var ErrUnknownFormat = errors.New("unknown scenario format")

// File is the on-disk shape of a scenario.
type File struct {
	Name         string              `json:"name" yaml:"name"`
	Description  string              `json:"description,omitempty" yaml:"description,omitempty"`
	SafetyBuffer float64             `json:"safety_buffer,omitempty" yaml:"safety_buffer,omitempty"`
	Primary      model.MissionSpec   `json:"primary" yaml:"primary"`
	Others       []model.MissionSpec `json:"others" yaml:"others"`
}

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// LoadScenarioFile reads and validates the scenario at path.
func LoadScenarioFile(path string) (Scenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Scenario{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := LoadScenario(f, format)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// LoadScenario decodes a scenario document and builds its missions.
// Unknown fields are rejected.
func LoadScenario(r io.Reader, format Format) (Scenario, error) {
	var doc File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Scenario{}, fmt.Errorf("decode json scenario: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Scenario{}, fmt.Errorf("decode yaml scenario: %w", err)
		}
	default:
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return doc.Build()
}

// Build validates every mission in the document.
func (f File) Build() (Scenario, error) {
	primary, err := f.Primary.Build()
	if err != nil {
		return Scenario{}, fmt.Errorf("primary: %w", err)
	}
	others := make([]*model.Mission, 0, len(f.Others))
	for i, spec := range f.Others {
		m, err := spec.Build()
		if err != nil {
			return Scenario{}, fmt.Errorf("others[%d]: %w", i, err)
		}
		others = append(others, m)
	}
	return Scenario{
		Name:         f.Name,
		Title:        f.Name,
		Description:  f.Description,
		Primary:      primary,
		Others:       others,
		SafetyBuffer: f.SafetyBuffer,
	}, nil
}

// ToFile converts s to its serialisable form.
func (s Scenario) ToFile() File {
	f := File{
		Name:         s.Name,
		Description:  s.Description,
		SafetyBuffer: s.SafetyBuffer,
		Others:       make([]model.MissionSpec, 0, len(s.Others)),
	}
	if s.Primary != nil {
		f.Primary = s.Primary.Spec()
	}
	for _, m := range s.Others {
		f.Others = append(f.Others, m.Spec())
	}
	return f
}

// Encode writes s in the given format.
func Encode(w io.Writer, s Scenario, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s.ToFile())
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s.ToFile()); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
