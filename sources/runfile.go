// Package sources reads the optional YAML run file naming the report locations
// and the labels attached to published data.
package sources

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-lgtm/reports"
)

// RunFile is the decoded run file. Empty sections leave the defaults in place.
type RunFile struct {
	Reports    []reports.Source `yaml:"reports"`
	Annotation AnnotationConfig `yaml:"annotation"`
	Loki       LokiConfig       `yaml:"loki"`
}

type AnnotationConfig struct {
	Tags []string `yaml:"tags"`
}

type LokiConfig struct {
	Labels map[string]string `yaml:"labels"`
}

// Load reads and validates the run file at path
func Load(path string) (*RunFile, error) {
	log.Debug("Reading run file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}

	rf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("run file %s: %w", path, err)
	}
	return rf, nil
}

// Parse decodes a run file. Unknown keys are rejected.
func Parse(data []byte) (*RunFile, error) {
	var rf RunFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// Validate checks that report labels are present and unique and that every report has a path
func (rf *RunFile) Validate() error {
	seen := make(map[string]struct{}, len(rf.Reports))
	for i, src := range rf.Reports {
		if src.Label == "" {
			return fmt.Errorf("report %d: label is required", i)
		}
		if src.Path == "" {
			return fmt.Errorf("report %q: path is required", src.Label)
		}
		if _, dup := seen[src.Label]; dup {
			return fmt.Errorf("report %q: duplicate label", src.Label)
		}
		seen[src.Label] = struct{}{}
	}
	for k := range rf.Loki.Labels {
		if k == "" {
			return fmt.Errorf("loki: empty label name")
		}
	}
	return nil
}
