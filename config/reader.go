package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"
)

// adjustedSuffix is appended to the stem of a configuration file when an adjusted copy is written.
const adjustedSuffix = "_adj"

// Load reads a YAML configuration file into a flat map. An empty file yields an empty map.
func Load(path string) (map[string]interface{}, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer utils.UncheckedErrorFunc(f.Close)

	raw := map[string]interface{}{}
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]interface{}{}, nil
		}
		return nil, &IOError{Path: path, Err: errors.Wrap(err, "cannot parse yaml")}
	}
	return raw, nil
}

// Write serializes the map as YAML to path, replacing any existing file.
func Write(path string, content map[string]interface{}) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(content); err != nil {
		return &IOError{Path: path, Err: errors.Wrap(err, "cannot encode yaml")}
	}
	if err := enc.Close(); err != nil {
		return &IOError{Path: path, Err: errors.Wrap(err, "cannot encode yaml")}
	}
	//nolint:gosec
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// AdjustedPath returns the path an adjusted configuration is written to: the same directory and
// extension with "_adj" appended to the stem, e.g. "cfg/aruco_marker.yaml" becomes
// "cfg/aruco_marker_adj.yaml".
func AdjustedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), stem+adjustedSuffix+ext)
}
