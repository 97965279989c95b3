package output

import (
	"encoding/json"
	"io"

	"github.com/spiffcs/repopin/internal/model"
	"gopkg.in/yaml.v3"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format outputs repositories as a JSON array. A nil list encodes as [].
func (f *JSONFormatter) Format(repos []model.Repository, w io.Writer) error {
	if repos == nil {
		repos = []model.Repository{}
	}
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(repos)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct{}

// Format outputs repositories as a YAML sequence.
func (f *YAMLFormatter) Format(repos []model.Repository, w io.Writer) error {
	if repos == nil {
		repos = []model.Repository{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(repos); err != nil {
		return err
	}
	return encoder.Close()
}
