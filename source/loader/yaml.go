package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

// parseYAMLDocuments decodes requirement documents from a YAML file.
// Multiple documents may share a file as a stream separated by --- lines.
func parseYAMLDocuments(data []byte) ([]requirement.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []requirement.Document
	for i := 0; ; i++ {
		var doc requirement.Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// factFile is the on-disk shape of an observed-behavior fact file.
type factFile struct {
	Facts []evidence.Fact `yaml:"facts"`
}

// parseYAMLFacts decodes observed-behavior facts from a YAML file.
func parseYAMLFacts(data []byte) ([]evidence.Fact, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var facts []evidence.Fact
	for i := 0; ; i++ {
		var file factFile
		err := dec.Decode(&file)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		facts = append(facts, file.Facts...)
	}
	return facts, nil
}
