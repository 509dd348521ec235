package itembank

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// BankFile is the on-disk item bank format.
//
//	version: 1
//	items:
//	  - id: alg-001
//	    a: 1.2
//	    b: -0.4
//	    c: 0.2
//	    subjects: [algebra]
//	    status: published
//	    format: integer
//	    prompt: "Solve 2x + 3 = 11"
//	    answer: "4"
type BankFile struct {
	Version int    `yaml:"version"`
	Items   []Item `yaml:"items"`
}

// ReadBank decodes and validates a YAML item bank. Items without an explicit
// status are treated as published.
func ReadBank(r io.Reader) ([]Item, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var bf BankFile
	if err := dec.Decode(&bf); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode item bank: %w", err)
	}
	if bf.Version > 1 {
		return nil, fmt.Errorf("unsupported item bank version %d", bf.Version)
	}
	for i := range bf.Items {
		if bf.Items[i].Status == "" {
			bf.Items[i].Status = StatusPublished
		}
	}
	if err := ValidateBank(bf.Items); err != nil {
		return nil, err
	}
	return bf.Items, nil
}

// LoadBankFile reads a YAML item bank from path.
func LoadBankFile(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item bank: %w", err)
	}
	return ReadBank(bytes.NewReader(raw))
}

// WriteBank encodes items in the bank file format.
func WriteBank(w io.Writer, items []Item) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(BankFile{Version: 1, Items: items}); err != nil {
		return fmt.Errorf("encode item bank: %w", err)
	}
	return enc.Close()
}
