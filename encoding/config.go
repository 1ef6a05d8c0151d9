package encoding

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config selects and parameterizes an encoding.
//
//	format: text
//	text:
//	  token_separator: ","
//	  block_separator: "\n"
type Config struct {
	// Format is "text" or "binary"
	Format string          `yaml:"format"`
	Text   *TextEncoding   `yaml:"text,omitempty"`
	Binary *BinaryEncoding `yaml:"binary,omitempty"`
}

// LoadConfig reads a YAML Config from r. Unknown fields are rejected.
// Text encoding fields left out take their default values.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := &Config{Text: DefaultTextEncoding()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding encoding config")
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if _, err := cfg.Encoding(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encoding returns the configured encoding descriptor
func (c *Config) Encoding() (Encoding, error) {
	switch c.Format {
	case "text":
		if c.Text == nil {
			return DefaultTextEncoding(), nil
		}
		if err := c.Text.Validate(); err != nil {
			return nil, err
		}
		return c.Text, nil
	case "binary":
		if c.Binary == nil {
			return &BinaryEncoding{}, nil
		}
		return c.Binary, nil
	}
	return nil, errors.Errorf("unknown encoding format %q", c.Format)
}
