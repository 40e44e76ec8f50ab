package frame

import "gopkg.in/yaml.v2"

type yamlColumn struct {
	Name  string `yaml:"name"`
	DType int    `yaml:"dtype"`
	Index bool   `yaml:"index"`
}

// Dump serializes a Schema for storage as registry/collection metadata
// (the "schema_dump" field lookups reify a series against).
func (s Schema) Dump() ([]byte, error) {
	cols := make([]yamlColumn, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = yamlColumn{Name: c.Name, DType: int(c.DType), Index: c.Index}
	}
	return yaml.Marshal(cols)
}

// LoadSchema is Dump's inverse.
func LoadSchema(data []byte) (Schema, error) {
	var cols []yamlColumn
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return Schema{}, err
	}
	out := Schema{Columns: make([]ColumnSpec, len(cols))}
	for i, c := range cols {
		out.Columns[i] = ColumnSpec{Name: c.Name, DType: DType(c.DType), Index: c.Index}
	}
	return out, nil
}
