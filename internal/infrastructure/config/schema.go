package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/osidra/reclaim/internal/domain/entities"
)

// Schema is the declarative entity-type graph loaded at startup. It is
// the only place entity types, identity fields and relation edges are
// defined; the registry validates it once and it never changes at
// runtime.
type Schema struct {
	Types []entities.EntityType `yaml:"types"`
}

// LoadSchema loads the graph schema from the .reclaim directory in the
// given path.
func LoadSchema(basePath string) (*Schema, error) {
	schemaFile := filepath.Join(basePath, DefaultConfigDir, DefaultSchemaFile)

	data, err := os.ReadFile(schemaFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("schema file not found: %s (run 'reclaim init' first)", schemaFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}
	if len(schema.Types) == 0 {
		return nil, fmt.Errorf("schema file %s defines no entity types", schemaFile)
	}
	return &schema, nil
}

// SaveSchema writes the schema to the .reclaim directory in the given
// path. Used by 'reclaim init' to lay down a starter schema.
func SaveSchema(basePath string, schema *Schema) error {
	dir := filepath.Join(basePath, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	schemaFile := filepath.Join(dir, DefaultSchemaFile)
	if err := os.WriteFile(schemaFile, data, 0o644); err != nil {
		return fmt.Errorf("writing schema file: %w", err)
	}
	return nil
}

// StarterSchema returns a small example schema demonstrating cascade,
// restrict and set-null edges, including a self-referencing hierarchy.
func StarterSchema() *Schema {
	return &Schema{
		Types: []entities.EntityType{
			{
				Name:          "department",
				IdentityField: "id",
				Attributes: []entities.AttributeDef{
					{Name: "id", Type: "string"},
					{Name: "name", Type: "string"},
				},
			},
			{
				Name:          "employee",
				IdentityField: "id",
				Attributes: []entities.AttributeDef{
					{Name: "id", Type: "string"},
					{Name: "name", Type: "string"},
					{Name: "department_id", Type: "string"},
					{Name: "manager_id", Type: "string"},
				},
				Relations: []entities.RelationEdge{
					{
						SourceType:  "employee",
						TargetType:  "department",
						Field:       "department_id",
						Cardinality: entities.CardinalityMany,
						OnDelete:    entities.CascadeDelete,
					},
					{
						SourceType:  "employee",
						TargetType:  "employee",
						Field:       "manager_id",
						Cardinality: entities.CardinalityMany,
						OnDelete:    entities.CascadeDelete,
					},
				},
			},
			{
				Name:          "grant",
				IdentityField: "id",
				Attributes: []entities.AttributeDef{
					{Name: "id", Type: "string"},
					{Name: "employee_id", Type: "string"},
					{Name: "amount", Type: "number"},
				},
				Relations: []entities.RelationEdge{
					{
						SourceType:  "grant",
						TargetType:  "employee",
						Field:       "employee_id",
						Cardinality: entities.CardinalityMany,
						OnDelete:    entities.CascadeRestrict,
					},
				},
			},
			{
				Name:          "notice",
				IdentityField: "id",
				Attributes: []entities.AttributeDef{
					{Name: "id", Type: "string"},
					{Name: "text", Type: "string"},
					{Name: "employee_id", Type: "string"},
				},
				Relations: []entities.RelationEdge{
					{
						SourceType:  "notice",
						TargetType:  "employee",
						Field:       "employee_id",
						Cardinality: entities.CardinalityMany,
						OnDelete:    entities.CascadeSetNull,
					},
				},
			},
		},
	}
}
