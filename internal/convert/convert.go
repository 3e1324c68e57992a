// Package convert decodes raw ESRI JSON features into typed feature
// records with go-geom geometries and schema-driven attributes.
package convert

import (
	"go.uber.org/zap"

	"github.com/sells-group/geograb/pkg/arcgis"
)

// FieldType is the generic attribute type a server field maps to.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldReal
)

func (t FieldType) String() string {
	switch t {
	case FieldInteger:
		return "Integer"
	case FieldReal:
		return "Real"
	default:
		return "Text"
	}
}

// FieldDef is one declared attribute field of a converted feature set.
type FieldDef struct {
	Name   string
	Type   FieldType
	Length int
}

// FeatureSet is the converted output of one download: a named
// collection of typed records plus the target spatial reference.
type FeatureSet struct {
	Name         string
	SRID         int
	GeometryType string // the server-declared ESRI geometry type
	Fields       []FieldDef
	Records      []Record
	Skipped      int // features dropped for absent or unconvertible geometry
}

// Convert maps raw features to typed records. Features whose geometry
// is absent or fails conversion are dropped and counted, never
// escalated to an error; attribute values that cannot be coerced to
// their declared type are stored as their string form.
func Convert(schema *arcgis.LayerSchema, features []arcgis.RawFeature, sr *arcgis.SpatialReference) *FeatureSet {
	fields := buildFields(schema.Fields)

	set := &FeatureSet{
		Name:         schema.Name,
		SRID:         sr.ID(),
		GeometryType: schema.GeometryType,
		Fields:       fields,
		Records:      make([]Record, 0, len(features)),
	}

	for _, raw := range features {
		g, err := Geometry(schema.GeometryType, raw.Geometry, set.SRID)
		if err != nil || g == nil {
			set.Skipped++
			continue
		}

		set.Records = append(set.Records, Record{
			Geometry:   g,
			Attributes: convertAttributes(fields, raw.Attributes),
		})
	}

	if set.Skipped > 0 {
		zap.L().Warn("skipped features with null or invalid geometry",
			zap.String("component", "convert"),
			zap.String("layer", set.Name),
			zap.Int("skipped", set.Skipped),
		)
	}

	return set
}

// buildFields maps server field types onto {Integer, Real, Text}.
// Unrecognized types become Text.
func buildFields(fields []arcgis.Field) []FieldDef {
	defs := make([]FieldDef, 0, len(fields))
	for _, f := range fields {
		def := FieldDef{Name: f.Name, Type: fieldType(f.Type), Length: f.Length}
		if def.Type == FieldText && def.Length == 0 {
			def.Length = 254
		}
		defs = append(defs, def)
	}
	return defs
}

func fieldType(esriType string) FieldType {
	switch esriType {
	case "esriFieldTypeOID", "esriFieldTypeInteger", "esriFieldTypeSmallInteger":
		return FieldInteger
	case "esriFieldTypeDouble", "esriFieldTypeSingle":
		return FieldReal
	default:
		// Dates, GUIDs, globals and anything unknown carry as text.
		return FieldText
	}
}
