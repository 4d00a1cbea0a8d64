package facility

// Canonical field names produced by the normalizer.
const (
	FieldLongitude    = "longitude"
	FieldLatitude     = "latitude"
	FieldLabel        = "label"
	FieldMunicipality = "municipality"
	FieldKind         = "kind"
)

// AliasTable maps each canonical field to the source column names that may
// carry it, in priority order. The first column present in a table wins.
type AliasTable map[string][]string

// DefaultAliases covers the column conventions of the state datasets
// (CNES extracts, FUNAI settlements, school census, dam registry, landslide
// inventory).
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldLongitude: {"longitude", "x", "X", "Longitude", "LONGITUDE", "lon", "lng", "LON"},
		FieldLatitude:  {"latitude", "y", "Y", "Latitude", "LATITUDE", "lat", "LAT"},
		FieldLabel: {
			"nome", "NOME", "name", "Name",
			"NO_FANTASIA", "no_fantasia", "NO_ENTIDADE", "nome_aldeia", "NOME_BARRAGEM",
			"NOME_MUNICIPIO",
		},
		FieldMunicipality: {"NOME_MUNICIPIO", "municipio", "MUNICIPIO", "Municipio", "municipality", "NO_MUNICIPIO"},
		FieldKind:         {"ds_tipo_un", "DS_TIPO_UN", "tipo", "TIPO", "type"},
	}
}

// With returns a copy of the table where overrides are tried before the
// default names of each field.
func (a AliasTable) With(overrides map[string]string) AliasTable {
	out := make(AliasTable, len(a))
	for k, v := range a {
		out[k] = append([]string(nil), v...)
	}
	for field, column := range overrides {
		if column == "" {
			continue
		}
		out[field] = append([]string{column}, out[field]...)
	}
	return out
}

// Resolve returns the first column of t that matches field, or "".
func (a AliasTable) Resolve(t *Table, field string) string {
	for _, candidate := range a[field] {
		if t.Index(candidate) >= 0 {
			return candidate
		}
	}
	return ""
}
