package models

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gen"
	"gorm.io/gorm"
)

/*
Schema maintenance.

Migrate creates the four tables, the trigram extension and the fuzzy tech search
function. ColumnReport lists database columns that no model field maps to, which is
how drift from manual dashboard edits on the hosted database is spotted:

=== COLUMN MISMATCH REPORT ===
--- Table: projects ---
Found 1 columns not accounted for in model:
  - legacy_tech
*/

// AllModels returns every persisted model, parents first.
func AllModels() []any {
	return []any{&Profile{}, &Project{}, &ProjectCollaborator{}, &ReviewEvent{}}
}

// TechSearchFunction is the SQL function used for fuzzy tech tag matching.
const TechSearchFunction = "search_projects_by_tech"

const techSearchFunctionSQL = `
CREATE OR REPLACE FUNCTION search_projects_by_tech(pattern text)
RETURNS SETOF projects
LANGUAGE sql STABLE AS $$
	SELECT p.*
	FROM projects p
	WHERE p.status = 'approved'
	  AND EXISTS (
		SELECT 1 FROM jsonb_array_elements_text(
			CASE jsonb_typeof(p.tech_stack) WHEN 'array' THEN p.tech_stack ELSE '[]'::jsonb END
		) AS tag
		WHERE tag ILIKE '%' || pattern || '%' OR similarity(tag, pattern) > 0.4
	  )
	ORDER BY p.created_at DESC
$$;`

// Migrate brings the schema up to date. Missing pg_trgm is tolerated: fuzzy tech
// search then reports itself unavailable and callers fall back to exact matching.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := normalizeLegacyTechStacks(db); err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_projects_tech_stack ON projects USING gin (tech_stack)`).Error; err != nil {
		return fmt.Errorf("create tech stack index: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pg_trgm"`).Error; err != nil {
		log.Warn().Err(err).Msg("pg_trgm unavailable, fuzzy tech search disabled")
		return nil
	}
	if err := db.Exec(techSearchFunctionSQL).Error; err != nil {
		return fmt.Errorf("create %s: %w", TechSearchFunction, err)
	}
	return nil
}

// legacyTechStackSQL selects rows whose tech_stack was stored as a scalar, such as
// the comma separated strings written by older clients.
const legacyTechStackSQL = `SELECT id::text AS id, tech_stack::text AS raw FROM projects WHERE jsonb_typeof(tech_stack) <> 'array'`

// normalizeLegacyTechStacks rewrites scalar tech_stack values as JSON arrays.
func normalizeLegacyTechStacks(db *gorm.DB) error {
	var rows []struct {
		ID  string
		Raw string
	}
	if err := db.Raw(legacyTechStackSQL).Scan(&rows).Error; err != nil {
		return fmt.Errorf("find legacy tech stacks: %w", err)
	}
	for _, row := range rows {
		stack, err := ParseTechStack(row.Raw).Value()
		if err != nil {
			return fmt.Errorf("encode tech stack of %s: %w", row.ID, err)
		}
		if err := db.Exec(`UPDATE projects SET tech_stack = ?::jsonb WHERE id = ?::uuid`, stack, row.ID).Error; err != nil {
			return fmt.Errorf("normalize tech stack of %s: %w", row.ID, err)
		}
	}
	if len(rows) > 0 {
		log.Info().Int("rows", len(rows)).Msg("Normalized legacy tech stacks")
	}
	return nil
}

// GenerateQueries writes gorm/gen query helpers for every model to outPath.
func GenerateQueries(db *gorm.DB, outPath string) {
	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(AllModels()...)
	g.Execute()
}

// ColumnReport returns, per table, the database columns no model field maps to.
func ColumnReport(db *gorm.DB) (map[string][]string, error) {
	report := make(map[string][]string)
	for _, model := range AllModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		var columns []string
		err := db.Raw(`
			SELECT column_name
			FROM information_schema.columns
			WHERE table_name = ? AND table_schema = CURRENT_SCHEMA()
			ORDER BY ordinal_position`, table).Scan(&columns).Error
		if err != nil {
			return nil, fmt.Errorf("query columns for %s: %w", table, err)
		}
		report[table] = missingColumns(columns, modelColumns(model))
	}
	return report, nil
}

// PrintColumnReport renders a report in the format shown at the top of this file.
func PrintColumnReport(report map[string][]string) {
	tables := make([]string, 0, len(report))
	for table := range report {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	total := 0
	fmt.Println("=== COLUMN MISMATCH REPORT ===")
	for _, table := range tables {
		fmt.Printf("--- Table: %s ---\n", table)
		if len(report[table]) == 0 {
			fmt.Println("All columns are accounted for in the model.")
			continue
		}
		fmt.Printf("Found %d columns not accounted for in model:\n", len(report[table]))
		for _, col := range report[table] {
			fmt.Printf("  - %s\n", col)
		}
		total += len(report[table])
	}
	fmt.Printf("\n=== SUMMARY ===\nTotal mismatched columns across all tables: %d\n", total)
}

// modelColumns reads the `db` tags of a model struct.
func modelColumns(model any) []string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var fields []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	return fields
}

func missingColumns(dbColumns, modelFields []string) []string {
	known := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		known[field] = true
	}

	var missing []string
	for _, col := range dbColumns {
		if !known[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
