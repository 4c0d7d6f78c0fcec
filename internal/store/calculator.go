package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/centsibleapp/centsible/internal/model"
)

type CalculatorStore struct {
	db *sql.DB
}

func NewCalculatorStore(db *sql.DB) *CalculatorStore {
	return &CalculatorStore{db: db}
}

func scanCalculator(scanner interface{ Scan(...any) error }) (*model.Calculator, error) {
	var c model.Calculator
	var code, content, url, fileName, artifactURL sql.NullString
	var fieldsJSON string
	var isActive, isPublished int

	err := scanner.Scan(
		&c.ID, &c.Name, &c.Description, &c.Category, &c.CalculatorType,
		&code, &content, &url, &c.Icon, &c.Color, &fieldsJSON,
		&isActive, &isPublished, &c.OrderIndex, &fileName, &artifactURL,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if code.Valid {
		c.Code = &code.String
	}
	if content.Valid {
		c.Content = &content.String
	}
	if url.Valid {
		c.URL = &url.String
	}
	if fileName.Valid {
		c.FileName = &fileName.String
	}
	if artifactURL.Valid {
		c.ArtifactURL = &artifactURL.String
	}
	c.IsActive = isActive != 0
	c.IsPublished = isPublished != 0

	// fields round-trips through a single JSON text column
	if err := json.Unmarshal([]byte(fieldsJSON), &c.Fields); err != nil {
		return nil, fmt.Errorf("decode calculator fields: %w", err)
	}
	if c.Fields == nil {
		c.Fields = []model.CalculatorField{}
	}
	return &c, nil
}

const calculatorCols = `id, name, description, category, calculator_type, code, content, url, icon, color, fields, is_active, is_published, order_index, file_name, artifact_url, created_at, updated_at`

// NewCalculator carries caller-supplied attributes for Create.
type NewCalculator struct {
	Name           string
	Description    string
	Category       string
	CalculatorType string
	Code           *string
	Content        *string
	URL            *string
	Icon           string
	Color          string
	Fields         []model.CalculatorField
	IsActive       bool
	IsPublished    bool
	OrderIndex     int
	FileName       *string
	ArtifactURL    *string
}

// CalculatorPatch holds partial updates; nil fields keep their stored value.
type CalculatorPatch struct {
	Name           *string
	Description    *string
	Category       *string
	CalculatorType *string
	Code           *string
	Content        *string
	URL            *string
	Icon           *string
	Color          *string
	Fields         []model.CalculatorField
	IsActive       *bool
	IsPublished    *bool
	OrderIndex     *int
	FileName       *string
	ArtifactURL    *string
}

func encodeFields(fields []model.CalculatorField) (string, error) {
	if fields == nil {
		fields = []model.CalculatorField{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode calculator fields: %w", err)
	}
	return string(b), nil
}

func (s *CalculatorStore) Create(nc NewCalculator) (*model.Calculator, error) {
	fieldsJSON, err := encodeFields(nc.Fields)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO calculators (name, description, category, calculator_type, code, content,
		 url, icon, color, fields, is_active, is_published, order_index, file_name, artifact_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nc.Name, nc.Description, nc.Category, nc.CalculatorType,
		nullString(nc.Code), nullString(nc.Content), nullString(nc.URL),
		nc.Icon, nc.Color, fieldsJSON, boolToInt(nc.IsActive), boolToInt(nc.IsPublished),
		nc.OrderIndex, nullString(nc.FileName), nullString(nc.ArtifactURL),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calculator: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CalculatorStore) GetByID(id int64) (*model.Calculator, error) {
	row := s.db.QueryRow(`SELECT `+calculatorCols+` FROM calculators WHERE id = ?`, id)
	c, err := scanCalculator(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calculator: %w", err)
	}
	return c, nil
}

// List returns calculators sorted by order_index, then creation time. When
// publicOnly is true, only active published calculators are returned.
func (s *CalculatorStore) List(publicOnly bool) ([]model.Calculator, error) {
	query := `SELECT ` + calculatorCols + ` FROM calculators`
	if publicOnly {
		query += ` WHERE is_active = 1 AND is_published = 1`
	}
	query += ` ORDER BY order_index ASC, created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list calculators: %w", err)
	}
	defer rows.Close()

	var calculators []model.Calculator
	for rows.Next() {
		c, err := scanCalculator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculator: %w", err)
		}
		calculators = append(calculators, *c)
	}
	return calculators, rows.Err()
}

// Update applies the non-nil patch fields and re-stamps updated_at.
// A nil Fields slice keeps the stored field list. Returns nil when no
// calculator matches the id.
func (s *CalculatorStore) Update(id int64, p CalculatorPatch) (*model.Calculator, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	merged := *existing
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Category != nil {
		merged.Category = *p.Category
	}
	if p.CalculatorType != nil {
		merged.CalculatorType = *p.CalculatorType
	}
	if p.Code != nil {
		merged.Code = p.Code
	}
	if p.Content != nil {
		merged.Content = p.Content
	}
	if p.URL != nil {
		merged.URL = p.URL
	}
	if p.Icon != nil {
		merged.Icon = *p.Icon
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	if p.Fields != nil {
		merged.Fields = p.Fields
	}
	if p.IsActive != nil {
		merged.IsActive = *p.IsActive
	}
	if p.IsPublished != nil {
		merged.IsPublished = *p.IsPublished
	}
	if p.OrderIndex != nil {
		merged.OrderIndex = *p.OrderIndex
	}
	if p.FileName != nil {
		merged.FileName = p.FileName
	}
	if p.ArtifactURL != nil {
		merged.ArtifactURL = p.ArtifactURL
	}

	fieldsJSON, err := encodeFields(merged.Fields)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE calculators SET name = ?, description = ?, category = ?, calculator_type = ?,
		 code = ?, content = ?, url = ?, icon = ?, color = ?, fields = ?, is_active = ?,
		 is_published = ?, order_index = ?, file_name = ?, artifact_url = ?,
		 updated_at = datetime('now') WHERE id = ?`,
		merged.Name, merged.Description, merged.Category, merged.CalculatorType,
		nullString(merged.Code), nullString(merged.Content), nullString(merged.URL),
		merged.Icon, merged.Color, fieldsJSON, boolToInt(merged.IsActive),
		boolToInt(merged.IsPublished), merged.OrderIndex,
		nullString(merged.FileName), nullString(merged.ArtifactURL), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calculator: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the calculator and reports whether a row was removed.
func (s *CalculatorStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM calculators WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete calculator: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
