package model

import "time"

// CalculatorType discriminates between calculators backed by an external URL
// and calculators evaluated from an inline formula.
const (
	CalculatorTypeURL  = "url"
	CalculatorTypeCode = "code"
)

// CalculatorField describes one input of a "code" calculator.
type CalculatorField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
}

type Calculator struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	CalculatorType string            `json:"calculatorType"`
	Code           *string           `json:"code,omitempty"`
	Content        *string           `json:"content,omitempty"`
	URL            *string           `json:"url,omitempty"`
	Icon           string            `json:"icon"`
	Color          string            `json:"color"`
	Fields         []CalculatorField `json:"fields"`
	IsActive       bool              `json:"isActive"`
	IsPublished    bool              `json:"isPublished"`
	OrderIndex     int               `json:"orderIndex"`
	FileName       *string           `json:"fileName,omitempty"`
	ArtifactURL    *string           `json:"artifactUrl,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}
