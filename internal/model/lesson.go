package model

import "time"

type Lesson struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Duration     string    `json:"duration"`
	Difficulty   string    `json:"difficulty"`
	VideoURL     *string   `json:"videoUrl,omitempty"`
	VideoSummary *string   `json:"videoSummary,omitempty"`
	StartMessage *string   `json:"startMessage,omitempty"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	OrderIndex   int       `json:"orderIndex"`
	Active       bool      `json:"active"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
