package store

import (
	"database/sql"
	"fmt"

	"github.com/centsibleapp/centsible/internal/model"
)

type LessonStore struct {
	db *sql.DB
}

func NewLessonStore(db *sql.DB) *LessonStore {
	return &LessonStore{db: db}
}

func scanLesson(scanner interface{ Scan(...any) error }) (*model.Lesson, error) {
	var l model.Lesson
	var videoURL, videoSummary, startMessage sql.NullString
	var active, completed int

	err := scanner.Scan(
		&l.ID, &l.Title, &l.Description, &l.Content, &l.Category, &l.Duration,
		&l.Difficulty, &videoURL, &videoSummary, &startMessage, &l.Icon,
		&l.Color, &l.OrderIndex, &active, &completed, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if videoURL.Valid {
		l.VideoURL = &videoURL.String
	}
	if videoSummary.Valid {
		l.VideoSummary = &videoSummary.String
	}
	if startMessage.Valid {
		l.StartMessage = &startMessage.String
	}
	l.Active = active != 0
	l.Completed = completed != 0
	return &l, nil
}

const lessonCols = `id, title, description, content, category, duration, difficulty, video_url, video_summary, start_message, icon, color, order_index, active, completed, created_at, updated_at`

// NewLesson carries caller-supplied attributes for Create.
type NewLesson struct {
	Title        string
	Description  string
	Content      string
	Category     string
	Duration     string
	Difficulty   string
	VideoURL     *string
	VideoSummary *string
	StartMessage *string
	Icon         string
	Color        string
	OrderIndex   int
	Active       bool
	Completed    bool
}

// LessonPatch holds partial updates; nil fields keep their stored value.
type LessonPatch struct {
	Title        *string
	Description  *string
	Content      *string
	Category     *string
	Duration     *string
	Difficulty   *string
	VideoURL     *string
	VideoSummary *string
	StartMessage *string
	Icon         *string
	Color        *string
	OrderIndex   *int
	Active       *bool
	Completed    *bool
}

func (s *LessonStore) Create(nl NewLesson) (*model.Lesson, error) {
	result, err := s.db.Exec(
		`INSERT INTO lessons (title, description, content, category, duration, difficulty,
		 video_url, video_summary, start_message, icon, color, order_index, active, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nl.Title, nl.Description, nl.Content, nl.Category, nl.Duration, nl.Difficulty,
		nullString(nl.VideoURL), nullString(nl.VideoSummary), nullString(nl.StartMessage),
		nl.Icon, nl.Color, nl.OrderIndex, boolToInt(nl.Active), boolToInt(nl.Completed),
	)
	if err != nil {
		return nil, fmt.Errorf("insert lesson: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LessonStore) GetByID(id int64) (*model.Lesson, error) {
	row := s.db.QueryRow(`SELECT `+lessonCols+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return l, nil
}

// List returns lessons sorted by order_index, then creation time. When
// activeOnly is true, lessons hidden from end users are filtered out.
func (s *LessonStore) List(activeOnly bool) ([]model.Lesson, error) {
	query := `SELECT ` + lessonCols + ` FROM lessons`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY order_index ASC, created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

// Update applies the non-nil patch fields and re-stamps updated_at.
// Returns nil when no lesson matches the id.
func (s *LessonStore) Update(id int64, p LessonPatch) (*model.Lesson, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	merged := *existing
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Content != nil {
		merged.Content = *p.Content
	}
	if p.Category != nil {
		merged.Category = *p.Category
	}
	if p.Duration != nil {
		merged.Duration = *p.Duration
	}
	if p.Difficulty != nil {
		merged.Difficulty = *p.Difficulty
	}
	if p.VideoURL != nil {
		merged.VideoURL = p.VideoURL
	}
	if p.VideoSummary != nil {
		merged.VideoSummary = p.VideoSummary
	}
	if p.StartMessage != nil {
		merged.StartMessage = p.StartMessage
	}
	if p.Icon != nil {
		merged.Icon = *p.Icon
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	if p.OrderIndex != nil {
		merged.OrderIndex = *p.OrderIndex
	}
	if p.Active != nil {
		merged.Active = *p.Active
	}
	if p.Completed != nil {
		merged.Completed = *p.Completed
	}

	_, err = s.db.Exec(
		`UPDATE lessons SET title = ?, description = ?, content = ?, category = ?, duration = ?,
		 difficulty = ?, video_url = ?, video_summary = ?, start_message = ?, icon = ?, color = ?,
		 order_index = ?, active = ?, completed = ?, updated_at = datetime('now') WHERE id = ?`,
		merged.Title, merged.Description, merged.Content, merged.Category, merged.Duration,
		merged.Difficulty, nullString(merged.VideoURL), nullString(merged.VideoSummary),
		nullString(merged.StartMessage), merged.Icon, merged.Color, merged.OrderIndex,
		boolToInt(merged.Active), boolToInt(merged.Completed), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the lesson and reports whether a row was removed.
func (s *LessonStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete lesson: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
