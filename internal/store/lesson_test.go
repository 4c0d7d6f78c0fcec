package store

import (
	"testing"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestLessonCreateDefaults(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	l, err := ls.Create(NewLesson{Title: "Budgeting Basics", Active: true})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	if l.ID == 0 {
		t.Error("expected assigned id")
	}
	if !l.Active {
		t.Error("expected active lesson")
	}
	if l.Completed {
		t.Error("new lesson should not be completed")
	}
	if l.VideoURL != nil {
		t.Errorf("videoUrl = %v, want nil", l.VideoURL)
	}
}

func TestLessonListOrdering(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	if _, err := ls.Create(NewLesson{Title: "Later", OrderIndex: 5, Active: true}); err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	if _, err := ls.Create(NewLesson{Title: "First", OrderIndex: 1, Active: true}); err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	lessons, err := ls.List(false)
	if err != nil {
		t.Fatalf("list lessons: %v", err)
	}
	if len(lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(lessons))
	}
	if lessons[0].Title != "First" || lessons[1].Title != "Later" {
		t.Errorf("order = %q, %q; want order_index ascending", lessons[0].Title, lessons[1].Title)
	}
}

func TestLessonListActiveOnly(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	if _, err := ls.Create(NewLesson{Title: "Visible", Active: true}); err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	if _, err := ls.Create(NewLesson{Title: "Hidden", Active: false}); err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	lessons, err := ls.List(true)
	if err != nil {
		t.Fatalf("list lessons: %v", err)
	}
	if len(lessons) != 1 {
		t.Fatalf("expected 1 active lesson, got %d", len(lessons))
	}
	if lessons[0].Title != "Visible" {
		t.Errorf("title = %q, want Visible", lessons[0].Title)
	}

	all, err := ls.List(false)
	if err != nil {
		t.Fatalf("list all lessons: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 lessons without filter, got %d", len(all))
	}
}

func TestLessonUpdatePatch(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	created, err := ls.Create(NewLesson{
		Title:      "Budgeting Basics",
		Category:   "budgeting",
		Difficulty: "beginner",
		OrderIndex: 3,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	updated, err := ls.Update(created.ID, LessonPatch{
		Title:     strPtr("Budgeting 101"),
		Completed: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("update lesson: %v", err)
	}
	if updated.Title != "Budgeting 101" {
		t.Errorf("title = %q, want Budgeting 101", updated.Title)
	}
	if !updated.Completed {
		t.Error("expected completed flag set")
	}
	// Untouched fields keep their stored values.
	if updated.Category != "budgeting" || updated.Difficulty != "beginner" || updated.OrderIndex != 3 {
		t.Errorf("patch clobbered untouched fields: %+v", updated)
	}
}

func TestLessonUpdateNotFound(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	l, err := ls.Update(999, LessonPatch{Title: strPtr("X")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if l != nil {
		t.Error("expected nil for nonexistent lesson")
	}
}

func TestLessonDelete(t *testing.T) {
	ls := NewLessonStore(setupTestDB(t))

	created, err := ls.Create(NewLesson{Title: "Doomed"})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	deleted, err := ls.Delete(created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report a removed row")
	}

	deleted, err = ls.Delete(created.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("delete of a missing id should report false")
	}
}
