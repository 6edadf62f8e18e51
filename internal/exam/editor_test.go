package exam

import (
	"testing"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/google/uuid"
)

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			QuestionText:  "question",
			QuestionType:  model.QuestionTypeShortAnswer,
			CorrectAnswer: "answer",
			Position:      i,
		}
	}
	return qs
}

func idsOf(qs []model.Question) map[uuid.UUID]bool {
	m := make(map[uuid.UUID]bool, len(qs))
	for _, q := range qs {
		m[q.ID] = true
	}
	return m
}

func TestEditor_AddQuestionDefaults(t *testing.T) {
	e := NewEditor()
	q := e.AddQuestion()

	if q.QuestionType != model.QuestionTypeShortAnswer {
		t.Errorf("default type = %s, want short-answer", q.QuestionType)
	}
	if q.QuestionText != "" || q.CorrectAnswer != "" || len(q.Options) != 0 {
		t.Error("added question should be blank")
	}
	if q.ID == uuid.Nil {
		t.Error("added question must get a fresh id")
	}
	if e.Len() != 1 {
		t.Errorf("len = %d, want 1", e.Len())
	}
	if !e.IsDirty() {
		t.Error("adding a question must dirty the editor")
	}
}

func TestEditor_DuplicateAppendsWithFreshID(t *testing.T) {
	origin := sampleQuestions(1)
	origin[0].QuestionType = model.QuestionTypeMultipleChoice
	origin[0].Options = []string{"a", "b", "c", "d"}
	e := EditorFromExam("T", "S", origin)

	dup, err := e.DuplicateQuestion(0)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}

	qs := e.Questions()
	if len(qs) != 2 {
		t.Fatalf("len = %d, want 2", len(qs))
	}
	if dup.ID == qs[0].ID {
		t.Error("duplicate must get a distinct id")
	}
	if dup.QuestionText != qs[0].QuestionText ||
		dup.QuestionType != qs[0].QuestionType ||
		dup.CorrectAnswer != qs[0].CorrectAnswer {
		t.Error("duplicate must copy all field values")
	}
	if len(dup.Options) != 4 {
		t.Fatalf("duplicate options = %v", dup.Options)
	}
	// Options must be an independent copy.
	qs[0].Options[0] = "mutated"
	if e.Questions()[1].Options[0] == "mutated" {
		t.Error("duplicate shares the source's options slice")
	}
	if qs[1].Position != 1 {
		t.Errorf("duplicate position = %d, want 1 (appended at end)", qs[1].Position)
	}
}

func TestEditor_DuplicateOutOfRange(t *testing.T) {
	e := EditorFromExam("T", "S", sampleQuestions(2))
	if _, err := e.DuplicateQuestion(2); err != ErrIndexOutOfRange {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := e.DuplicateQuestion(-1); err != ErrIndexOutOfRange {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestEditor_RemoveAllowsEmptyDraft(t *testing.T) {
	e := EditorFromExam("T", "S", sampleQuestions(1))
	if err := e.RemoveQuestion(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("len = %d, want 0", e.Len())
	}
	// The empty draft is reachable but not submittable.
	if errs := e.Validate(); errs.Fields()["questions"] != MsgQuestionsRequired {
		t.Errorf("empty draft should fail validation, got %v", errs)
	}
}

func TestEditor_ReorderIsAPurePermutation(t *testing.T) {
	tests := []struct {
		name      string
		from, to  int
		wantOrder []int // original indices in expected final order
	}{
		{"forward", 0, 2, []int{1, 2, 0, 3}},
		{"backward", 3, 1, []int{0, 3, 1, 2}},
		{"same index noop", 2, 2, []int{0, 1, 2, 3}},
		{"from out of range noop", 4, 0, []int{0, 1, 2, 3}},
		{"to out of range noop", 0, 4, []int{0, 1, 2, 3}},
		{"negative noop", -1, 2, []int{0, 1, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			origin := sampleQuestions(4)
			e := EditorFromExam("T", "S", origin)
			e.Reorder(tc.from, tc.to)

			got := e.Questions()
			if len(got) != len(origin) {
				t.Fatalf("reorder changed length: %d", len(got))
			}
			beforeIDs := idsOf(origin)
			for _, q := range got {
				if !beforeIDs[q.ID] {
					t.Fatal("reorder changed the id multiset")
				}
			}
			for i, srcIdx := range tc.wantOrder {
				if got[i].ID != origin[srcIdx].ID {
					t.Errorf("position %d: got question %d of original order", i, srcIdx)
				}
				if got[i].Position != i {
					t.Errorf("position field not renumbered at %d: %d", i, got[i].Position)
				}
			}
		})
	}
}

func TestEditor_ResetRestoresSnapshot(t *testing.T) {
	origin := sampleQuestions(2)
	e := EditorFromExam("Title", "Subject", origin)

	e.SetTitle("Changed")
	e.AddQuestion()
	e.RemoveQuestion(0)
	e.Reorder(0, 1)
	if !e.IsDirty() {
		t.Fatal("editor should be dirty after mutations")
	}

	e.Reset()

	if e.IsDirty() {
		t.Error("editor should be clean after reset")
	}
	if e.Title() != "Title" || e.Subject() != "Subject" {
		t.Errorf("scalars not restored: %q / %q", e.Title(), e.Subject())
	}
	got := e.Questions()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i := range got {
		if got[i].ID != origin[i].ID {
			t.Errorf("question %d not restored", i)
		}
	}
}

func TestEditor_CommitMovesSnapshot(t *testing.T) {
	e := EditorFromExam("Title", "Subject", sampleQuestions(1))
	e.SetSubject("Physics")
	e.AddQuestion()
	e.Commit()

	if e.IsDirty() {
		t.Error("editor should be clean after commit")
	}

	// Reset now restores the committed state, not the original load.
	e.RemoveQuestion(1)
	e.Reset()
	if e.Len() != 2 || e.Subject() != "Physics" {
		t.Errorf("reset after commit restored the wrong snapshot: len=%d subject=%q", e.Len(), e.Subject())
	}
}

func TestEditor_SetQuestionKeepsIdentity(t *testing.T) {
	origin := sampleQuestions(2)
	e := EditorFromExam("T", "S", origin)

	err := e.SetQuestion(1, model.Question{
		QuestionText:  "updated",
		QuestionType:  model.QuestionTypeTrueFalse,
		CorrectAnswer: "True",
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	got := e.Questions()[1]
	if got.ID != origin[1].ID {
		t.Error("SetQuestion must preserve the question id")
	}
	if got.Position != 1 {
		t.Errorf("position = %d, want 1", got.Position)
	}
	if got.QuestionText != "updated" {
		t.Errorf("text = %q", got.QuestionText)
	}
	if !e.IsDirty() {
		t.Error("editing a question must dirty the editor")
	}
}

func TestEditor_SetQuestionClonesOptions(t *testing.T) {
	e := EditorFromExam("T", "S", sampleQuestions(1))

	opts := []string{"A", "B", "C", "D"}
	err := e.SetQuestion(0, model.Question{
		QuestionText:  "pick one",
		QuestionType:  model.QuestionTypeMultipleChoice,
		Options:       opts,
		CorrectAnswer: "A",
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	opts[0] = "mutated"
	if got := e.Questions()[0].Options[0]; got != "A" {
		t.Errorf("option = %q, caller mutation must not reach the draft", got)
	}
}

func TestEditor_BlankStartsClean(t *testing.T) {
	e := NewEditor()
	if e.IsDirty() {
		t.Error("blank editor must start clean")
	}
	if e.Len() != 0 {
		t.Errorf("len = %d, want 0", e.Len())
	}
}
