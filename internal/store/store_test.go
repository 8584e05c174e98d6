package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "projects.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestOpenSeedsCategories(t *testing.T) {
	s := openTestStore(t)
	cats, err := s.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 4 {
		t.Fatalf("got %d categories, want 4", len(cats))
	}
	if _, err := s.AddCategory("Water Projects", ""); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate category: got %v", err)
	}
}

func TestUpsertProjectKeepsIDAndProgress(t *testing.T) {
	s := openTestStore(t)
	p := model.Project{
		Name:        "Pump Station",
		Code:        "PS-1",
		TotalBudget: 1_000_000,
		StartDate:   mustDate(t, "2024-01-01"),
		EndDate:     mustDate(t, "2024-12-31"),
	}
	id, err := s.UpsertProject(p)
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if _, err := s.AddProgress(model.ProgressEntry{
		Project: "Pump Station", EntryDate: mustDate(t, "2024-02-01"), PlannedCompletion: 10,
	}); err != nil {
		t.Fatalf("AddProgress: %v", err)
	}

	p.TotalBudget = 1_200_000
	id2, err := s.UpsertProject(p)
	if err != nil {
		t.Fatalf("second UpsertProject: %v", err)
	}
	if id2 != id {
		t.Errorf("upsert changed id %d -> %d", id, id2)
	}

	got, err := s.Project("Pump Station")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if got.TotalBudget != 1_200_000 {
		t.Errorf("TotalBudget = %v", got.TotalBudget)
	}
	if !got.EndDate.Equal(mustDate(t, "2024-12-31")) {
		t.Errorf("EndDate = %v", got.EndDate)
	}

	entries, err := s.Progress("Pump Station")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("upsert dropped progress: %d entries", len(entries))
	}
}

func TestProjectNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Project("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Project: got %v", err)
	}
	if err := s.DeleteProject("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteProject: got %v", err)
	}
	if _, err := s.AddProgress(model.ProgressEntry{Project: "ghost", EntryDate: time.Now()}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddProgress: got %v", err)
	}
}

func TestProjectsOrderingAndGrouping(t *testing.T) {
	s := openTestStore(t)
	water, err := s.CategoryID("Water Projects")
	if err != nil {
		t.Fatal(err)
	}
	sewer, err := s.CategoryID("Sewerage Projects")
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []model.Project{
		{Name: "W2", CategoryID: &water, DisplayOrder: 2},
		{Name: "W1", CategoryID: &water, DisplayOrder: 1},
		{Name: "S1", CategoryID: &sewer},
		{Name: "Loose"},
	} {
		if _, err := s.UpsertProject(p); err != nil {
			t.Fatal(err)
		}
	}

	projects, err := s.Projects()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range projects {
		names = append(names, p.Name)
	}
	want := []string{"Loose", "S1", "W1", "W2"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	groups, err := s.ProjectsByCategory()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups[model.UncategorizedName]) != 1 || len(groups["Water Projects"]) != 2 {
		t.Errorf("groups = %v", groups)
	}

	if err := s.MoveProject("Loose", &sewer, 5); err != nil {
		t.Fatalf("MoveProject: %v", err)
	}
	got, _ := s.Project("Loose")
	if got.CategoryName != "Sewerage Projects" || got.DisplayOrder != 5 {
		t.Errorf("moved project = %+v", got)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertProject(model.Project{Name: "Road"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddProgress(model.ProgressEntry{Project: "Road", EntryDate: mustDate(t, "2024-01-05")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddResource(model.Resource{Project: "Road", Kind: model.Labor, Name: "crew", Quantity: 3}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProject("Road"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Projects != 0 || st.Records != 0 {
		t.Errorf("stats after delete = %+v", st)
	}
}

func TestCashFlowFilters(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"A", "B"} {
		if _, err := s.UpsertProject(model.Project{Name: name, TotalBudget: 100}); err != nil {
			t.Fatal(err)
		}
	}
	err := s.AddProgressBatch([]model.ProgressEntry{
		{Project: "A", EntryDate: mustDate(t, "2024-01-31"), PlannedCost: 10},
		{Project: "A", EntryDate: mustDate(t, "2024-02-29"), PlannedCost: 20},
		{Project: "B", EntryDate: mustDate(t, "2024-02-15"), PlannedCost: 5},
	})
	if err != nil {
		t.Fatalf("AddProgressBatch: %v", err)
	}

	all, err := s.CashFlow("", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Project != "A" || all[2].Project != "B" {
		t.Fatalf("all rows = %+v", all)
	}

	feb, err := s.CashFlow("", mustDate(t, "2024-02-01"), mustDate(t, "2024-02-29"))
	if err != nil {
		t.Fatal(err)
	}
	if len(feb) != 2 {
		t.Errorf("february rows = %d, want 2 (range is inclusive)", len(feb))
	}

	onlyA, err := s.CashFlow("A", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyA) != 2 || onlyA[0].TotalBudget != 100 {
		t.Errorf("project rows = %+v", onlyA)
	}
}

func TestResourcesByKind(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertProject(model.Project{Name: "Tank"}); err != nil {
		t.Fatal(err)
	}
	for _, r := range []model.Resource{
		{Project: "Tank", Kind: model.Labor, Name: "welders", Quantity: 4, DailyRate: 200},
		{Project: "Tank", Kind: model.Equipment, Name: "crane", Quantity: 1, DailyRate: 1500},
	} {
		if _, err := s.AddResource(r); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.AddResource(model.Resource{Project: "Tank", Kind: "robots"}); err == nil {
		t.Error("expected error for unknown resource type")
	}

	eq, err := s.Resources("Tank", model.Equipment)
	if err != nil {
		t.Fatal(err)
	}
	if len(eq) != 1 || eq[0].Name != "crane" {
		t.Errorf("equipment = %+v", eq)
	}
	all, _ := s.Resources("Tank", "")
	if len(all) != 2 {
		t.Errorf("all resources = %d", len(all))
	}
}

func TestOriginalFiles(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LatestOriginalFile(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store: got %v", err)
	}

	first, err := s.SaveOriginalFile("a.xlsx", []byte("one"), []string{"P1", "P2"})
	if err != nil {
		t.Fatal(err)
	}
	again, err := s.SaveOriginalFile("a-renamed.xlsx", []byte("one"), []string{"P1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Errorf("same content stored twice: ids %d, %d", first.ID, again.ID)
	}

	got, err := s.OriginalFileByHash(HashContent([]byte("one")))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a-renamed.xlsx" || len(got.Projects) != 1 || string(got.Content) != "one" {
		t.Errorf("stored file = %+v", got)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LatestOriginalFile(); !errors.Is(err, ErrNotFound) {
		t.Errorf("after ClearAll: got %v", err)
	}
}
