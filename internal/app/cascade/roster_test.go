package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/orgdirectory/internal/domain/models"
)

func TestRosterLoadAndMerge(t *testing.T) {
	r := NewRoster()
	if st := r.Level().Status; st != Unloaded {
		t.Fatalf("initial status = %s", st)
	}

	err := r.Load(context.Background(), func(context.Context) ([]models.Member, error) {
		return []models.Member{{ID: "m1", TeamID: "t1"}, {ID: "m2", TeamID: "t2"}}, nil
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	r.Merge(models.Member{ID: "m3", TeamID: "t9"})
	r.Merge(models.Member{ID: "m1", TeamID: "t1", ImageURL: "https://images.example/m1.jpg"})
	r.Merge(models.Member{})

	items := r.Items()
	if len(items) != 3 {
		t.Fatalf("items = %+v", items)
	}
	if !items[0].HasImage() {
		t.Errorf("merge did not replace m1")
	}
	if items[2].ID != "m3" {
		t.Errorf("m3 not appended: %+v", items)
	}
}

func TestRosterKeepsMergesDuringLoad(t *testing.T) {
	r := NewRoster()
	err := r.Load(context.Background(), func(context.Context) ([]models.Member, error) {
		// a member is created while the list request is in flight
		r.Merge(models.Member{ID: "m9", TeamID: "t1"})
		return []models.Member{{ID: "m1", TeamID: "t1"}}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := memberIDs(r.Items()); len(got) != 2 || got[0] != "m1" || got[1] != "m9" {
		t.Errorf("items = %v, want [m1 m9]", got)
	}
}

func TestRosterOverlappingLoadsKeepLatest(t *testing.T) {
	r := NewRoster()
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		firstDone <- r.Load(context.Background(), func(context.Context) ([]models.Member, error) {
			close(started)
			<-release
			return []models.Member{{ID: "old", TeamID: "t1"}}, nil
		})
	}()
	<-started

	r.Merge(models.Member{ID: "m9", TeamID: "t1"})
	if err := r.Load(context.Background(), func(context.Context) ([]models.Member, error) {
		return []models.Member{{ID: "new", TeamID: "t1"}}, nil
	}); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Load: %v", err)
	}

	if got := memberIDs(r.Items()); len(got) != 2 || got[0] != "new" || got[1] != "m9" {
		t.Errorf("items = %v, want [new m9]", got)
	}
	if st := r.Level().Status; st != Loaded {
		t.Errorf("status = %s, want loaded", st)
	}
}

func TestRosterLoadFailure(t *testing.T) {
	r := NewRoster()
	boom := errors.New("boom")
	if err := r.Load(context.Background(), func(context.Context) ([]models.Member, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Load err = %v", err)
	}
	lv := r.Level()
	if lv.Status != Failed || !errors.Is(lv.Err, boom) {
		t.Errorf("level = %+v", lv)
	}
}

func TestNilRosterMergeIsIgnored(t *testing.T) {
	var r *Roster
	r.Merge(models.Member{ID: "m1"})
}
