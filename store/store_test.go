package store

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
	"github.com/rushteam/reckit-trainer/dataset"
	"github.com/rushteam/reckit-trainer/eval"
	"github.com/rushteam/reckit-trainer/model"
)

// backends 返回需要跑通用用例的存储实现
func backends(t *testing.T) map[string]core.Store {
	t.Helper()

	mem := NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	bs, err := OpenBadgerStore(BadgerConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { bs.Close() })

	out := map[string]core.Store{"memory": mem, "badger": bs}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, DB: 15})
		if err != nil {
			t.Fatalf("NewRedisStore() error = %v", err)
		}
		t.Cleanup(func() { rs.Close() })
		out["redis"] = rs
	}
	return out
}

func TestStore_Basic(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			prefix := fmt.Sprintf("test:%d:", time.Now().UnixNano())

			if _, err := s.Get(ctx, prefix+"missing"); !core.IsStoreNotFound(err) {
				t.Fatalf("Get(missing) error = %v, want not found", err)
			}
			if err := s.Set(ctx, prefix+"a", []byte("1")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get(ctx, prefix+"a")
			if err != nil || string(got) != "1" {
				t.Fatalf("Get() = %q, %v", got, err)
			}

			if err := s.BatchSet(ctx, map[string][]byte{prefix + "b": []byte("2"), prefix + "c": []byte("3")}); err != nil {
				t.Fatalf("BatchSet() error = %v", err)
			}
			vals, err := s.BatchGet(ctx, []string{prefix + "a", prefix + "b", prefix + "c", prefix + "nope"})
			if err != nil {
				t.Fatalf("BatchGet() error = %v", err)
			}
			want := map[string][]byte{prefix + "a": []byte("1"), prefix + "b": []byte("2"), prefix + "c": []byte("3")}
			if !reflect.DeepEqual(vals, want) {
				t.Errorf("BatchGet() = %v, want %v", vals, want)
			}

			if err := s.Delete(ctx, prefix+"a"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := s.Get(ctx, prefix+"a"); !core.IsStoreNotFound(err) {
				t.Errorf("Get(deleted) error = %v, want not found", err)
			}
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated by caller: %q", got)
	}
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.Set(ctx, "k", []byte("v"), 1)
	s.mu.Lock()
	past := time.Now().Add(-time.Second)
	s.data["k"].ttl = &past
	s.mu.Unlock()

	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(expired) error = %v, want not found", err)
	}
}

func TestMemoryStore_ZRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.ZAdd(ctx, "z", 1, "a")
	_ = s.ZAdd(ctx, "z", 3, "c")
	_ = s.ZAdd(ctx, "z", 2, "b")
	_ = s.ZAdd(ctx, "z", 2, "bb")

	tests := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"c", "bb", "b", "a"}},
		{0, 1, []string{"c", "bb"}},
		{2, 10, []string{"b", "a"}},
		{5, 6, nil},
	}
	for _, tt := range tests {
		got, err := s.ZRange(ctx, "z", tt.start, tt.stop)
		if err != nil {
			t.Fatalf("ZRange() error = %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ZRange(%d, %d) = %v, want %v", tt.start, tt.stop, got, tt.want)
		}
	}
	if score, err := s.ZScore(ctx, "z", "c"); err != nil || score != 3 {
		t.Errorf("ZScore(c) = %v, %v", score, err)
	}
	if _, err := s.ZScore(ctx, "z", "nope"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(missing) error = %v", err)
	}
}

func trainedModel(t *testing.T) *model.SVDModel {
	t.Helper()
	rows := []core.Interaction{
		{UserID: "u1", ItemID: "i1", Rating: 5},
		{UserID: "u1", ItemID: "i2", Rating: 1.5},
		{UserID: "u2", ItemID: "i1", Rating: 4},
		{UserID: "u2", ItemID: "i3", Rating: 2},
	}
	m, err := model.NewSVD(model.SVDConfig{Factors: 4, Epochs: 5, Seed: 1}).Fit(dataset.NewTable(rows))
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return m
}

func TestArtifactStore_Model(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := NewArtifactStore(s)
			m := trainedModel(t)

			key, err := a.SaveModel(ctx, m)
			if err != nil {
				t.Fatalf("SaveModel() error = %v", err)
			}
			loaded, latestKey, err := a.LoadLatestModel(ctx)
			if err != nil {
				t.Fatalf("LoadLatestModel() error = %v", err)
			}
			if latestKey != key {
				t.Errorf("latest key = %q, want %q", latestKey, key)
			}
			got, want := loaded.Snapshot(), m.Snapshot()
			if !got.TrainedAt.Equal(want.TrainedAt) {
				t.Errorf("TrainedAt = %v, want %v", got.TrainedAt, want.TrainedAt)
			}
			got.TrainedAt, want.TrainedAt = time.Time{}, time.Time{}
			if !reflect.DeepEqual(got, want) {
				t.Error("model parameters changed across save/load")
			}
		})
	}
}

func TestArtifactStore_Content(t *testing.T) {
	ctx := context.Background()
	items := []core.ItemFeature{
		{ItemID: "1", Genres: []string{"Sci-Fi"}, Description: "space opera"},
		{ItemID: "2", Genres: []string{"Drama"}, Description: "courtroom drama"},
		{ItemID: "3", Description: "space drama"},
	}
	sim, vec, err := content.NewEngine(content.VectorizerConfig{}).Fit(ctx, items)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	a := NewArtifactStore(NewMemoryStore())
	defer a.Backend().Close()

	if _, err := a.LoadSimilarity(ctx); !core.IsStoreNotFound(err) {
		t.Errorf("LoadSimilarity(empty) error = %v, want not found", err)
	}
	if err := a.SaveSimilarity(ctx, sim); err != nil {
		t.Fatalf("SaveSimilarity() error = %v", err)
	}
	if err := a.SaveVectorizer(ctx, vec); err != nil {
		t.Fatalf("SaveVectorizer() error = %v", err)
	}

	gotSim, err := a.LoadSimilarity(ctx)
	if err != nil {
		t.Fatalf("LoadSimilarity() error = %v", err)
	}
	if !reflect.DeepEqual(gotSim.ItemIDs(), sim.ItemIDs()) || !reflect.DeepEqual(gotSim.Values(), sim.Values()) {
		t.Error("similarity matrix changed across save/load")
	}
	gotVec, err := a.LoadVectorizer(ctx)
	if err != nil {
		t.Fatalf("LoadVectorizer() error = %v", err)
	}
	if !reflect.DeepEqual(gotVec.State(), vec.State()) {
		t.Error("vectorizer changed across save/load")
	}
}

func TestArtifactStore_Reports(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if name == "redis" {
				t.Skip("shared redis index")
			}
			a := NewArtifactStore(s)
			base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
			var ids []string
			for i := 0; i < 3; i++ {
				r := eval.NewReport(base.Add(time.Duration(i) * time.Minute))
				r.SetRegression(eval.Regression{RMSE: float64(i), Count: 1})
				if _, err := a.AppendReport(ctx, r); err != nil {
					t.Fatalf("AppendReport() error = %v", err)
				}
				ids = append(ids, r.ID)
			}

			all, err := a.ListReports(ctx, 0)
			if err != nil {
				t.Fatalf("ListReports() error = %v", err)
			}
			if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Fatalf("ListReports() order wrong: %d reports", len(all))
			}
			if rmse := all[0].CollaborativeFiltering.RMSE; rmse == nil || *rmse != 2 {
				t.Errorf("newest RMSE = %v, want 2", rmse)
			}

			latest, err := a.ListReports(ctx, 1)
			if err != nil || len(latest) != 1 || latest[0].ID != ids[2] {
				t.Errorf("ListReports(1) = %v, %v", latest, err)
			}
		})
	}
}

func TestArtifactStore_ReportOrderByTimestamp(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	// 追加顺序与时间顺序不同；前两份落在同一毫秒内
	offsets := []time.Duration{time.Minute, time.Nanosecond, 0, 2 * time.Minute}
	want := []time.Duration{2 * time.Minute, time.Minute, time.Nanosecond, 0}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if name == "redis" {
				t.Skip("shared redis index")
			}
			a := NewArtifactStore(s)
			for _, off := range offsets {
				if _, err := a.AppendReport(ctx, eval.NewReport(base.Add(off))); err != nil {
					t.Fatalf("AppendReport() error = %v", err)
				}
			}
			got, err := a.ListReports(ctx, 0)
			if err != nil {
				t.Fatalf("ListReports() error = %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("ListReports() returned %d reports, want %d", len(got), len(want))
			}
			for i, r := range got {
				if !r.Timestamp.Equal(base.Add(want[i])) {
					t.Errorf("report %d timestamp = %v, want %v", i, r.Timestamp, base.Add(want[i]))
				}
			}
		})
	}
}

func TestArtifactStore_ConcurrentReports(t *testing.T) {
	ctx := context.Background()
	bs, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	defer bs.Close()
	a := NewArtifactStore(bs)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.AppendReport(ctx, eval.NewReport(time.Now())); err != nil {
				t.Errorf("AppendReport() error = %v", err)
			}
		}()
	}
	wg.Wait()

	all, err := a.ListReports(ctx, 0)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(all) != 20 {
		t.Errorf("ListReports() returned %d reports, want 20", len(all))
	}
}
