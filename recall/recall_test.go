package recall

import (
	"reflect"
	"testing"

	"github.com/rushteam/reckit-trainer/content"
	"github.com/rushteam/reckit-trainer/core"
)

type fixedPredictor map[string]float64

func (p fixedPredictor) Name() string { return "fixed" }

func (p fixedPredictor) Predict(userID, itemID string) float64 { return p[itemID] }

func TestMFRecall_Recommend(t *testing.T) {
	pred := fixedPredictor{"a": 3.0, "b": 4.5, "c": 3.0, "d": 1.0}

	tests := []struct {
		name       string
		r          MFRecall
		user       string
		candidates []string
		want       []string
	}{
		{"ordered with ties by id", MFRecall{Model: pred}, "u", []string{"d", "c", "a", "b"}, []string{"b", "a", "c", "d"}},
		{"top k", MFRecall{Model: pred, TopK: 2}, "u", []string{"d", "c", "a", "b"}, []string{"b", "a"}},
		{"duplicates collapsed", MFRecall{Model: pred}, "u", []string{"a", "a", "d"}, []string{"a", "d"}},
		{"exclude", MFRecall{Model: pred, Exclude: map[string]struct{}{"b": {}}}, "u", []string{"a", "b"}, []string{"a"}},
		{"no user", MFRecall{Model: pred}, "", []string{"a"}, nil},
		{"no model", MFRecall{}, "u", []string{"a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IDs(tt.r.Recommend(tt.user, tt.candidates))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Recommend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func matrix(t *testing.T) *content.SimilarityMatrix {
	t.Helper()
	m, err := content.NewSimilarityMatrix(
		[]string{"a", "b", "c", "d"},
		[][]float64{
			{1, 0.9, 0.1, 0},
			{0.9, 1, 0.5, 0.2},
			{0.1, 0.5, 1, 0.7},
			{0, 0.2, 0.7, 1},
		},
	)
	if err != nil {
		t.Fatalf("NewSimilarityMatrix() error = %v", err)
	}
	return m
}

func TestContentRecall_Similar(t *testing.T) {
	r := &ContentRecall{Matrix: matrix(t), TopK: 2}
	got, err := r.Similar("b")
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(IDs(got), want) {
		t.Errorf("Similar(b) = %v, want %v", IDs(got), want)
	}

	r.MinScore = 0.15
	r.TopK = 0
	got, _ = r.Similar("a")
	if want := []string{"b"}; !reflect.DeepEqual(IDs(got), want) {
		t.Errorf("Similar(a) with MinScore = %v, want %v", IDs(got), want)
	}

	if _, err := r.Similar("zzz"); !core.IsNotFound(err) {
		t.Errorf("Similar(unknown) error = %v, want NOT_FOUND", err)
	}
	if _, err := (&ContentRecall{}).Similar("a"); err == nil {
		t.Error("Similar() without matrix should fail")
	}
}

func TestContentRecall_ForUser(t *testing.T) {
	r := &ContentRecall{Matrix: matrix(t)}
	got, err := r.ForUser([]string{"a", "d", "a", "ghost"})
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	// b: 0.9+0.2=1.1, c: 0.1+0.7=0.8
	if want := []string{"b", "c"}; !reflect.DeepEqual(IDs(got), want) {
		t.Errorf("ForUser() = %v, want %v", IDs(got), want)
	}

	none, err := r.ForUser([]string{"ghost"})
	if err != nil || none != nil {
		t.Errorf("ForUser(unknown) = %v, %v; want nil, nil", none, err)
	}
}
