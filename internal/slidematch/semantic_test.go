package slidematch

import (
	"context"
	"errors"
	"testing"
)

type searchingIndex struct {
	fakeIndex
	searchResults []ScoredSlide
	searchErr     error
}

func (s *searchingIndex) SearchSimilar(ctx context.Context, vec []float32, topK int) ([]ScoredSlide, error) {
	return s.searchResults, s.searchErr
}

func TestSemanticMatch_LinearScanFindsClosestVector(t *testing.T) {
	idx := &fakeIndex{
		embedFn:   func(string) ([]float32, error) { return []float32{1, 0}, nil },
		matrix:    [][]float32{{1, 0}, {0, 1}},
		matrixIDs: []int{1, 2},
		matrixOK:  true,
	}

	results, err := semanticMatch(context.Background(), idx, "utterance")
	if err != nil {
		t.Fatalf("semanticMatch() error = %v", err)
	}
	if _, ok := results[1]; !ok {
		t.Fatal("expected a match for slide 1 (identical vector)")
	}
	if _, ok := results[2]; ok {
		t.Error("slide 2 (orthogonal vector) should be below threshold")
	}
}

func TestSemanticMatch_EmptyEmbeddingReturnsNil(t *testing.T) {
	idx := &fakeIndex{embedFn: func(string) ([]float32, error) { return nil, nil }}
	results, err := semanticMatch(context.Background(), idx, "utterance")
	if err != nil || results != nil {
		t.Errorf("semanticMatch() = (%v, %v), want (nil, nil)", results, err)
	}
}

func TestSemanticMatch_EmbedErrorPropagates(t *testing.T) {
	wantErr := errors.New("embedding service down")
	idx := &fakeIndex{embedFn: func(string) ([]float32, error) { return nil, wantErr }}
	_, err := semanticMatch(context.Background(), idx, "utterance")
	if !errors.Is(err, wantErr) {
		t.Errorf("semanticMatch() error = %v, want %v", err, wantErr)
	}
}

func TestSemanticMatch_PrefersVectorSearcherOverLinearScan(t *testing.T) {
	idx := &searchingIndex{
		fakeIndex: fakeIndex{
			embedFn:  func(string) ([]float32, error) { return []float32{1, 0}, nil },
			matrixOK: false,
		},
		searchResults: []ScoredSlide{{SlideID: 9, Similarity: 0.95}},
	}

	results, err := semanticMatch(context.Background(), idx, "utterance")
	if err != nil {
		t.Fatalf("semanticMatch() error = %v", err)
	}
	if _, ok := results[9]; !ok {
		t.Fatalf("results = %v, want slide 9 from VectorSearcher", results)
	}
}
