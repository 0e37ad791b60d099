package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnamatcher/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCase(id string, ct types.CaseType) *types.Case {
	return &types.Case{
		ID:             id,
		Type:           ct,
		Category:       "bags",
		Latitude:       52.37,
		Longitude:      4.89,
		SearchRadiusKM: 10,
	}
}

func testDNA(photoID, caseID string, ct types.CaseType) *types.VisualDNA {
	return &types.VisualDNA{
		PhotoID:          photoID,
		CaseID:           caseID,
		CaseType:         ct,
		EntityType:       types.EntityItem,
		AverageHash:      "a5a5a5a5a5a5a5a5",
		PerceptualHash:   "f0f0f0f0f0f0f0f0",
		DNAID:            "ITEM-RED-HORZ-00000000-a5a5a5-Q70",
		QualityScore:     70,
		Status:           types.StatusCompleted,
		AlgorithmVersion: "2.1.0",
	}
}

func TestCaseRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := testCase("case-1", types.CaseLost)
	require.NoError(t, store.SaveCase(ctx, c))

	got, err := store.CaseByID(ctx, "case-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.CaseLost, got.Type)
	assert.Equal(t, CaseOpen, got.Status)
	assert.InDelta(t, 52.37, got.Latitude, 0.001)

	missing, err := store.CaseByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDNARoundTripAndReplace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCase(ctx, testCase("case-1", types.CaseLost)))
	dna := testDNA("photo-1", "case-1", types.CaseLost)
	text := "gym bag with name tag"
	dna.OCR = &types.OCRFeatures{Text: &text, Confidence: 75, Identifiers: map[string][]string{}}
	require.NoError(t, store.SaveDNA(ctx, dna))

	got, err := store.DNAByPhotoID(ctx, "photo-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "case-1", got.CaseID)
	require.NotNil(t, got.OCR)
	assert.Equal(t, text, *got.OCR.Text)

	// Re-extraction replaces, never duplicates.
	dna.QualityScore = 90
	require.NoError(t, store.SaveDNA(ctx, dna))
	got, err = store.DNAByPhotoID(ctx, "photo-1")
	require.NoError(t, err)
	assert.InDelta(t, 90, got.QualityScore, 0.001)
}

func TestActiveDNAFiltersTypeStatusAndCase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCase(ctx, testCase("lost-case", types.CaseLost)))
	require.NoError(t, store.SaveCase(ctx, testCase("found-case", types.CaseFound)))
	resolved := testCase("resolved-case", types.CaseFound)
	resolved.Status = CaseResolved
	require.NoError(t, store.SaveCase(ctx, resolved))

	require.NoError(t, store.SaveDNA(ctx, testDNA("p-lost", "lost-case", types.CaseLost)))
	require.NoError(t, store.SaveDNA(ctx, testDNA("p-found", "found-case", types.CaseFound)))

	partial := testDNA("p-partial", "found-case", types.CaseFound)
	partial.Status = types.StatusPartial
	require.NoError(t, store.SaveDNA(ctx, partial))

	failed := testDNA("p-failed", "found-case", types.CaseFound)
	failed.Status = types.StatusFailed
	require.NoError(t, store.SaveDNA(ctx, failed))

	closedCase := testDNA("p-resolved", "resolved-case", types.CaseFound)
	require.NoError(t, store.SaveDNA(ctx, closedCase))

	active, err := store.ActiveDNA(ctx, types.CaseFound, 100)
	require.NoError(t, err)

	ids := make([]string, 0, len(active))
	for _, d := range active {
		ids = append(ids, d.PhotoID)
	}
	assert.ElementsMatch(t, []string{"p-found", "p-partial"}, ids)
}

func TestResolveCaseRemovesPhotosFromScans(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCase(ctx, testCase("case-1", types.CaseFound)))
	require.NoError(t, store.SaveDNA(ctx, testDNA("p-1", "case-1", types.CaseFound)))

	require.NoError(t, store.ResolveCase(ctx, "case-1"))
	active, err := store.ActiveDNA(ctx, types.CaseFound, 100)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Error(t, store.ResolveCase(ctx, "missing"))
}

func TestSaveMatchIgnoresDuplicatePair(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := &types.MatchRecord{
		ID:            "m-1",
		SourcePhotoID: "p-a",
		TargetPhotoID: "p-b",
		Overall:       82.5,
		MatchType:     "image_dna",
		Feedback:      types.FeedbackPending,
	}
	require.NoError(t, store.SaveMatch(ctx, m))

	// Same pair rediscovered under a new ID: swallowed, not duplicated.
	dup := *m
	dup.ID = "m-2"
	dup.Overall = 90
	require.NoError(t, store.SaveMatch(ctx, &dup))

	matches, err := store.MatchesForPhoto(ctx, "p-a")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m-1", matches[0].ID)
	assert.InDelta(t, 82.5, matches[0].Overall, 0.001)
}

func TestUpdateFeedback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	m := &types.MatchRecord{
		ID:            "m-1",
		SourcePhotoID: "p-a",
		TargetPhotoID: "p-b",
		Overall:       55,
		Feedback:      types.FeedbackPending,
	}
	require.NoError(t, store.SaveMatch(ctx, m))
	require.NoError(t, store.UpdateFeedback(ctx, "m-1", types.FeedbackConfirmed))

	matches, err := store.MatchesForPhoto(ctx, "p-a")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, types.FeedbackConfirmed, matches[0].Feedback)

	assert.Error(t, store.UpdateFeedback(ctx, "missing", types.FeedbackRejected))
}

func TestStaleDNA(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCase(ctx, testCase("case-1", types.CaseLost)))

	current := testDNA("p-current", "case-1", types.CaseLost)
	require.NoError(t, store.SaveDNA(ctx, current))

	old := testDNA("p-old", "case-1", types.CaseLost)
	old.AlgorithmVersion = "1.0.0"
	require.NoError(t, store.SaveDNA(ctx, old))

	ids, err := store.StaleDNA(ctx, "2.1.0", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-old"}, ids)
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCase(ctx, testCase("case-1", types.CaseLost)))
	require.NoError(t, store.SaveDNA(ctx, testDNA("p-1", "case-1", types.CaseLost)))
	failed := testDNA("p-2", "case-1", types.CaseLost)
	failed.Status = types.StatusFailed
	require.NoError(t, store.SaveDNA(ctx, failed))

	st, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.OpenCases)
	assert.Equal(t, 2, st.TotalPhotos)
	assert.Equal(t, 1, st.FailedPhotos)
	assert.Equal(t, 0, st.StoredMatches)
}
