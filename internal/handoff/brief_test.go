package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/catalog"
	"intake/internal/types"
)

func TestBuildBrief_EnumeratesEveryDeclaredField(t *testing.T) {
	cat := catalog.Default()
	sess := &types.Session{ID: "sess-1", Coverage: map[int]types.StageCoverage{}}

	brief := BuildBrief(cat, sess)

	var declared int
	for _, s := range cat.Stages() {
		declared += len(s.DataToCollect)
	}
	assert.Len(t, brief.Fields, declared)

	// Nothing visited: every field is uncertain with an empty value.
	for _, f := range brief.Fields {
		assert.True(t, f.Uncertain, "field %s", f.Key)
		assert.Empty(t, f.Value, "field %s", f.Key)
	}
	assert.Equal(t, "sess-1", brief.SessionID)
	assert.NotEmpty(t, brief.ExecutiveSummary)
	assert.False(t, brief.GeneratedAt.IsZero())
}

func TestBuildBrief_CollectedFieldsAreCertain(t *testing.T) {
	cat := catalog.Default()
	sess := &types.Session{
		ID: "sess-1",
		Coverage: map[int]types.StageCoverage{
			1: {
				Stage:       1,
				Coverage:    40,
				BriefFields: []string{"business_concept"},
				LastExcerpt: "We help busy parents plan meals",
			},
		},
	}

	brief := BuildBrief(cat, sess)

	byKey := map[string]types.BriefField{}
	for _, f := range brief.Fields {
		byKey[f.Key] = f
	}

	got := byKey["business_concept"]
	assert.False(t, got.Uncertain)
	assert.Equal(t, "We help busy parents plan meals", got.Value)
	assert.Equal(t, 1, got.Stage)
	assert.Equal(t, "Business Idea", got.StageName)

	// Every other field stays uncertain.
	for key, f := range byKey {
		if key == "business_concept" {
			continue
		}
		assert.True(t, f.Uncertain, "field %s", key)
	}
}

func TestBuildBrief_DoubtfulExcerptStaysUncertainButKeepsValue(t *testing.T) {
	cat := catalog.Default()
	sess := &types.Session{
		ID: "sess-1",
		Coverage: map[int]types.StageCoverage{
			2: {
				Stage:       2,
				BriefFields: []string{"target_segments"},
				LastExcerpt: "Honestly I'm not sure who the buyer is",
			},
		},
	}

	brief := BuildBrief(cat, sess)

	for _, f := range brief.Fields {
		if f.Key != "target_segments" {
			continue
		}
		// Stated-but-uncertain keeps the value; not-visited would be empty.
		assert.True(t, f.Uncertain)
		assert.NotEmpty(t, f.Value)
		return
	}
	require.Fail(t, "target_segments not found in brief")
}

func TestBuildBrief_FieldOrderFollowsCatalog(t *testing.T) {
	cat := catalog.Default()
	brief := BuildBrief(cat, &types.Session{ID: "s"})

	var want []string
	for _, s := range cat.Stages() {
		want = append(want, s.DataToCollect...)
	}
	var got []string
	for _, f := range brief.Fields {
		got = append(got, f.Key)
	}
	assert.Equal(t, want, got)
}
