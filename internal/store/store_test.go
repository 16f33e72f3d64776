package store

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/dircrawl/pkg/models"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func TestMerge_NewAndExisting(t *testing.T) {
	s := New()

	res := s.Merge(models.Fragment{ID: "42", DisplayName: "Ivanov", ProfileURL: "https://example.com/d/42"}, "cardiology")
	assert.Equal(t, Inserted, res)

	res = s.Merge(models.Fragment{ID: "42", DisplayName: "Other"}, "therapy")
	assert.Equal(t, Merged, res)

	rec, ok := s.Get("42")
	require.True(t, ok)
	assert.Equal(t, "Ivanov", rec.DisplayName)
	assert.Equal(t, []string{"cardiology", "therapy"}, rec.Partitions)
	assert.Equal(t, 1, s.Len())
}

func TestMerge_RatingFilledWhenEmpty(t *testing.T) {
	s := New()
	s.Merge(models.Fragment{ID: "42"}, "a")
	s.Merge(models.Fragment{ID: "42", Rating: ptrF(4.5)}, "b")

	rec, _ := s.Get("42")
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.5, *rec.Rating)
}

func TestMerge_FirstNonEmptyRatingWins(t *testing.T) {
	s := New()
	s.Merge(models.Fragment{ID: "42", Rating: ptrF(4.5), ReviewCount: ptrI(10)}, "a")
	s.Merge(models.Fragment{ID: "42", Rating: ptrF(3.0), ReviewCount: ptrI(99)}, "b")

	rec, _ := s.Get("42")
	assert.Equal(t, 4.5, *rec.Rating)
	assert.Equal(t, 10, *rec.ReviewCount)
}

func TestMerge_CategoryLabelNotOverwritten(t *testing.T) {
	s := New()
	s.Merge(models.Fragment{ID: "1", CategoryLabel: "Cardiologist"}, "a")
	s.Merge(models.Fragment{ID: "1", CategoryLabel: "Therapist"}, "b")

	rec, _ := s.Get("1")
	assert.Equal(t, "Cardiologist", rec.CategoryLabel)
}

func TestMerge_Idempotent(t *testing.T) {
	s := New()
	frag := models.Fragment{ID: "7", DisplayName: "Petrov", Rating: ptrF(4.9)}
	s.Merge(frag, "a")
	before, _ := s.Get("7")

	assert.Equal(t, Merged, s.Merge(frag, "a"))
	after, _ := s.Get("7")
	assert.Equal(t, before, after)
}

func TestMerge_SkipsFragmentsWithoutIdentity(t *testing.T) {
	s := New()
	assert.Equal(t, Skipped, s.Merge(models.Fragment{DisplayName: "nobody"}, "a"))
	assert.Equal(t, Skipped, s.Merge(models.Fragment{ProfileURL: "not a url"}, "a"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, s.Skipped())
}

func TestMerge_DerivesIDFromLink(t *testing.T) {
	s := New()
	assert.Equal(t, Inserted, s.Merge(models.Fragment{ProfileURL: "https://example.com/doctor/123/"}, "a"))
	_, ok := s.Get("123")
	assert.True(t, ok)

	assert.Equal(t, Inserted, s.Merge(models.Fragment{ProfileURL: "https://example.com/moskva/vrach/ivanov/?x=1#otzivi"}, "a"))
	_, ok = s.Get("https://example.com/moskva/vrach/ivanov/")
	assert.True(t, ok)
}

func TestMerge_ConcurrentInterleavingSameMembership(t *testing.T) {
	tags := []string{"p0", "p1", "p2", "p3", "p4"}
	var frags []models.Fragment
	for i := 0; i < 50; i++ {
		frags = append(frags, models.Fragment{ID: fmt.Sprintf("%d", i%10)})
	}

	run := func(seed int64) map[string][]string {
		s := New()
		r := rand.New(rand.NewSource(seed))
		var wg sync.WaitGroup
		for _, tag := range tags {
			shuffled := append([]models.Fragment(nil), frags...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			wg.Add(1)
			go func(tag string, fs []models.Fragment) {
				defer wg.Done()
				for _, f := range fs {
					s.Merge(f, tag)
				}
			}(tag, shuffled)
		}
		wg.Wait()

		out := make(map[string][]string)
		for _, rec := range s.Snapshot() {
			out[rec.ID] = rec.Partitions
		}
		return out
	}

	a, b := run(1), run(2)
	require.Len(t, a, 10)
	require.Len(t, b, 10)
	for id, parts := range a {
		assert.ElementsMatch(t, parts, b[id], "membership for %s", id)
		assert.Len(t, parts, len(tags))
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New()
	s.Merge(models.Fragment{ID: "1", Rating: ptrF(4.0)}, "a")

	snap := s.Snapshot()
	*snap[0].Rating = 1.0
	snap[0].Partitions[0] = "mutated"

	rec, _ := s.Get("1")
	assert.Equal(t, 4.0, *rec.Rating)
	assert.Equal(t, []string{"a"}, rec.Partitions)
}

func TestRestore_KeepsOrderAndMembership(t *testing.T) {
	s := New()
	s.Restore([]models.Record{
		{ID: "b", Partitions: []string{"x", "y"}},
		{ID: "a", Partitions: []string{"y"}, Rating: ptrF(5)},
	})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)
	assert.Equal(t, []string{"x", "y"}, snap[0].Partitions)
	assert.Equal(t, 5.0, *snap[1].Rating)

	assert.Equal(t, Merged, s.Merge(models.Fragment{ID: "a"}, "z"))
	rec, _ := s.Get("a")
	assert.Equal(t, []string{"y", "z"}, rec.Partitions)
}
