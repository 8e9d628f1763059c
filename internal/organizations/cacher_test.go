package organizations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givdo/givdo/internal/cache"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/logging"
	"github.com/givdo/givdo/internal/memstore"
	"github.com/givdo/givdo/internal/models"
)

type stubGraph struct {
	objects    map[string]facebook.Object
	pictureErr error
	calls      int
}

func (g *stubGraph) AppAccessToken(context.Context) (string, error) {
	return "app-token", nil
}

func (g *stubGraph) GetObject(_ context.Context, token, id string) (*facebook.Object, error) {
	g.calls++
	obj, ok := g.objects[id]
	if !ok || token != "app-token" {
		return nil, facebook.ErrUpstream
	}
	return &obj, nil
}

func (g *stubGraph) GetPicture(_ context.Context, _, id, size string) (string, error) {
	if g.pictureErr != nil {
		return "", g.pictureErr
	}
	return "https://graph.example/" + id + "/" + size + ".jpg", nil
}

// countingStore records how many times an organization was written as cached.
type countingStore struct {
	*memstore.Store
	cachedWrites int
}

func (s *countingStore) CacheOrganization(ctx context.Context, o *models.Organization) (bool, error) {
	ok, err := s.Store.CacheOrganization(ctx, o)
	if ok {
		s.cachedWrites++
	}
	return ok, err
}

type recordingQueue struct {
	jobs []cache.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job cache.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type stubMirror struct{ err error }

func (m stubMirror) MirrorPicture(_ context.Context, name, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://pics.example/" + name + ".jpg", nil
}

var redCross = facebook.Object{
	ID:      "123",
	Name:    "Red Cross",
	Mission: "Help people",
	Location: &facebook.Location{
		Street: "1 Main St",
		City:   "Springfield",
		State:  "IL",
		Zip:    "62701",
	},
}

func newOrg(t *testing.T, store *memstore.Store, fbID string) *models.Organization {
	t.Helper()
	o := &models.Organization{FacebookID: fbID}
	require.NoError(t, store.CreateOrganization(context.Background(), o))
	return o
}

func TestPerform_CachesFromGraph(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	graph := &stubGraph{objects: map[string]facebook.Object{"123": redCross}}
	c := NewCacher(store, graph, nil, nil, time.Second, logging.Discard())
	ctx := context.Background()
	org := newOrg(t, store.Store, "123")

	require.NoError(t, c.Perform(ctx, org.ID))

	got, err := store.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, "Red Cross", got.Name)
	assert.Equal(t, "Help people", got.Mission)
	assert.Equal(t, "1 Main St", got.Street)
	assert.Equal(t, "Springfield", got.City)
	assert.Equal(t, "IL", got.State)
	assert.Equal(t, "62701", got.Zip)
	assert.Equal(t, "https://graph.example/123/large.jpg", got.Picture)

	// a second run is a no-op
	require.NoError(t, c.Perform(ctx, org.ID))
	assert.Equal(t, 1, store.cachedWrites)
	assert.Equal(t, 1, graph.calls)
}

func TestPerform_NoLocation(t *testing.T) {
	store := memstore.New()
	graph := &stubGraph{objects: map[string]facebook.Object{"9": {ID: "9", Name: "Tiny"}}}
	c := NewCacher(store, graph, nil, nil, 0, logging.Discard())
	org := newOrg(t, store, "9")

	require.NoError(t, c.Perform(context.Background(), org.ID))
	got, err := store.GetOrganization(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, "Tiny", got.Name)
	assert.Empty(t, got.City)
}

func TestPerform_FailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		graph  *stubGraph
		mirror PictureMirror
	}{
		{"object missing", &stubGraph{objects: map[string]facebook.Object{}}, nil},
		{"picture fails", &stubGraph{objects: map[string]facebook.Object{"123": redCross}, pictureErr: facebook.ErrUpstream}, nil},
		{"mirror fails", &stubGraph{objects: map[string]facebook.Object{"123": redCross}}, stubMirror{err: errors.New("s3 down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memstore.New()
			org := newOrg(t, store, "123")
			c := NewCacher(store, tc.graph, nil, tc.mirror, time.Second, logging.Discard())

			err := c.Perform(ctx, org.ID)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)

			got, err := store.GetOrganization(ctx, org.ID)
			require.NoError(t, err)
			assert.False(t, got.Cached)
			assert.Empty(t, got.Name)
			assert.Empty(t, got.Picture)
		})
	}
}

func TestPerform_MirrorsPicture(t *testing.T) {
	store := memstore.New()
	graph := &stubGraph{objects: map[string]facebook.Object{"123": redCross}}
	c := NewCacher(store, graph, nil, stubMirror{}, time.Second, logging.Discard())
	org := newOrg(t, store, "123")

	require.NoError(t, c.Perform(context.Background(), org.ID))
	got, err := store.GetOrganization(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pics.example/"+org.ID.String()+".jpg", got.Picture)
}

func TestPerform_UnknownOrganization(t *testing.T) {
	c := NewCacher(memstore.New(), &stubGraph{}, nil, nil, time.Second, logging.Discard())
	err := c.Perform(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCacheAll_EnqueuesUncached(t *testing.T) {
	store := memstore.New()
	queue := &recordingQueue{}
	c := NewCacher(store, &stubGraph{}, queue, nil, time.Second, logging.Discard())
	ctx := context.Background()

	a := newOrg(t, store, "a")
	b := newOrg(t, store, "b")
	done := newOrg(t, store, "c")
	_, err := store.CacheOrganization(ctx, done)
	require.NoError(t, err)

	n, err := c.CacheAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, a.ID, queue.jobs[0].OrganizationID)
	assert.Equal(t, b.ID, queue.jobs[1].OrganizationID)
	assert.Equal(t, cache.JobUpdateOrganization, queue.jobs[0].Type)
}

func TestRegister(t *testing.T) {
	store := memstore.New()
	queue := &recordingQueue{}
	c := NewCacher(store, &stubGraph{}, queue, nil, time.Second, logging.Discard())
	ctx := context.Background()

	org, err := c.Register(ctx, " 123 ")
	require.NoError(t, err)
	assert.Equal(t, "123", org.FacebookID)
	assert.False(t, org.Cached)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, org.ID, queue.jobs[0].OrganizationID)

	var verr *models.ValidationError
	_, err = c.Register(ctx, "123")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "facebook_id")

	_, err = c.Register(ctx, "")
	require.ErrorAs(t, err, &verr)
}
