package migration

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"github.com/tphakala/gallery-migrate/internal/logger"
)

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// fakeClock only moves when told to, or by step on every reading.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSource serves rows from memory.
type fakeSource struct {
	categories []legacy.Category
	images     []legacy.Image
	comments   []legacy.Comment

	checkErr error
	fetchErr error
}

func (s *fakeSource) Check(context.Context) error { return s.checkErr }
func (s *fakeSource) TableName(t legacy.Table) string { return "4images_" + t.Name }
func (s *fakeSource) OriginalsDir() string { return "/legacy/data/media" }
func (s *fakeSource) ThumbnailsDir() string { return "/legacy/data/thumbnails" }

func (s *fakeSource) MaxID(_ context.Context, t legacy.Table) (uint, error) {
	var ids []uint
	switch t {
	case legacy.CategoriesTable:
		for _, c := range s.categories {
			ids = append(ids, c.CatID)
		}
	case legacy.ImagesTable:
		for _, i := range s.images {
			ids = append(ids, i.ImageID)
		}
	case legacy.CommentsTable:
		for _, c := range s.comments {
			ids = append(ids, c.CommentID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return slices.Max(ids), nil
}

func after[T any](rows []T, id func(T) uint, afterID uint, limit int) []T {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b T) int { return int(id(a)) - int(id(b)) })
	var out []T
	for _, r := range sorted {
		if id(r) > afterID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeSource) CategoriesAfter(_ context.Context, afterID uint, limit int) ([]legacy.Category, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return after(s.categories, legacy.Category.SourceID, afterID, limit), nil
}

func (s *fakeSource) ImagesAfter(_ context.Context, afterID uint, limit int) ([]legacy.Image, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return after(s.images, legacy.Image.SourceID, afterID, limit), nil
}

func (s *fakeSource) CommentsAfter(_ context.Context, afterID uint, limit int) ([]legacy.Comment, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return after(s.comments, legacy.Comment.SourceID, afterID, limit), nil
}

// fakeTarget keeps written records and the order of writes.
type fakeTarget struct {
	categories map[uint]gallery.Category
	images     map[uint]gallery.Image
	comments   map[uint]gallery.Comment
	writes     []string
	rebuilds   int

	// afterWrite runs after every successful record write.
	afterWrite func(kind string, id uint)
	// failImage makes WriteImage fail for an image id.
	failImage map[uint]error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		categories: make(map[uint]gallery.Category),
		images:     make(map[uint]gallery.Image),
		comments:   make(map[uint]gallery.Comment),
		failImage:  make(map[uint]error),
	}
}

func integrityErr(format string, args ...any) error {
	return errors.New(fmt.Errorf(format, args...)).
		Component("test").
		Category(errors.CategoryIntegrity).
		Build()
}

func (t *fakeTarget) record(kind string, id uint) {
	t.writes = append(t.writes, fmt.Sprintf("%s:%d", kind, id))
	if t.afterWrite != nil {
		t.afterWrite(kind, id)
	}
}

func (t *fakeTarget) PrepareCategory(_ context.Context, cat *gallery.Category) error {
	if cat.ParentID == 0 {
		cat.Catpath = fmt.Sprintf("%s_%d", cat.Alias, cat.CID)
		return nil
	}
	parent, ok := t.categories[cat.ParentID]
	if !ok {
		return integrityErr("%w: parent category %d", gallery.ErrMissingReference, cat.ParentID)
	}
	cat.Catpath = fmt.Sprintf("%s/%s_%d", parent.Catpath, cat.Alias, cat.CID)
	return nil
}

func (t *fakeTarget) CategoryPath(_ context.Context, cid uint) (string, error) {
	cat, ok := t.categories[cid]
	if !ok {
		return "", integrityErr("category %d not found", cid)
	}
	return cat.Catpath, nil
}

func (t *fakeTarget) WriteCategory(_ context.Context, cat *gallery.Category) error {
	t.categories[cat.CID] = *cat
	t.record("category", cat.CID)
	return nil
}

func (t *fakeTarget) RebuildTree(context.Context) error {
	t.rebuilds++
	return nil
}

func (t *fakeTarget) WriteImage(_ context.Context, img *gallery.Image) error {
	if err := t.failImage[img.ID]; err != nil {
		return err
	}
	if _, ok := t.categories[img.CatID]; !ok {
		return integrityErr("category %d not found", img.CatID)
	}
	t.images[img.ID] = *img
	t.record("image", img.ID)
	return nil
}

func (t *fakeTarget) WriteComment(_ context.Context, c *gallery.Comment) error {
	if _, ok := t.images[c.CmtPic]; !ok {
		return integrityErr("image %d not found", c.CmtPic)
	}
	t.comments[c.CmtID] = *c
	t.record("comment", c.CmtID)
	return nil
}

// fakeAssets records placement requests.
type fakeAssets struct {
	checkErr error
	placed   []gallery.AssetRequest
	fail     map[string]error // by file name
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{fail: make(map[string]error)}
}

func (a *fakeAssets) Check(context.Context) error { return a.checkErr }
func (a *fakeAssets) PrepareCategory(context.Context, string) error { return nil }

func (a *fakeAssets) Place(_ context.Context, req gallery.AssetRequest) (gallery.PlacedAsset, error) {
	if err := a.fail[req.FileName]; err != nil {
		return gallery.PlacedAsset{}, err
	}
	a.placed = append(a.placed, req)
	return gallery.PlacedAsset{FileName: req.FileName}, nil
}

// fakeStore is an in-memory checkpoint store. Loaded and saved states are
// copies so the runner can not mutate persisted state without SaveTask.
type fakeStore struct {
	tasks   map[string]*checkpoint.TaskState
	marks   map[string]map[uint]int // table -> id -> MarkMigrated calls
	skipped map[string]map[uint]string

	saves   int
	saveErr error
	markErr error
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:   make(map[string]*checkpoint.TaskState),
		marks:   make(map[string]map[uint]int),
		skipped: make(map[string]map[uint]string),
	}
}

func copyState(s *checkpoint.TaskState) *checkpoint.TaskState {
	c := *s
	c.Stages = slices.Clone(s.Stages)
	c.Cursors = make(map[string]*checkpoint.CursorState, len(s.Cursors))
	for k, v := range s.Cursors {
		cur := *v
		c.Cursors[k] = &cur
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (s *fakeStore) LoadTask(_ context.Context, name string, stages []string) (*checkpoint.TaskState, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if st, ok := s.tasks[name]; ok {
		return copyState(st), nil
	}
	return checkpoint.NewTaskState(name, stages), nil
}

func (s *fakeStore) SaveTask(_ context.Context, state *checkpoint.TaskState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.tasks[state.Name] = copyState(state)
	return nil
}

func (s *fakeStore) MarkMigrated(_ context.Context, _, table string, id uint) error {
	if s.markErr != nil {
		return s.markErr
	}
	if s.marks[table] == nil {
		s.marks[table] = make(map[uint]int)
	}
	s.marks[table][id]++
	return nil
}

func (s *fakeStore) MigratedAmong(_ context.Context, table string, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	for _, id := range ids {
		if s.marks[table][id] > 0 {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeStore) RecordSkipped(_ context.Context, _, table string, id uint, reason string) error {
	if s.skipped[table] == nil {
		s.skipped[table] = make(map[uint]string)
	}
	s.skipped[table][id] = reason
	return nil
}

func (s *fakeStore) markedIDs(table string) []uint {
	return slices.Sorted(maps.Keys(s.marks[table]))
}

// fakeRecorder counts recorded metrics.
type fakeRecorder struct {
	rows     map[string]int
	errs     map[string]int
	outcomes []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{rows: make(map[string]int), errs: make(map[string]int)}
}

func (r *fakeRecorder) RecordRow(stage, result string) { r.rows[stage+"/"+result]++ }
func (r *fakeRecorder) RecordRowError(stage, kind string) { r.errs[stage+"/"+kind]++ }
func (r *fakeRecorder) RecordSlice(outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *fakeRecorder) RecordCursor(string, uint, uint) {}

// exampleSource is two nested categories, one image and one comment.
func exampleSource() *fakeSource {
	return &fakeSource{
		categories: []legacy.Category{
			{CatID: 1, CatName: "Root"},
			{CatID: 2, CatName: "Child", CatParentID: 1},
		},
		images: []legacy.Image{
			{ImageID: 101, CatID: 2, ImageName: "Heron", ImageMediaFile: "heron.jpg", ImageThumbFile: "heron.jpg",
				ImageVotes: 3, ImageRating: 4, ImageActive: 1},
		},
		comments: []legacy.Comment{
			{CommentID: 501, ImageID: 101, UserName: "alice", CommentHeadline: "Nice", CommentText: "Great shot"},
		},
	}
}

type harness struct {
	source  *fakeSource
	target  *fakeTarget
	store   *fakeStore
	assets  *fakeAssets
	clock   *fakeClock
	metrics *fakeRecorder
	cfg     Config
	logs    io.Writer // discarded when nil
}

func newHarness(source *fakeSource) *harness {
	return &harness{
		source:  source,
		target:  newFakeTarget(),
		store:   newFakeStore(),
		assets:  newFakeAssets(),
		clock:   newFakeClock(),
		metrics: newFakeRecorder(),
		cfg: Config{
			Name:            "4images",
			IntegrityPolicy: "skip",
			BatchSize:       2,
		},
	}
}

func (h *harness) runner() (*Runner, error) {
	log := discardLogger()
	if h.logs != nil {
		log = logger.NewSlogLogger(h.logs, logger.LogLevelInfo, time.UTC)
	}
	return NewRunner(h.cfg, Dependencies{
		Source:  h.source,
		Target:  h.target,
		Store:   h.store,
		Assets:  h.assets,
		Clock:   h.clock,
		Metrics: h.metrics,
		Logger:  log,
	})
}

func (h *harness) run(ctx context.Context) Result {
	r, err := h.runner()
	if err != nil {
		panic(err)
	}
	return r.RunSlice(ctx)
}
