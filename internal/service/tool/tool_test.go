package tool

import (
	"context"
	"testing"

	"github.com/CMD-Gremlin/wobble/internal/model"
	"github.com/CMD-Gremlin/wobble/internal/service/chunker"
	"github.com/CMD-Gremlin/wobble/internal/service/generate"
	"gorm.io/gorm"
)

// ========== 测试用假件 ==========

type fakeStore struct {
	tools    map[string]*model.Tool
	versions []*model.ToolVersion
}

func newFakeStore() *fakeStore {
	return &fakeStore{tools: make(map[string]*model.Tool)}
}

func (f *fakeStore) Create(tool *model.Tool) error {
	f.tools[tool.ID] = tool
	return nil
}

func (f *fakeStore) GetByID(id string) (*model.Tool, error) {
	t, ok := f.tools[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetByUserAndName(userID, name string) (*model.Tool, error) {
	for _, t := range f.tools {
		if t.UserID == userID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListByUser(userID string) ([]*model.Tool, error) {
	var out []*model.Tool
	for _, t := range f.tools {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(tool *model.Tool) error {
	f.tools[tool.ID] = tool
	return nil
}

func (f *fakeStore) Delete(id string) error {
	delete(f.tools, id)
	kept := f.versions[:0]
	for _, v := range f.versions {
		if v.ToolID != id {
			kept = append(kept, v)
		}
	}
	f.versions = kept
	return nil
}

func (f *fakeStore) CreateVersion(version *model.ToolVersion) error {
	f.versions = append(f.versions, version)
	return nil
}

func (f *fakeStore) GetVersion(toolID string, version int) (*model.ToolVersion, error) {
	for _, v := range f.versions {
		if v.ToolID == toolID && v.Version == version {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ListVersions(toolID string) ([]*model.ToolVersion, error) {
	var out []*model.ToolVersion
	for _, v := range f.versions {
		if v.ToolID == toolID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeIndex struct {
	stored  []string
	deleted []string
}

func (f *fakeIndex) Store(ctx context.Context, chunks []chunker.Chunk) ([]string, error) {
	ids := chunker.IDs(chunks)
	f.stored = append(f.stored, ids...)
	return ids, nil
}

func (f *fakeIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

// ========== 保存测试 ==========

func TestSaveGenerated_NewTool(t *testing.T) {
	store, index := newFakeStore(), &fakeIndex{}
	svc := NewService(store, index)

	res := &generate.Result{ToolName: "counter", HTML: "<div></div>", Script: "function inc() { n++; }"}
	tool, err := svc.SaveGenerated(context.Background(), "user-1", res)
	if err != nil {
		t.Fatalf("SaveGenerated error: %v", err)
	}

	if tool.Visibility != model.VisibilityPrivate {
		t.Errorf("visibility = %s, new tools must start private", tool.Visibility)
	}
	if tool.CurrentVersion != 1 {
		t.Errorf("version = %d, want 1", tool.CurrentVersion)
	}
	if len(store.versions) != 1 || store.versions[0].Version != 1 {
		t.Errorf("versions = %+v, want one snapshot at v1", store.versions)
	}
	if len(index.stored) == 0 {
		t.Error("chunks must be indexed")
	}
}

func TestSaveGenerated_UpsertByUserAndName(t *testing.T) {
	store, index := newFakeStore(), &fakeIndex{}
	svc := NewService(store, index)
	ctx := context.Background()

	first := &generate.Result{ToolName: "counter", HTML: "<div>v1</div>", Script: "function a() { return 1; }"}
	second := &generate.Result{ToolName: "counter", HTML: "<div>v2</div>", Script: "function b() { return 2; }"}

	t1, _ := svc.SaveGenerated(ctx, "user-1", first)
	t2, err := svc.SaveGenerated(ctx, "user-1", second)
	if err != nil {
		t.Fatalf("SaveGenerated error: %v", err)
	}

	if t2.ID != t1.ID {
		t.Error("same (user, name) must update the existing tool, not create a new one")
	}
	if t2.CurrentVersion != 2 {
		t.Errorf("version = %d, want 2", t2.CurrentVersion)
	}
	if len(store.versions) != 2 {
		t.Errorf("got %d snapshots, want 2", len(store.versions))
	}

	// 旧代码的块必须按原拼接重算 id 摘除
	oldIDs := chunker.IDs(chunker.Split(chunker.Compose(first.HTML, first.Script), chunker.DefaultFile))
	if len(index.deleted) != len(oldIDs) {
		t.Fatalf("deleted %d chunk ids, want %d", len(index.deleted), len(oldIDs))
	}
	for i, id := range oldIDs {
		if index.deleted[i] != id {
			t.Errorf("deleted id %d = %s, want %s", i, index.deleted[i], id)
		}
	}
}

func TestSaveGenerated_DifferentUsersSameName(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	res := &generate.Result{ToolName: "counter", HTML: "<div></div>", Script: "x()"}
	t1, _ := svc.SaveGenerated(ctx, "user-1", res)
	t2, _ := svc.SaveGenerated(ctx, "user-2", res)
	if t1.ID == t2.ID {
		t.Error("tools are namespaced per user, same name must not collide")
	}
}

func TestSaveGenerated_NilIndexDegrades(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	res := &generate.Result{ToolName: "counter", HTML: "<div></div>", Script: "x()"}
	if _, err := svc.SaveGenerated(context.Background(), "user-1", res); err != nil {
		t.Errorf("unconfigured index must not fail the save: %v", err)
	}
}

// ========== 修补测试 ==========

func TestApplyPatch_AppendsVersion(t *testing.T) {
	store, index := newFakeStore(), &fakeIndex{}
	svc := NewService(store, index)
	ctx := context.Background()

	tool, _ := svc.SaveGenerated(ctx, "user-1", &generate.Result{ToolName: "counter", HTML: "<div>v1</div>", Script: "a()"})
	if err := svc.ApplyPatch(ctx, tool, &generate.PatchResult{HTML: "<div>v2</div>", Script: "b()"}); err != nil {
		t.Fatalf("ApplyPatch error: %v", err)
	}

	got, _ := store.GetByID(tool.ID)
	if got.HTML != "<div>v2</div>" || got.CurrentVersion != 2 {
		t.Errorf("tool after patch = %+v", got)
	}
	if v, err := store.GetVersion(tool.ID, 2); err != nil || v.Script != "b()" {
		t.Errorf("snapshot v2 = %+v, %v", v, err)
	}
}

// ========== 读取与删除测试 ==========

func TestGet_WrongOwnerNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	tool, _ := svc.SaveGenerated(ctx, "user-1", &generate.Result{ToolName: "counter", HTML: "<div></div>", Script: "x()"})
	if _, err := svc.Get(ctx, "user-2", tool.ID); err != ErrNotFound {
		t.Errorf("err = %v, foreign tools must read as not found", err)
	}
}

func TestGetPublic_PrivateHidden(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	tool, _ := svc.SaveGenerated(ctx, "user-1", &generate.Result{ToolName: "counter", HTML: "<div></div>", Script: "x()"})
	if _, err := svc.GetPublic(ctx, tool.ID); err != ErrNotFound {
		t.Errorf("err = %v, private tools must not be publicly readable", err)
	}

	tool.Visibility = model.VisibilityUnlisted
	store.Update(tool)
	if _, err := svc.GetPublic(ctx, tool.ID); err != nil {
		t.Errorf("unlisted tool should be readable: %v", err)
	}
}

func TestDelete_RemovesIndexedChunks(t *testing.T) {
	store, index := newFakeStore(), &fakeIndex{}
	svc := NewService(store, index)
	ctx := context.Background()

	res := &generate.Result{ToolName: "counter", HTML: "<div id=\"app\"></div>", Script: "function render() { return 1; }"}
	tool, _ := svc.SaveGenerated(ctx, "user-1", res)

	if err := svc.Delete(ctx, "user-1", tool.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	// 删除摘掉的 id 必须与索引写入的完全一致
	if len(index.deleted) != len(index.stored) {
		t.Fatalf("deleted %d ids, stored %d", len(index.deleted), len(index.stored))
	}
	for i := range index.stored {
		if index.deleted[i] != index.stored[i] {
			t.Errorf("id %d: deleted %s, stored %s", i, index.deleted[i], index.stored[i])
		}
	}
	if _, err := store.GetByID(tool.ID); err == nil {
		t.Error("tool row must be gone")
	}
	if vs, _ := store.ListVersions(tool.ID); len(vs) != 0 {
		t.Error("versions must be gone")
	}
}

func TestDelete_MissingToolNotFound(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	if err := svc.Delete(context.Background(), "user-1", "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
