package register

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eo-cat/sentinel-stac/internal/odata"
	"github.com/eo-cat/sentinel-stac/internal/report"
	"github.com/eo-cat/sentinel-stac/internal/stac"
	"github.com/eo-cat/sentinel-stac/internal/storage"
)

const testTitle = "S2A_MSIL2A_20240101T000000"

type fakeCatalogue struct {
	doc     odata.NodeDoc
	nodeErr error
	files   map[string]string // suffix of URL -> content
}

func (f *fakeCatalogue) ProductNode(context.Context, string) (odata.NodeDoc, error) {
	return f.doc, f.nodeErr
}

func (f *fakeCatalogue) Download(_ context.Context, url string, w io.Writer) error {
	for suffix, content := range f.files {
		if strings.HasSuffix(url, suffix) {
			_, err := io.WriteString(w, content)
			return err
		}
	}
	return fmt.Errorf("unexpected download %s", url)
}

type fakePusher struct {
	pushed     [][]byte
	collection string
	overwrite  bool
	err        error
}

func (f *fakePusher) Push(_ context.Context, coll string, item []byte, overwrite bool) error {
	f.collection = coll
	f.overwrite = overwrite
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, item)
	return nil
}

// fakeBuilder echoes an item referencing a file inside the work dir,
// so href rewriting has something to do.
type fakeBuilder struct {
	err error
}

func (f *fakeBuilder) BuildItem(_ context.Context, workDir string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	item := fmt.Sprintf(`{"id":%q,"assets":{"manifest":{"href":%q}}}`,
		testTitle, filepath.Join(workDir, "manifest.safe"))
	return []byte(item), nil
}

func testRegistrar(t *testing.T, cat *fakeCatalogue, pusher *fakePusher, builder *fakeBuilder) (*Registrar, string) {
	t.Helper()
	dir := t.TempDir()
	reports := report.New(filepath.Join(dir, "s_"), filepath.Join(dir, "e_")).
		WithClock(func() time.Time { return time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC) })
	store := &storage.LocalStore{Dir: filepath.Join(dir, "items")}
	return New(cat, pusher, builder, store, reports, nil), dir
}

func defaultCatalogue() *fakeCatalogue {
	return &fakeCatalogue{
		doc: odata.NodeDoc{
			Title:      testTitle,
			ProductURL: "https://dhr1.example.org/odata/v1/Products('u')/Nodes('" + testTitle + "')",
		},
		files: map[string]string{"Nodes('manifest.safe')/$value": "<manifest/>"},
	}
}

func readReport(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestRegisterPushAndSave(t *testing.T) {
	pusher := &fakePusher{}
	r, dir := testRegistrar(t, defaultCatalogue(), pusher, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Push: true, Save: true})
	require.NoError(t, err)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "sentinel-2-l2a", pusher.collection)
	pushed := string(pusher.pushed[0])
	assert.Contains(t, pushed, "Nodes('manifest.safe')/$value",
		"hrefs must point at the catalogue after rewriting")
	assert.NotContains(t, pushed, os.TempDir())

	saved, err := os.ReadFile(filepath.Join(dir, "items", testTitle+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), testTitle)

	assert.Equal(t, "sentinel-2-l2a,prod-1\n", readReport(t, dir, "s_2024-07-02"))
	assert.Equal(t, "", readReport(t, dir, "e_2024-07-02"))
}

func TestRegisterConflictSkips(t *testing.T) {
	pusher := &fakePusher{err: stac.ErrConflict}
	r, dir := testRegistrar(t, defaultCatalogue(), pusher, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Push: true})
	require.NoError(t, err, "an existing entry is a skip, not a failure")

	assert.Contains(t, readReport(t, dir, "e_2024-07-02"), "Skipped existing product")
	assert.Equal(t, "", readReport(t, dir, "s_2024-07-02"))
}

func TestRegisterNodeFetchFailure(t *testing.T) {
	cat := defaultCatalogue()
	cat.nodeErr = errors.New("catalogue down")
	r, dir := testRegistrar(t, cat, &fakePusher{}, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Push: true})
	require.Error(t, err)
	assert.Contains(t, readReport(t, dir, "e_2024-07-02"), "catalogue down")
}

func TestRegisterUnknownCollection(t *testing.T) {
	cat := defaultCatalogue()
	cat.doc.Title = "UNKNOWN_PRODUCT_NAME"
	r, dir := testRegistrar(t, cat, &fakePusher{}, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Push: true})
	require.Error(t, err)
	assert.Contains(t, readReport(t, dir, "e_2024-07-02"), "no known collection")
}

func TestRegisterBuilderFailure(t *testing.T) {
	r, dir := testRegistrar(t, defaultCatalogue(), &fakePusher{}, &fakeBuilder{err: errors.New("generator exploded")})

	err := r.Register(context.Background(), "prod-1", Options{Push: true})
	require.Error(t, err)
	assert.Contains(t, readReport(t, dir, "e_2024-07-02"), "generator exploded")
}

func TestRegisterPushFailure(t *testing.T) {
	pusher := &fakePusher{err: errors.New("503 from catalogue")}
	r, dir := testRegistrar(t, defaultCatalogue(), pusher, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Push: true})
	require.Error(t, err)
	assert.Contains(t, readReport(t, dir, "e_2024-07-02"), "503 from catalogue")
}

func TestRegisterSaveOnly(t *testing.T) {
	pusher := &fakePusher{}
	r, dir := testRegistrar(t, defaultCatalogue(), pusher, &fakeBuilder{})

	err := r.Register(context.Background(), "prod-1", Options{Save: true})
	require.NoError(t, err)
	assert.Empty(t, pusher.pushed, "save-only must not touch the STAC catalogue")

	_, statErr := os.Stat(filepath.Join(dir, "items", testTitle+".json"))
	assert.NoError(t, statErr)
}
