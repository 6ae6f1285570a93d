// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/doi-tracker/internal/recordstore"
	"github.com/pdiddy/doi-tracker/pkg/types"
)

// --- test helpers ---

const header = "doi,scihub_available,downloaded,pymupdf_status,grobid_status\n"

func newTestTracker(t *testing.T, rows string) (*Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doi_processing_tracker.csv")
	if err := os.WriteFile(path, []byte(header+rows), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := New(types.TrackerConfig{File: path})
	t.Cleanup(func() { tr.Close() })
	return tr, path
}

func update(doi string, fields types.RecordUpdate) types.RecordUpdate {
	fields.DOI = doi
	return fields
}

func mustAll(t *testing.T, tr *Tracker) map[string]types.TrackerRecord {
	t.Helper()
	all, err := tr.All()
	if err != nil {
		t.Fatal(err)
	}
	return all
}

func fileContents(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// --- loading ---

func TestEnsureLoadedIdempotent(t *testing.T) {
	tr, path := newTestTracker(t, "10.1/a,yes,yes,success,success\n")

	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}

	// A second call must not reload: mutate the file behind the
	// tracker's back and verify the cache is untouched.
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}
	if n, _ := tr.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1 (no double load)", n)
	}
}

func TestEnsureLoadedConcurrent(t *testing.T) {
	tr, _ := newTestTracker(t, "10.1/a,yes,yes,success,success\n")

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.EnsureLoaded()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if n, _ := tr.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestLoadIsLazy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	tr := New(types.TrackerConfig{File: path})
	defer tr.Close()

	// Constructing the tracker must not touch the (missing) file; only
	// the first operation does, and then reports the missing file.
	_, _, err := tr.Get("10.1/a")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Get on missing file = %v, want fs.ErrNotExist", err)
	}
}

func TestMissingFileCreateMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	tr := New(types.TrackerConfig{File: path, CreateMissing: true})
	defer tr.Close()

	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(fileContents(t, path), "doi,") {
		t.Error("flush after CreateMissing should materialize the header")
	}
}

func TestCorruptFileDistinctFromMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	if err := os.WriteFile(path, []byte("not,a,tracker\nx,y,z\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// CreateMissing must not paper over a present-but-unreadable file.
	tr := New(types.TrackerConfig{File: path, CreateMissing: true})
	defer tr.Close()

	err := tr.EnsureLoaded()
	if !errors.Is(err, recordstore.ErrCorrupt) {
		t.Fatalf("EnsureLoaded = %v, want ErrCorrupt", err)
	}
}

func TestDuplicatesCollapsedObservable(t *testing.T) {
	tr, _ := newTestTracker(t,
		"10.1/x,unknown,no,not_attempted,not_attempted\n"+
			"10.1/x,yes,yes,not_attempted,not_attempted\n")

	n, err := tr.DuplicatesCollapsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DuplicatesCollapsed() = %d, want 1", n)
	}
	rec, ok, _ := tr.Get("10.1/x")
	if !ok || rec.Downloaded != types.AvailableYes {
		t.Errorf("last occurrence should win: %+v", rec)
	}
}

func TestSecondProcessLockedOut(t *testing.T) {
	tr, path := newTestTracker(t, "")
	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}

	other := New(types.TrackerConfig{File: path})
	defer other.Close()
	if err := other.EnsureLoaded(); !errors.Is(err, ErrLocked) {
		t.Fatalf("second owner EnsureLoaded = %v, want ErrLocked", err)
	}
}

// --- merge semantics ---

func TestBulkUpdateInsertAndMerge(t *testing.T) {
	tr, _ := newTestTracker(t, "10.1/a,yes,yes,not_attempted,not_attempted\n")

	res, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{PyMuPDFStatus: types.StatusSuccess}),
		update("10.1/b", types.RecordUpdate{Downloaded: types.AvailableNo}),
		{DOI: ""}, // skipped, not an error
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 || res.Updated != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 1/1/1", res)
	}

	a, _, _ := tr.Get("10.1/a")
	if a.PyMuPDFStatus != types.StatusSuccess || a.Downloaded != types.AvailableYes {
		t.Errorf("merge destroyed untouched fields: %+v", a)
	}

	b, ok, _ := tr.Get("10.1/b")
	if !ok {
		t.Fatal("10.1/b not inserted")
	}
	if b.SciHubAvailable != types.AvailableUnknown || b.PyMuPDFStatus != types.StatusNotAttempted {
		t.Errorf("new record must default to unknown/not_attempted: %+v", b)
	}
}

func TestBulkUpdateIdempotent(t *testing.T) {
	tr, _ := newTestTracker(t, "")

	batch := []types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableYes}),
		update("10.1/b", types.RecordUpdate{GrobidStatus: types.StatusFailed}),
	}
	if _, err := tr.BulkUpdate(batch, false); err != nil {
		t.Fatal(err)
	}
	once := mustAll(t, tr)

	if _, err := tr.BulkUpdate(batch, false); err != nil {
		t.Fatal(err)
	}
	twice := mustAll(t, tr)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("applying the same batch twice changed state:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestBulkUpdateInBatchOrdering(t *testing.T) {
	tr, _ := newTestTracker(t, "")

	// Later entries for the same DOI override earlier ones.
	_, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableNo}),
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableYes}),
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	rec, _, _ := tr.Get("10.1/a")
	if rec.Downloaded != types.AvailableYes {
		t.Errorf("Downloaded = %q, want yes (last write wins in batch)", rec.Downloaded)
	}
}

func TestPartialUpdateNonDestruction(t *testing.T) {
	tr, _ := newTestTracker(t, "10.1/a,yes,yes,success,failed\n")

	_, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableNo}),
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	rec, _, _ := tr.Get("10.1/a")
	if rec.PyMuPDFStatus != types.StatusSuccess || rec.GrobidStatus != types.StatusFailed {
		t.Errorf("extraction statuses changed by download-only update: %+v", rec)
	}
	if rec.Downloaded != types.AvailableNo {
		t.Errorf("Downloaded = %q, want no", rec.Downloaded)
	}
}

// --- durability ---

func TestDeferredWriteIsolation(t *testing.T) {
	tr, path := newTestTracker(t, "10.1/a,yes,yes,success,success\n")
	before := fileContents(t, path)

	_, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.2/b", types.RecordUpdate{Downloaded: types.AvailableYes}),
		update("10.2/c", types.RecordUpdate{Downloaded: types.AvailableYes}),
		update("10.2/d", types.RecordUpdate{Downloaded: types.AvailableYes}),
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	if got := fileContents(t, path); got != before {
		t.Fatal("deferred bulk update touched the file before flush")
	}

	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	after := fileContents(t, path)
	for _, doi := range []string{"10.2/b", "10.2/c", "10.2/d"} {
		if !strings.Contains(after, doi+",") {
			t.Errorf("flushed file lacks %s", doi)
		}
	}
}

func TestFlushNoopWhenClean(t *testing.T) {
	tr, path := newTestTracker(t, "10.1/a,yes,yes,success,success\n")
	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}

	info1, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Error("clean flush rewrote the file")
	}
}

func TestImmediateWritePersistsOnce(t *testing.T) {
	tr, path := newTestTracker(t, "")

	_, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableYes}),
		update("10.1/b", types.RecordUpdate{Downloaded: types.AvailableNo}),
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	content := fileContents(t, path)
	if !strings.Contains(content, "10.1/a,") || !strings.Contains(content, "10.1/b,") {
		t.Errorf("immediate bulk update not persisted:\n%s", content)
	}
}

func TestFailedSaveLeavesStateAndRetryRecovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "tracker.csv")
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := New(types.TrackerConfig{File: path, DisableLock: true})
	defer tr.Close()
	if err := tr.EnsureLoaded(); err != nil {
		t.Fatal(err)
	}

	// Make the save fail by removing the directory out from under it.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	_, err := tr.BulkUpdate([]types.RecordUpdate{
		update("10.1/a", types.RecordUpdate{Downloaded: types.AvailableYes}),
	}, false)
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("BulkUpdate = %v, want ErrSaveFailed", err)
	}

	// The merge survived in memory.
	rec, ok, getErr := tr.Get("10.1/a")
	if getErr != nil || !ok || rec.Downloaded != types.AvailableYes {
		t.Fatalf("in-memory state lost after failed save: %+v ok=%v err=%v", rec, ok, getErr)
	}

	// Restore the environment; a bare Flush retry is sufficient.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fileContents(t, path), "10.1/a,") {
		t.Error("flush retry did not persist the pending batch")
	}
}

// --- concurrency ---

func TestConcurrentBatchAtomicity(t *testing.T) {
	tr, _ := newTestTracker(t, "")

	batchA := make([]types.RecordUpdate, 0, 50)
	batchB := make([]types.RecordUpdate, 0, 50)
	for i := 0; i < 50; i++ {
		batchA = append(batchA, update(
			"10.1/a"+string(rune('0'+i%10))+string(rune('a'+i/10)),
			types.RecordUpdate{Downloaded: types.AvailableYes}))
		batchB = append(batchB, update(
			"10.2/b"+string(rune('0'+i%10))+string(rune('a'+i/10)),
			types.RecordUpdate{Downloaded: types.AvailableNo}))
	}

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); _, errA = tr.BulkUpdate(batchA, true) }()
	go func() { defer wg.Done(); _, errB = tr.BulkUpdate(batchB, true) }()
	wg.Wait()

	if errA != nil || errB != nil {
		t.Fatalf("bulk updates failed: %v / %v", errA, errB)
	}

	for _, batch := range [][]types.RecordUpdate{batchA, batchB} {
		for _, u := range batch {
			if _, ok, err := tr.Get(u.DOI); err != nil || !ok {
				t.Fatalf("key %s from a completed batch not visible (ok=%v, err=%v)", u.DOI, ok, err)
			}
		}
	}
}

// --- maintenance ---

func TestRemoveIdempotent(t *testing.T) {
	tr, path := newTestTracker(t,
		"10.1/a,yes,yes,success,success\n10.1/b,no,no,not_attempted,not_attempted\n")

	removed, err := tr.Remove([]string{"10.1/a", "10.9/absent"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// Removing again is a no-op, not an error.
	removed, err = tr.Remove([]string{"10.1/a"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("second remove = %d, want 0", removed)
	}

	if strings.Contains(fileContents(t, path), "10.1/a,") {
		t.Error("removed record still on disk")
	}
}

// --- end-to-end scenario ---

// Database holds {A, B, C}; tracker holds {A}. A sync computes {B, C},
// decodes legacy statuses (both yield the no-data sentinel), submits them
// with immediate persistence. Both must report full defaults and the file
// must contain exactly three rows.
func TestSyncScenario(t *testing.T) {
	tr, path := newTestTracker(t, "10.1/A,yes,yes,success,success\n")

	newDOIs := []types.RecordUpdate{
		update("10.1/B", types.RecordUpdate{}), // "not required - already populated" -> sentinel -> defaults
		update("10.1/C", types.RecordUpdate{}), // no status at all
	}
	if _, err := tr.BulkUpdate(newDOIs, false); err != nil {
		t.Fatal(err)
	}

	for _, doi := range []string{"10.1/B", "10.1/C"} {
		rec, ok, err := tr.Get(doi)
		if err != nil || !ok {
			t.Fatalf("%s not tracked after sync", doi)
		}
		want := types.NewTrackerRecord(doi)
		if rec != want {
			t.Errorf("%s = %+v, want all-unknown defaults", doi, rec)
		}
	}

	lines := strings.Split(strings.TrimSpace(fileContents(t, path)), "\n")
	if len(lines) != 4 { // header + 3 records
		t.Errorf("persisted file has %d rows, want header + 3:\n%s", len(lines)-1, fileContents(t, path))
	}
}
