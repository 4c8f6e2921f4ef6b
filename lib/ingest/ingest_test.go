// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/fairuse/warcindex/lib/clock"
	"github.com/fairuse/warcindex/lib/ingest"
	"github.com/fairuse/warcindex/lib/megawarc"
	"github.com/fairuse/warcindex/lib/searchindex"
	"github.com/fairuse/warcindex/lib/testutil"
	"github.com/fairuse/warcindex/lib/warc"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// writeArchive builds a megawarc from records under the trained
// dictionary and writes it to a temporary file.
func writeArchive(t *testing.T, records ...[]byte) string {
	t.Helper()
	data := testutil.Archive(t, records, testutil.ArchiveOptions{
		Dictionary: testutil.TrainedDictionary(t),
	})
	return testutil.WriteArchive(t, "crawl.megawarc.warc.zst", data)
}

func pages(host string, count int) [][]byte {
	records := make([][]byte, count)
	for i := range records {
		records[i] = testutil.ResponseRecord(testutil.UniqueURI(host), "Page about lanterns", "lantern wick glass repair notes")
	}
	return records
}

func options(path string, sink searchindex.Sink) ingest.Options {
	return ingest.Options{
		SourcePath: path,
		Sink:       sink,
		Clock:      clock.Fake(epoch),
	}
}

func searchCount(t *testing.T, sink searchindex.Sink, query string) int {
	t.Helper()
	hits, err := sink.Search(context.Background(), query, 0)
	if err != nil {
		t.Fatalf("Search(%q): %v", query, err)
	}
	return len(hits)
}

func checkInvariants(t *testing.T, summary ingest.Summary) {
	t.Helper()
	if summary.TotalSeen != summary.Parsed+summary.ParseFailures {
		t.Errorf("TotalSeen %d != Parsed %d + ParseFailures %d", summary.TotalSeen, summary.Parsed, summary.ParseFailures)
	}
	if summary.Skipped > summary.TotalSeen {
		t.Errorf("Skipped %d > TotalSeen %d", summary.Skipped, summary.TotalSeen)
	}
}

func TestRunIndexesResponses(t *testing.T) {
	path := writeArchive(t,
		testutil.WarcinfoRecord(),
		testutil.RequestRecord("http://harbor.example/tides"),
		testutil.ResponseRecord("http://harbor.example/tides", "Harbor tide tables", "high water at dawn"),
		testutil.ResponseRecord("http://river.example/flood", "River flood gauges", "gauge readings upstream"),
		testutil.ResponseRecord("http://quarry.example/quartz", "Quartz crystals", "veins in granite"),
	)
	sink := searchindex.NewMemory()

	summary, err := ingest.Run(context.Background(), options(path, sink))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Status != ingest.StatusCompleted {
		t.Errorf("Status = %q, want completed", summary.Status)
	}
	if summary.TotalSeen != 5 || summary.Parsed != 5 || summary.Skipped != 2 || summary.Indexed != 3 {
		t.Errorf("summary counters = %+v, want 5 seen, 5 parsed, 2 skipped, 3 indexed", summary)
	}
	if summary.Commits != 1 {
		t.Errorf("Commits = %d, want 1", summary.Commits)
	}
	if summary.DictionaryKind != "raw" || summary.DictionaryFingerprint == "" {
		t.Errorf("dictionary = %q %q", summary.DictionaryKind, summary.DictionaryFingerprint)
	}
	if summary.RunID == "" || !summary.StartedAt.Equal(epoch) || summary.Duration() != 0 {
		t.Errorf("run identity = %q started %v duration %v", summary.RunID, summary.StartedAt, summary.Duration())
	}
	if summary.CompressedBytes == 0 || summary.DecodedBytes == 0 {
		t.Errorf("byte counters not reported: %+v", summary)
	}
	checkInvariants(t, summary)

	hits, err := sink.Search(context.Background(), "tide", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits for tide, want 1", len(hits))
	}
	document := hits[0].Document
	if document.TargetURI != "http://harbor.example/tides" || document.Title != "Harbor tide tables" {
		t.Errorf("hit = %+v", document)
	}
	if document.Metadata["status"] != "200" || document.Metadata["media_type"] != "text/html" ||
		document.Metadata["archive"] != filepath.Base(path) {
		t.Errorf("metadata = %v", document.Metadata)
	}
	if !document.Date.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", document.Date)
	}

	runs, err := sink.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Indexed != 3 || runs[0].Status != ingest.StatusCompleted {
		t.Errorf("ledger = %+v", runs)
	}
}

func TestRunSkipsDuplicateCaptures(t *testing.T) {
	capture := testutil.ResponseRecord("http://meadow.example/", "Alpine meadow", "flowers in summer")
	path := writeArchive(t, capture, capture)
	sink := searchindex.NewMemory()

	summary, err := ingest.Run(context.Background(), options(path, sink))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Indexed != 1 || summary.Duplicates != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 indexed, 1 duplicate skipped", summary)
	}
	if got := searchCount(t, sink, "meadow"); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestRunCommitsInBatches(t *testing.T) {
	path := writeArchive(t, pages("batch.example", 5)...)
	sink := searchindex.NewMemory()
	runOptions := options(path, sink)
	runOptions.BatchSize = 2

	summary, err := ingest.Run(context.Background(), runOptions)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Indexed != 5 || summary.Commits != 3 {
		t.Errorf("Indexed %d Commits %d, want 5 and 3", summary.Indexed, summary.Commits)
	}
	if got := searchCount(t, sink, "lantern"); got != 5 {
		t.Errorf("hits = %d, want 5", got)
	}
}

func TestRunTruncatedPayload(t *testing.T) {
	first := testutil.ResponseRecord("http://a.example/", "Anchor", "anchor chain")
	second := testutil.ResponseRecord("http://b.example/", "Beacon", "beacon light")
	data := testutil.Archive(t, [][]byte{first, second[:len(second)-30]}, testutil.ArchiveOptions{
		Dictionary: megawarc.RawDictionaryMagic[:],
	})
	path := testutil.WriteArchive(t, "truncated.megawarc", data)
	sink := searchindex.NewMemory()

	summary, err := ingest.Run(context.Background(), options(path, sink))
	if !warc.IsParseError(err, warc.TruncatedBody) {
		t.Fatalf("Run error = %v, want TruncatedBody", err)
	}
	if summary.Status != ingest.StatusFailed || summary.Error == "" {
		t.Errorf("Status %q Error %q, want failed with a message", summary.Status, summary.Error)
	}
	if summary.TotalSeen != 2 || summary.Parsed != 1 || summary.ParseFailures != 1 {
		t.Errorf("counters = %+v, want 2 seen, 1 parsed, 1 failure", summary)
	}
	checkInvariants(t, summary)

	// The first record was only pending; the failure discarded it.
	if summary.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0 after discard", summary.Indexed)
	}
	if got := searchCount(t, sink, "anchor"); got != 0 {
		t.Errorf("hits = %d, want 0", got)
	}
	runs, _ := sink.Runs(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != ingest.StatusFailed {
		t.Errorf("ledger = %+v, want one failed run", runs)
	}
}

func TestRunMalformedHeaderPolicy(t *testing.T) {
	good := testutil.ResponseRecord("http://a.example/", "Orchard", "orchard walnut")
	bad := []byte("WARC/1.0\r\nWARC-Type response\r\nContent-Length: 2\r\n\r\nxx\r\n\r\n")
	after := testutil.ResponseRecord("http://c.example/", "Orchard again", "orchard pepper")
	path := writeArchive(t, good, bad, after)

	t.Run("abort", func(t *testing.T) {
		sink := searchindex.NewMemory()
		summary, err := ingest.Run(context.Background(), options(path, sink))
		if !warc.IsParseError(err, warc.MalformedHeader) {
			t.Fatalf("Run error = %v, want MalformedHeader", err)
		}
		if summary.Status != ingest.StatusFailed || summary.TotalSeen != 2 {
			t.Errorf("summary = %+v", summary)
		}
		if got := searchCount(t, sink, "orchard"); got != 0 {
			t.Errorf("hits = %d, want 0", got)
		}
	})

	t.Run("resync", func(t *testing.T) {
		sink := searchindex.NewMemory()
		runOptions := options(path, sink)
		runOptions.MalformedHeaders = ingest.MalformedResync
		summary, err := ingest.Run(context.Background(), runOptions)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if summary.TotalSeen != 3 || summary.ParseFailures != 1 || summary.Indexed != 2 {
			t.Errorf("summary = %+v, want 3 seen, 1 failure, 2 indexed", summary)
		}
		checkInvariants(t, summary)
		if got := searchCount(t, sink, "orchard"); got != 2 {
			t.Errorf("hits = %d, want 2", got)
		}
	})
}

func TestRunRejectsForeignFile(t *testing.T) {
	plain := testutil.Concat([][]byte{testutil.ResponseRecord("http://a.example/", "A", "plain warc")})
	path := testutil.WriteArchive(t, "plain.warc", plain)
	sink := searchindex.NewMemory()

	summary, err := ingest.Run(context.Background(), options(path, sink))
	if !megawarc.IsFormatError(err, megawarc.UnsupportedContainer) {
		t.Fatalf("Run error = %v, want UnsupportedContainer", err)
	}
	if summary.Status != ingest.StatusFailed || summary.TotalSeen != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunMissingFile(t *testing.T) {
	sink := searchindex.NewMemory()
	summary, err := ingest.Run(context.Background(), options(filepath.Join(t.TempDir(), "absent"), sink))
	if err == nil {
		t.Fatal("Run succeeded on a missing file")
	}
	if summary.Status != ingest.StatusFailed {
		t.Errorf("Status = %q, want failed", summary.Status)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	if _, err := ingest.Run(context.Background(), ingest.Options{}); err == nil {
		t.Fatal("Run with no options succeeded")
	}
	_, err := ingest.Run(context.Background(), ingest.Options{SourcePath: "x", Sink: searchindex.NewMemory(), BatchSize: -1})
	if err == nil || !strings.Contains(err.Error(), "BatchSize") {
		t.Errorf("error = %v, want BatchSize complaint", err)
	}
	_, err = ingest.Run(context.Background(), ingest.Options{SourcePath: "x", Sink: searchindex.NewMemory(), MaxStackBytes: 4096})
	if err == nil || !strings.Contains(err.Error(), "MaxStackBytes") {
		t.Errorf("error = %v, want MaxStackBytes complaint", err)
	}
}

// maxStack reads the process stack ceiling.
func maxStack() int {
	current := debug.SetMaxStack(1 << 30)
	debug.SetMaxStack(current)
	return current
}

// stackCeilingSink records the stack ceiling in effect when documents
// arrive.
type stackCeilingSink struct {
	*searchindex.Memory
	ceilings []int
}

func (sink *stackCeilingSink) Add(ctx context.Context, document searchindex.Document) error {
	sink.ceilings = append(sink.ceilings, maxStack())
	return sink.Memory.Add(ctx, document)
}

func TestRunAppliesStackCeiling(t *testing.T) {
	path := writeArchive(t, pages("deep.example", 2)...)
	before := maxStack()
	want := before + 64<<20

	sink := &stackCeilingSink{Memory: searchindex.NewMemory()}
	runOptions := options(path, sink)
	runOptions.MaxStackBytes = int64(want)
	summary, err := ingest.Run(context.Background(), runOptions)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Indexed != 2 || len(sink.ceilings) != 2 {
		t.Fatalf("indexed %d, saw %d adds", summary.Indexed, len(sink.ceilings))
	}
	for _, ceiling := range sink.ceilings {
		if ceiling != want {
			t.Errorf("stack ceiling during the pass = %d, want %d", ceiling, want)
		}
	}
	if after := maxStack(); after != before {
		t.Errorf("stack ceiling after the pass = %d, want %d restored", after, before)
	}
}

// cancellingSink cancels the run's context after a number of
// successful additions.
type cancellingSink struct {
	*searchindex.Memory
	after  int
	added  int
	cancel context.CancelFunc
}

func (sink *cancellingSink) Add(ctx context.Context, document searchindex.Document) error {
	if err := sink.Memory.Add(ctx, document); err != nil {
		return err
	}
	sink.added++
	if sink.added == sink.after {
		sink.cancel()
	}
	return nil
}

func TestRunCancellationDiscardsBatch(t *testing.T) {
	path := writeArchive(t, pages("cancel.example", 6)...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{Memory: searchindex.NewMemory(), after: 2, cancel: cancel}

	summary, err := ingest.Run(ctx, options(path, sink))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if summary.Status != ingest.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", summary.Status)
	}
	if summary.TotalSeen != 2 || summary.Indexed != 0 {
		t.Errorf("summary = %+v, want 2 seen and nothing indexed", summary)
	}
	if got := searchCount(t, sink, "lantern"); got != 0 {
		t.Errorf("hits = %d, want 0", got)
	}

	// The ledger entry is written even though ctx is cancelled.
	runs, err := sink.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != ingest.StatusCancelled {
		t.Errorf("ledger = %+v", runs)
	}
}

func TestRunCancellationKeepsCommittedBatches(t *testing.T) {
	path := writeArchive(t, pages("partial.example", 6)...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{Memory: searchindex.NewMemory(), after: 3, cancel: cancel}
	runOptions := options(path, sink)
	runOptions.BatchSize = 2

	summary, err := ingest.Run(ctx, runOptions)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if summary.Indexed != 2 || summary.Commits != 1 {
		t.Errorf("Indexed %d Commits %d, want the first batch of 2 only", summary.Indexed, summary.Commits)
	}
	if got := searchCount(t, sink, "lantern"); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

type panickingSink struct {
	*searchindex.Memory
}

func (panickingSink) Add(context.Context, searchindex.Document) error {
	panic("index exploded")
}

func TestRunPropagatesWorkerPanic(t *testing.T) {
	path := writeArchive(t, pages("panic.example", 1)...)
	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("Run returned normally, want a panic")
		}
		if !strings.Contains(fmt.Sprint(recovered), "index exploded") {
			t.Errorf("panic value %v does not carry the original message", recovered)
		}
	}()
	ingest.Run(context.Background(), options(path, panickingSink{searchindex.NewMemory()}))
}

type failingSink struct {
	*searchindex.Memory
}

func (failingSink) Commit(context.Context) error { return errors.New("disk full") }

func TestRunSinkFailure(t *testing.T) {
	path := writeArchive(t, pages("full.example", 2)...)
	summary, err := ingest.Run(context.Background(), options(path, failingSink{searchindex.NewMemory()}))
	var sinkError *ingest.SinkError
	if !errors.As(err, &sinkError) || sinkError.Op != "commit" {
		t.Fatalf("Run error = %v, want a commit SinkError", err)
	}
	if summary.Status != ingest.StatusFailed || summary.Indexed != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

// blockingSink holds the first Add until released.
type blockingSink struct {
	*searchindex.Memory
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (sink *blockingSink) Add(ctx context.Context, document searchindex.Document) error {
	if !sink.once {
		sink.once = true
		sink.entered <- struct{}{}
		<-sink.release
	}
	return sink.Memory.Add(ctx, document)
}

// messageHandler forwards log messages with a given text.
type messageHandler struct {
	message string
	records chan slog.Record
}

func (handler messageHandler) Enabled(context.Context, slog.Level) bool { return true }

func (handler messageHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Message == handler.message {
		select {
		case handler.records <- record:
		default:
		}
	}
	return nil
}

func (handler messageHandler) WithAttrs([]slog.Attr) slog.Handler { return handler }
func (handler messageHandler) WithGroup(string) slog.Handler      { return handler }

func TestRunReportsProgress(t *testing.T) {
	path := writeArchive(t, pages("progress.example", 3)...)
	fake := clock.Fake(epoch)
	sink := &blockingSink{
		Memory:  searchindex.NewMemory(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	progress := make(chan slog.Record, 1)

	runOptions := options(path, sink)
	runOptions.Clock = fake
	runOptions.ProgressInterval = time.Minute
	runOptions.Logger = slog.New(messageHandler{message: "ingest progress", records: progress})

	done := make(chan error, 1)
	go func() {
		_, err := ingest.Run(context.Background(), runOptions)
		done <- err
	}()

	testutil.RequireReceive(t, sink.entered, 5*time.Second, "waiting for the first Add")
	fake.WaitForTickers(1)
	fake.Advance(time.Minute)

	record := testutil.RequireReceive(t, progress, 5*time.Second, "waiting for a progress line")
	var totalSeen uint64
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "total_seen" {
			totalSeen = attr.Value.Uint64()
		}
		return true
	})
	if totalSeen != 0 {
		// The worker is blocked inside the first record, whose
		// counters are published only once it is handled.
		t.Errorf("total_seen = %d, want 0 while the first record is in flight", totalSeen)
	}

	close(sink.release)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fake.Running() != 0 {
		t.Errorf("progress ticker still running after Run returned")
	}
}

func TestRunAll(t *testing.T) {
	first := writeArchive(t, testutil.ResponseRecord("http://one.example/", "Copper kettle", "copper"))
	foreign := testutil.WriteArchive(t, "foreign.warc", []byte("WARC/1.0\r\n"))
	second := writeArchive(t, testutil.ResponseRecord("http://two.example/", "Copper ladder", "copper"))
	paths := []string{first, foreign, second}

	t.Run("keep going", func(t *testing.T) {
		sink := searchindex.NewMemory()
		summaries, err := ingest.RunAll(context.Background(), paths, options("", sink), true)
		if !megawarc.IsFormatError(err, megawarc.UnsupportedContainer) {
			t.Fatalf("RunAll error = %v, want the foreign file's FormatError", err)
		}
		if !strings.Contains(err.Error(), foreign) {
			t.Errorf("error %q does not name the failing archive", err)
		}
		if len(summaries) != 3 {
			t.Fatalf("got %d summaries, want 3", len(summaries))
		}
		statuses := []string{summaries[0].Status, summaries[1].Status, summaries[2].Status}
		want := []string{ingest.StatusCompleted, ingest.StatusFailed, ingest.StatusCompleted}
		for i := range want {
			if statuses[i] != want[i] {
				t.Errorf("statuses = %v, want %v", statuses, want)
				break
			}
		}
		if got := searchCount(t, sink, "copper"); got != 2 {
			t.Errorf("hits = %d, want 2", got)
		}
	})

	t.Run("stop at first failure", func(t *testing.T) {
		sink := searchindex.NewMemory()
		summaries, err := ingest.RunAll(context.Background(), paths, options("", sink), false)
		if err == nil {
			t.Fatal("RunAll succeeded")
		}
		if len(summaries) != 2 {
			t.Errorf("got %d summaries, want 2", len(summaries))
		}
		if got := searchCount(t, sink, "copper"); got != 1 {
			t.Errorf("hits = %d, want 1", got)
		}
	})
}

func TestRunIntoSQLite(t *testing.T) {
	path := writeArchive(t, pages("sqlite.example", 4)...)
	ctx := context.Background()
	index, err := searchindex.OpenSQLite(ctx, searchindex.Config{Path: filepath.Join(t.TempDir(), "index.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer index.Close()

	runOptions := options(path, index)
	runOptions.BatchSize = 3
	summary, err := ingest.Run(ctx, runOptions)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Indexed != 4 || summary.Commits != 2 {
		t.Errorf("Indexed %d Commits %d, want 4 and 2", summary.Indexed, summary.Commits)
	}
	if got := searchCount(t, index, searchindex.PlainQuery("lantern")); got != 4 {
		t.Errorf("hits = %d, want 4", got)
	}
	runs, err := index.Runs(ctx, 1)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Commits != 2 {
		t.Errorf("ledger = %+v", runs)
	}
}

func TestRunReindexIntoSQLite(t *testing.T) {
	path := writeArchive(t, pages("again.example", 3)...)
	ctx := context.Background()
	index, err := searchindex.OpenSQLite(ctx, searchindex.Config{Path: filepath.Join(t.TempDir(), "index.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer index.Close()

	first, err := ingest.Run(ctx, options(path, index))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := ingest.Run(ctx, options(path, index))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Status != ingest.StatusCompleted || second.Indexed != 0 || second.Duplicates != 3 || second.Commits != 0 {
		t.Errorf("second run = %s indexed %d duplicates %d commits %d, want completed 0 3 0",
			second.Status, second.Indexed, second.Duplicates, second.Commits)
	}

	runs, err := index.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ledger has %d runs, want 2: %+v", len(runs), runs)
	}
	recorded := map[string]bool{runs[0].RunID: true, runs[1].RunID: true}
	if !recorded[first.RunID] || !recorded[second.RunID] {
		t.Errorf("ledger %+v is missing run %s or %s", runs, first.RunID, second.RunID)
	}
	if got := searchCount(t, index, searchindex.PlainQuery("lantern")); got != 3 {
		t.Errorf("hits = %d, want 3", got)
	}
}

func parseRecord(t *testing.T, data []byte) *warc.Record {
	t.Helper()
	record, err := warc.NewReader(bytes.NewReader(data), warc.ReaderOptions{}).Next()
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return record
}

func TestFilter(t *testing.T) {
	response := parseRecord(t, testutil.ResponseRecord("https://example.org/docs/page.html", "Docs", "text"))
	request := parseRecord(t, testutil.RequestRecord("https://example.org/docs/page.html"))
	resource := parseRecord(t, testutil.Record([]testutil.Field{
		{Name: "WARC-Type", Value: "resource"},
		{Name: "WARC-Target-URI", Value: "https://example.org/notes.txt"},
		{Name: "Content-Type", Value: "text/plain"},
	}, []byte("notes")))
	bareResponse := parseRecord(t, testutil.Record([]testutil.Field{
		{Name: "WARC-Type", Value: "response"},
		{Name: "WARC-Target-URI", Value: "https://example.org/raw"},
		{Name: "Content-Type", Value: "text/html"},
	}, []byte("<p>no http envelope</p>")))

	tests := []struct {
		name    string
		options ingest.FilterOptions
		record  *warc.Record
		want    bool
	}{
		{"default accepts responses", ingest.FilterOptions{HTTPOnly: true}, response, true},
		{"default rejects requests", ingest.FilterOptions{HTTPOnly: true}, request, false},
		{"http only rejects bare payload", ingest.FilterOptions{HTTPOnly: true}, bareResponse, false},
		{"bare payload without http only", ingest.FilterOptions{}, bareResponse, true},
		{"resource by type", ingest.FilterOptions{RecordTypes: []string{"resource"}, HTTPOnly: true}, resource, true},
		{"type match is case-insensitive", ingest.FilterOptions{RecordTypes: []string{"Response"}}, response, true},
		{"prefix match", ingest.FilterOptions{TargetPrefixes: []string{"https://example.org/docs/"}}, response, true},
		{"prefix miss", ingest.FilterOptions{TargetPrefixes: []string{"https://other.example/"}}, response, false},
		{"pattern match", ingest.FilterOptions{TargetPattern: `\.html$`}, response, true},
		{"pattern miss", ingest.FilterOptions{TargetPattern: `\.pdf$`}, response, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filter, err := ingest.NewFilter(test.options)
			if err != nil {
				t.Fatalf("NewFilter: %v", err)
			}
			ok, reason := filter.Match(test.record)
			if ok != test.want {
				t.Errorf("Match = %v (%s), want %v", ok, reason, test.want)
			}
			if !ok && reason == "" {
				t.Error("rejection without a reason")
			}
		})
	}

	if ok, _ := ingest.DefaultFilter().Match(response); !ok {
		t.Error("DefaultFilter rejected an HTTP response")
	}
	if _, err := ingest.NewFilter(ingest.FilterOptions{TargetPattern: "("}); err == nil {
		t.Error("NewFilter accepted an invalid pattern")
	}
}

func TestDocumentID(t *testing.T) {
	id := ingest.DocumentID("http://a.example/", []byte("body"))
	if len(id) != 64 {
		t.Errorf("len(id) = %d, want 64 hex characters", len(id))
	}
	if again := ingest.DocumentID("http://a.example/", []byte("body")); again != id {
		t.Error("DocumentID is not deterministic")
	}
	if ingest.DocumentID("http://b.example/", []byte("body")) == id {
		t.Error("different targets share an ID")
	}
	if ingest.DocumentID("http://a.example/", []byte("body!")) == id {
		t.Error("different bodies share an ID")
	}
	// The separator keeps the boundary between target and body.
	if ingest.DocumentID("ab", []byte("c")) == ingest.DocumentID("a", []byte("bc")) {
		t.Error("target/body boundary is ambiguous")
	}
}

func TestParseMalformedPolicy(t *testing.T) {
	for _, policy := range []ingest.MalformedPolicy{ingest.MalformedAbort, ingest.MalformedResync} {
		parsed, err := ingest.ParseMalformedPolicy(policy.String())
		if err != nil || parsed != policy {
			t.Errorf("ParseMalformedPolicy(%q) = %v, %v", policy, parsed, err)
		}
	}
	if _, err := ingest.ParseMalformedPolicy("ignore"); err == nil {
		t.Error("ParseMalformedPolicy accepted ignore")
	}
}
