// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/fairuse/warcindex/lib/extract"
	"github.com/fairuse/warcindex/lib/megawarc"
	"github.com/fairuse/warcindex/lib/searchindex"
	"github.com/fairuse/warcindex/lib/warc"
)

// SinkError wraps a failure of the index rather than of the archive.
type SinkError struct {
	Op  string
	Err error
}

func (err *SinkError) Error() string {
	return "ingest: index " + err.Op + ": " + err.Err.Error()
}

func (err *SinkError) Unwrap() error { return err.Err }

// Run decodes one archive and feeds its documents to options.Sink.
//
// The pass runs on a dedicated worker goroutine and Run blocks until
// it ends; a panic on the worker is re-raised in the caller. Records
// are processed one at a time in stream order. The context is checked
// between records: on cancellation, and on any fatal error, the batch
// added since the last commit is discarded and the error is returned
// together with the summary so far.
func Run(ctx context.Context, options Options) (Summary, error) {
	options, err := options.withDefaults()
	if err != nil {
		return Summary{}, err
	}

	pass := &pass{
		options: options,
		logger: options.Logger.With(
			"archive", options.SourcePath,
		),
		summary: Summary{
			RunID:     uuid.NewString(),
			Archive:   options.SourcePath,
			StartedAt: options.Clock.Now(),
		},
	}
	pass.logger = pass.logger.With("run_id", pass.summary.RunID)
	pass.logger.Debug("ingest started", "malformed_headers", options.MalformedHeaders, "batch_size", options.BatchSize)

	if options.MaxStackBytes > 0 {
		previous := debug.SetMaxStack(int(options.MaxStackBytes))
		defer debug.SetMaxStack(previous)
	}

	workerDone := make(chan struct{})
	var workers conc.WaitGroup
	workers.Go(func() {
		defer close(workerDone)
		pass.err = pass.execute(ctx)
	})
	if options.ProgressInterval > 0 {
		workers.Go(func() { pass.reportProgress(ctx, workerDone) })
	}
	workers.Wait()

	return pass.finish(ctx)
}

// RunAll processes each archive in order with the same options. With
// keepGoing, an archive that fails on its own (bad framing, corrupt
// stream, malformed records) is logged and the next one is tried;
// cancellation and index failures always stop the loop. The returned
// error joins every archive failure.
func RunAll(ctx context.Context, paths []string, options Options, keepGoing bool) ([]Summary, error) {
	summaries := make([]Summary, 0, len(paths))
	var failures []error
	for _, path := range paths {
		options.SourcePath = path
		summary, err := Run(ctx, options)
		summaries = append(summaries, summary)
		if err == nil {
			continue
		}
		failures = append(failures, fmt.Errorf("%s: %w", path, err))

		var sinkError *SinkError
		if !keepGoing || ctx.Err() != nil || errors.As(err, &sinkError) {
			break
		}
		if options.Logger != nil {
			options.Logger.Warn("archive failed, continuing with the next", "archive", path, "error", err)
		}
	}
	return summaries, errors.Join(failures...)
}

type pass struct {
	options Options
	logger  *slog.Logger

	// mu guards summary, which the progress reporter reads while the
	// worker updates it.
	mu      sync.Mutex
	summary Summary

	err     error
	pending int
}

func (pass *pass) execute(ctx context.Context) error {
	file, err := os.Open(pass.options.SourcePath)
	if err != nil {
		return fmt.Errorf("ingest: opening archive: %w", err)
	}
	defer file.Close()
	if err := adviseSequential(file); err != nil {
		pass.logger.Debug("sequential read advice failed", "error", err)
	}

	container, err := megawarc.Open(file, megawarc.OpenOptions{MaxDictionarySize: pass.options.MaxDictionarySize})
	if err != nil {
		return err
	}
	pass.describeContainer(container)

	session, err := megawarc.NewSession(container, megawarc.SessionOptions{})
	if err != nil {
		return err
	}
	defer session.Close()

	reader := warc.NewReader(session, warc.ReaderOptions{MaxBodyBytes: pass.options.MaxBodyBytes})
	for {
		if err := ctx.Err(); err != nil {
			pass.discard(ctx)
			return fmt.Errorf("ingest: stopped after %d records: %w", reader.Counters().TotalSeen, err)
		}

		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseError *warc.ParseError
			if errors.As(err, &parseError) && parseError.Recoverable() && pass.options.MalformedHeaders == MalformedResync {
				pass.logger.Warn("skipping malformed record", "record", parseError.Record, "offset", parseError.Offset, "error", parseError.Detail)
				pass.publish(reader, session)
				continue
			}
			pass.discard(ctx)
			pass.publish(reader, session)
			return err
		}

		if err := pass.handle(ctx, reader, record); err != nil {
			pass.discard(ctx)
			pass.publish(reader, session)
			return err
		}
		pass.publish(reader, session)
	}

	if err := pass.commit(ctx); err != nil {
		pass.discard(ctx)
		return err
	}
	pass.publish(reader, session)
	return nil
}

// handle filters, extracts and indexes one record.
func (pass *pass) handle(ctx context.Context, reader *warc.Reader, record *warc.Record) error {
	if ok, reason := pass.options.Filter.Match(record); !ok {
		reader.MarkSkipped()
		pass.logger.Debug("record filtered", "target", record.TargetURI(), "reason", reason)
		return nil
	}

	fields, err := pass.options.Extractor.Extract(record)
	if err != nil {
		reader.MarkSkipped()
		if !extract.IsSkippable(err) {
			pass.mu.Lock()
			pass.summary.ExtractFailures++
			pass.mu.Unlock()
			pass.logger.Warn("text extraction failed", "target", record.TargetURI(), "offset", record.Offset, "error", err)
			return nil
		}
		pass.logger.Debug("record has no indexable text", "target", record.TargetURI(), "reason", err)
		return nil
	}

	document := searchindex.Document{
		ID:        DocumentID(record.TargetURI(), record.Body),
		TargetURI: record.TargetURI(),
		RecordID:  record.RecordID(),
		Title:     fields.Title,
		Body:      fields.Body,
		Metadata: map[string]string{
			"archive":     filepath.Base(pass.options.SourcePath),
			"record_type": record.Type(),
			"media_type":  fields.MediaType,
			"offset":      strconv.FormatInt(record.Offset, 10),
		},
	}
	if fields.StatusCode != 0 {
		document.Metadata["status"] = strconv.Itoa(fields.StatusCode)
	}
	if date, err := record.Date(); err == nil {
		document.Date = date
	}

	if err := pass.options.Sink.Add(ctx, document); err != nil {
		if errors.Is(err, searchindex.ErrDuplicate) {
			reader.MarkSkipped()
			pass.mu.Lock()
			pass.summary.Duplicates++
			pass.mu.Unlock()
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ingest: stopped after %d records: %w", reader.Counters().TotalSeen, ctxErr)
		}
		return &SinkError{Op: "add", Err: err}
	}

	pass.mu.Lock()
	pass.summary.Indexed++
	pass.mu.Unlock()
	pass.pending++
	if pass.options.BatchSize > 0 && pass.pending >= pass.options.BatchSize {
		return pass.commit(ctx)
	}
	return nil
}

func (pass *pass) commit(ctx context.Context) error {
	if pass.pending == 0 {
		return nil
	}
	if err := pass.options.Sink.Commit(ctx); err != nil {
		return &SinkError{Op: "commit", Err: err}
	}
	pass.logger.Debug("batch committed", "documents", pass.pending)
	pass.pending = 0
	pass.mu.Lock()
	pass.summary.Commits++
	pass.mu.Unlock()
	return nil
}

// discard drops the uncommitted batch. It runs on the way out of a
// failed or cancelled pass, so it ignores ctx's cancellation.
func (pass *pass) discard(ctx context.Context) {
	if pass.pending == 0 {
		return
	}
	if err := pass.options.Sink.Discard(context.WithoutCancel(ctx)); err != nil {
		pass.logger.Error("discarding uncommitted batch failed", "documents", pass.pending, "error", err)
		return
	}
	pass.logger.Info("uncommitted batch discarded", "documents", pass.pending)
	pass.mu.Lock()
	pass.summary.Indexed -= uint64(pass.pending)
	pass.mu.Unlock()
	pass.pending = 0
}

func (pass *pass) describeContainer(container *megawarc.Container) {
	info, err := megawarc.InspectDictionary(container.Dictionary)
	if err != nil {
		pass.logger.Debug("dictionary inspection failed", "error", err)
	}

	pass.mu.Lock()
	pass.summary.DictionaryLength = container.Header.DictionaryLength
	pass.summary.DictionaryKind = container.Kind.String()
	pass.summary.DictionaryID = info.ID
	pass.summary.DictionaryFingerprint = info.Fingerprint
	pass.mu.Unlock()

	pass.logger.Debug("container opened",
		"dictionary_kind", container.Kind,
		"dictionary_bytes", len(container.Dictionary),
		"dictionary_id", info.ID,
	)
}

// publish copies the reader's counters into the shared summary.
func (pass *pass) publish(reader *warc.Reader, session *megawarc.Session) {
	counters := reader.Counters()
	pass.mu.Lock()
	defer pass.mu.Unlock()
	pass.summary.TotalSeen = counters.TotalSeen
	pass.summary.Parsed = counters.Parsed
	pass.summary.ParseFailures = counters.ParseFailures
	pass.summary.Skipped = counters.Skipped
	pass.summary.CompressedBytes = session.CompressedOffset()
	pass.summary.DecodedBytes = session.DecodedBytes()
}

func (pass *pass) snapshot() Summary {
	pass.mu.Lock()
	defer pass.mu.Unlock()
	return pass.summary
}

func (pass *pass) reportProgress(ctx context.Context, workerDone <-chan struct{}) {
	ticker := pass.options.Clock.NewTicker(pass.options.ProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-workerDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := pass.snapshot()
			pass.logger.Info("ingest progress",
				"total_seen", summary.TotalSeen,
				"indexed", summary.Indexed,
				"skipped", summary.Skipped,
				"parse_failures", summary.ParseFailures,
				"compressed_bytes", summary.CompressedBytes,
			)
		}
	}
}

// finish stamps the outcome, records it in the run ledger when the
// sink keeps one, and logs it.
func (pass *pass) finish(ctx context.Context) (Summary, error) {
	summary := pass.snapshot()
	summary.FinishedAt = pass.options.Clock.Now()
	switch {
	case pass.err == nil:
		summary.Status = StatusCompleted
	case errors.Is(pass.err, context.Canceled) || errors.Is(pass.err, context.DeadlineExceeded):
		summary.Status = StatusCancelled
		summary.Error = pass.err.Error()
	default:
		summary.Status = StatusFailed
		summary.Error = pass.err.Error()
	}

	if recorder, ok := pass.options.Sink.(searchindex.RunRecorder); ok {
		if err := recorder.RecordRun(context.WithoutCancel(ctx), summary.RunRecord()); err != nil {
			pass.logger.Error("recording run failed", "error", err)
		}
	}

	attributes := []any{
		"status", summary.Status,
		"total_seen", summary.TotalSeen,
		"parsed", summary.Parsed,
		"parse_failures", summary.ParseFailures,
		"skipped", summary.Skipped,
		"indexed", summary.Indexed,
		"duration", summary.Duration(),
	}
	if pass.err != nil {
		pass.logger.Error("ingest failed", append(attributes, "error", pass.err)...)
	} else {
		pass.logger.Info("ingest finished", attributes...)
	}
	return summary, pass.err
}
