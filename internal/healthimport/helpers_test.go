package healthimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/storage"
	"github.com/stretchr/testify/require"
)

const healthLayout = "2006-01-02 15:04:05 -0700"

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func seg(start, end string, stage Stage) Segment {
	return Segment{Start: at(start), End: at(end), Stage: stage, Source: "Apple Watch"}
}

type xmlRecord struct {
	Type, Value, Source, Start, End string
}

func sleepRecord(value, start, end string) xmlRecord {
	return xmlRecord{
		Type:   sleepAnalysisType,
		Value:  value,
		Source: "Apple Watch",
		Start:  at(start).Format(healthLayout),
		End:    at(end).Format(healthLayout),
	}
}

func exportXML(records ...xmlRecord) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<HealthData locale=\"en_US\">\n")
	for _, r := range records {
		fmt.Fprintf(&b, "  <Record type=%q sourceName=%q value=%q startDate=%q endDate=%q/>\n",
			r.Type, r.Source, r.Value, r.Start, r.End)
	}
	b.WriteString("</HealthData>\n")
	return b.String()
}

// zipOf builds an in-memory archive from name -> content pairs.
func zipOf(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return &buf
}

func exportZip(t *testing.T, records ...xmlRecord) *bytes.Buffer {
	return zipOf(t, map[string]string{"apple_health_export/export.xml": exportXML(records...)})
}

// memSleepRepo is an in-memory SleepLogRepository. failOnSave makes the
// n-th save (1-based) fail.
type memSleepRepo struct {
	mu         sync.Mutex
	logs       []internal.SleepLog
	saves      int
	failOnSave int
	failFind   bool
}

func (r *memSleepRepo) SaveSleepLog(ctx context.Context, log *internal.SleepLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failOnSave > 0 && r.saves == r.failOnSave {
		return errors.New("disk full")
	}
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memSleepRepo) FindSleepLog(ctx context.Context, userID string, start, end time.Time) (*internal.SleepLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind {
		return nil, errors.New("connection refused")
	}
	for _, l := range r.logs {
		if l.UserID == userID && l.StartTime.Equal(start) && l.EndTime.Equal(end) {
			cp := l
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *memSleepRepo) ListSleepLogs(ctx context.Context, userID string, opts storage.ListOptions) ([]internal.SleepLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []internal.SleepLog
	for _, l := range r.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}
