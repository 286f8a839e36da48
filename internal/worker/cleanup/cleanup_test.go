package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, r.err }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	mu     sync.Mutex
	calls  int
	query  string
	args   []interface{}
	result sql.Result
	err    error
	called chan struct{}
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	m.calls++
	m.query = query
	m.args = args
	m.mu.Unlock()
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	return m.result, m.err
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogEntry はJSONログからkeyを含む最初の行を返す。
func findLogEntry(t *testing.T, buf *bytes.Buffer, key string) map[string]interface{} {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry[key]; ok {
			return entry
		}
	}
	return nil
}

func TestNewCleanupJob_ReturnsNonNil(t *testing.T) {
	job := NewCleanupJob(&mockExecutor{}, nil)
	if job == nil {
		t.Fatal("NewCleanupJob は nil を返してはならない")
	}
	if job.logger == nil {
		t.Error("logger未指定時はslog.Defaultを使うべき")
	}
}

func TestCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if mock.callCount() != 1 {
		t.Fatalf("ExecContext 呼び出し回数 = %d, want 1", mock.callCount())
	}
	if !strings.Contains(mock.query, "DELETE FROM sessions") {
		t.Errorf("クエリに 'DELETE FROM sessions' が含まれていない: %s", mock.query)
	}
	if !strings.Contains(mock.query, "expires_at <= now()") {
		t.Errorf("クエリに期限切れ条件が含まれていない: %s", mock.query)
	}
	if len(mock.args) != 0 {
		t.Errorf("引数は不要: %v", mock.args)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	tests := []struct {
		name  string
		count int64
	}{
		{name: "削除あり", count: 42},
		{name: "0件でもログを出す", count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mock := &mockExecutor{result: &fakeResult{rowsAffected: tt.count}}
			job := NewCleanupJob(mock, newTestLogger(&buf))

			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run() がエラーを返した: %v", err)
			}

			entry := findLogEntry(t, &buf, "deleted_count")
			if entry == nil {
				t.Fatalf("ログに deleted_count が記録されていない。ログ出力: %s", buf.String())
			}
			if entry["deleted_count"] != float64(tt.count) {
				t.Errorf("deleted_count = %v, want %d", entry["deleted_count"], tt.count)
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("ログに duration_ms が記録されていない")
			}
		})
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: sql.ErrConnDone}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("元のエラーをラップすべき: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnRowsAffectedFailure(t *testing.T) {
	var buf bytes.Buffer
	rowsErr := errors.New("driver does not support RowsAffected")
	mock := &mockExecutor{result: &fakeResult{err: rowsErr}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, rowsErr) {
		t.Fatalf("err = %v, want %v", err, rowsErr)
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 1},
		called: make(chan struct{}, 1),
	}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-mock.called:
	case <-time.After(2 * time.Second):
		t.Fatal("起動直後にRunが実行されなかった")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後にStartが終了しなかった")
	}

	if got := mock.callCount(); got != 1 {
		t.Errorf("ExecContext 呼び出し回数 = %d, want 1", got)
	}
}

func TestCleanupJob_Start_RepeatsOnInterval(t *testing.T) {
	var buf bytes.Buffer
	// 失敗しても次回の実行は継続する
	mock := &mockExecutor{
		err:    sql.ErrConnDone,
		called: make(chan struct{}, 1),
	}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Start(ctx, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-mock.called:
		case <-time.After(2 * time.Second):
			t.Fatalf("%d回目の実行が行われなかった", i+1)
		}
	}
}
