package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/store"
	"github.com/sells-group/report-qa/internal/submission"
)

// uploadServer records the uploaded file and replies with a fixed body.
func uploadServer(t *testing.T, received *[]byte, filename *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close() //nolint:errcheck
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		*received = data
		*filename = hdr.Filename
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"accepted"}`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withSubmitConfig(t *testing.T, url string) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{}
	cfg.Submission.URL = url
	cfg.Submission.TimeoutSecs = 5
	t.Cleanup(func() { cfg = prev })
}

func newRunStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSubmitRun_UploadsStoredPayload(t *testing.T) {
	var received []byte
	var filename string
	srv := uploadServer(t, &received, &filename)
	withSubmitConfig(t, srv.URL)

	payload, err := submission.Marshal(model.Submission{
		TeamEmail:      "team@example.com",
		SubmissionName: "baseline",
		Answers: []model.Answer{
			{QuestionText: "How many stores does Acme operate?", Value: 42.0, References: []model.Reference{{PDFSHA1: "abc", PageIndex: 3}}},
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	st := newRunStore(t)
	run, err := st.CreateRun(ctx, model.Run{SubmissionName: "baseline", Questions: 1, Answered: 1, Payload: payload})
	require.NoError(t, err)

	require.NoError(t, submitRun(ctx, st, run.ID))

	assert.JSONEq(t, string(payload), string(received))
	assert.Equal(t, "baseline.json", filename)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.UploadStatus)
	assert.Equal(t, `{"status":"accepted"}`, got.UploadBody)
}

func TestSubmitRun_UnknownRun(t *testing.T) {
	withSubmitConfig(t, "http://127.0.0.1:1")
	err := submitRun(context.Background(), newRunStore(t), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSubmitRun_EmptyPayload(t *testing.T) {
	withSubmitConfig(t, "http://127.0.0.1:1")
	ctx := context.Background()
	st := newRunStore(t)
	run, err := st.CreateRun(ctx, model.Run{SubmissionName: "empty"})
	require.NoError(t, err)

	err = submitRun(ctx, st, run.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored submission")
}

func TestSubmitFile_RejectsNonSubmission(t *testing.T) {
	withSubmitConfig(t, "http://127.0.0.1:1")
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	err := submitFile(context.Background(), nil, path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission: parse")
}
