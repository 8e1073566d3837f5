package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrzesz33/bedrock_mac/internal/httpclient"
	"github.com/jrzesz33/bedrock_mac/internal/models"
)

type fakeReconciler struct {
	data    map[string]any
	err     error
	created int
	updated int
	deleted int
}

func (f *fakeReconciler) Create(context.Context, Properties) (map[string]any, error) {
	f.created++
	return f.data, f.err
}

func (f *fakeReconciler) Update(context.Context, Properties) (map[string]any, error) {
	f.updated++
	return f.data, f.err
}

func (f *fakeReconciler) Delete(context.Context, Properties) error {
	f.deleted++
	return f.err
}

type reportCall struct {
	status cfn.StatusType
	data   map[string]any
	reason string
}

type fakeReporter struct {
	calls []reportCall
	err   error
}

func (f *fakeReporter) Report(_ context.Context, _ cfn.Event, status cfn.StatusType, data map[string]any, reason string) error {
	f.calls = append(f.calls, reportCall{status, data, reason})
	return f.err
}

type fakeJournal struct {
	saved    []models.ProvisioningStatus
	updated  []models.ProvisioningStatus
	notified []models.ProvisioningStatus
}

func (f *fakeJournal) SaveRecord(_ context.Context, r *models.ProvisioningRecord) error {
	f.saved = append(f.saved, r.Status)
	return nil
}

func (f *fakeJournal) UpdateStatus(_ context.Context, _ string, status models.ProvisioningStatus, _ string) error {
	f.updated = append(f.updated, status)
	return errors.New("table unavailable")
}

func (f *fakeJournal) PublishRecord(_ context.Context, r *models.ProvisioningRecord) error {
	f.notified = append(f.notified, r.Status)
	return nil
}

func testEvent(requestType cfn.RequestType) cfn.Event {
	return cfn.Event{
		RequestType:        requestType,
		RequestID:          "req-1",
		ResponseURL:        "https://example.com/response",
		ResourceType:       "Custom::BedrockAgent",
		LogicalResourceID:  "SupervisorAgent",
		StackID:            "stack-1",
		ResourceProperties: map[string]interface{}{"agentName": "supervisor"},
	}
}

func TestHandleEvent_Success(t *testing.T) {
	rec := &fakeReconciler{data: map[string]any{"AgentId": "A1"}}
	rep := &fakeReporter{}
	journal := &fakeJournal{}
	h := NewHandler(models.ResourceKindAgent, models.StageDev, rec, rep, testLogger(),
		WithJournal(journal), WithNotifier(journal))

	out, err := h.HandleEvent(context.Background(), testEvent(cfn.RequestUpdate))
	require.NoError(t, err)

	assert.Equal(t, Outcome{PhysicalResourceID: "SupervisorAgent", Data: map[string]any{"AgentId": "A1"}}, out)
	assert.Equal(t, 1, rec.updated)
	require.Len(t, rep.calls, 1)
	assert.Equal(t, cfn.StatusSuccess, rep.calls[0].status)
	assert.Equal(t, map[string]any{"AgentId": "A1"}, rep.calls[0].data)
	assert.Equal(t, []models.ProvisioningStatus{models.ProvisioningStatusReceived, models.ProvisioningStatusSucceeded}, journal.saved)
	assert.Equal(t, []models.ProvisioningStatus{models.ProvisioningStatusProcessing}, journal.updated)
	assert.Equal(t, []models.ProvisioningStatus{models.ProvisioningStatusSucceeded}, journal.notified)
}

func TestHandleEvent_FailureReportsEmptyData(t *testing.T) {
	rec := &fakeReconciler{data: map[string]any{"partial": "x"}, err: errors.New("create failed")}
	rep := &fakeReporter{err: errors.New("response url expired")}
	h := NewHandler(models.ResourceKindAgent, models.StageDev, rec, rep, testLogger())

	out, err := h.HandleEvent(context.Background(), testEvent(cfn.RequestCreate))
	require.NoError(t, err)

	assert.Equal(t, "SupervisorAgent", out.PhysicalResourceID)
	assert.Empty(t, out.Data)
	require.Len(t, rep.calls, 1)
	assert.Equal(t, cfn.StatusFailed, rep.calls[0].status)
	assert.Empty(t, rep.calls[0].data)
	assert.Equal(t, "create failed", rep.calls[0].reason)
}

func TestHandleEvent_DeleteAndUnknownType(t *testing.T) {
	rec := &fakeReconciler{}
	rep := &fakeReporter{}
	h := NewHandler(models.ResourceKindDataAutomationProject, models.StageDev, rec, rep, testLogger())

	out, err := h.HandleEvent(context.Background(), testEvent(cfn.RequestDelete))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.deleted)
	assert.Equal(t, map[string]any{}, out.Data)
	assert.Equal(t, cfn.StatusSuccess, rep.calls[0].status)

	_, err = h.HandleEvent(context.Background(), testEvent(cfn.RequestType("Rollback")))
	require.NoError(t, err)
	assert.Equal(t, cfn.StatusFailed, rep.calls[1].status)
	assert.Contains(t, rep.calls[1].reason, "unsupported request type")
}

type blockingReconciler struct {
	fetch time.Duration
}

func (b *blockingReconciler) Create(ctx context.Context, _ Properties) (map[string]any, error) {
	poller := NewPoller(10*time.Millisecond, 1000, testLogger())
	_, err := poller.AwaitTerminal(ctx, "agent", func(ctx context.Context) (string, error) {
		select {
		case <-time.After(b.fetch):
			return "CREATING", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, func(s string) bool { return s == "CREATING" }, false)
	return nil, err
}

func (b *blockingReconciler) Update(ctx context.Context, p Properties) (map[string]any, error) {
	return b.Create(ctx, p)
}

func (b *blockingReconciler) Delete(context.Context, Properties) error { return nil }

func TestHandleEvent_ReportsFailureAtInvocationDeadline(t *testing.T) {
	var (
		mu  sync.Mutex
		got []cfn.Response
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp cfn.Response
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &resp))
		mu.Lock()
		got = append(got, resp)
		mu.Unlock()
	}))
	defer server.Close()

	client := httpclient.NewClient(testLogger(), httpclient.WithHTTPClient(server.Client()), httpclient.WithRetry(1, time.Millisecond))
	h := NewHandler(models.ResourceKindAgent, models.StageDev, &blockingReconciler{fetch: 45 * time.Millisecond},
		NewResponseReporter(client, testLogger()), testLogger(),
		WithDeadlineReserve(20*time.Millisecond, time.Second))

	event := testEvent(cfn.RequestCreate)
	event.ResponseURL = server.URL + "/stack"

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := h.HandleEvent(ctx, event)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, cfn.StatusFailed, got[0].Status)
	assert.Contains(t, got[0].Reason, context.DeadlineExceeded.Error())
}

func TestResponseReporter_Report(t *testing.T) {
	var got cfn.Response
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer server.Close()

	client := httpclient.NewClient(testLogger(), httpclient.WithHTTPClient(server.Client()), httpclient.WithRetry(1, time.Millisecond))
	reporter := NewResponseReporter(client, testLogger())

	event := testEvent(cfn.RequestCreate)
	event.ResponseURL = server.URL + "/stack?X-Amz-Signature=abc"

	err := reporter.Report(context.Background(), event, cfn.StatusSuccess, map[string]any{"ProjectArn": "arn:p"}, "")
	require.NoError(t, err)

	assert.Equal(t, cfn.StatusSuccess, got.Status)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "SupervisorAgent", got.PhysicalResourceID)
	assert.Equal(t, "SupervisorAgent", got.LogicalResourceID)
	assert.Equal(t, "stack-1", got.StackID)
	assert.Equal(t, map[string]interface{}{"ProjectArn": "arn:p"}, got.Data)
}

func TestResponseReporter_NoURL(t *testing.T) {
	reporter := NewResponseReporter(httpclient.NewClient(testLogger()), testLogger())
	event := testEvent(cfn.RequestCreate)
	event.ResponseURL = ""

	assert.Error(t, reporter.Report(context.Background(), event, cfn.StatusSuccess, nil, ""))
}
