package scanner_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"scanrelay/internal/scanner"
	"scanrelay/pkg/domain"
	"scanrelay/pkg/logger"
	"scanrelay/pkg/serrors"
	"scanrelay/pkg/threatscan"
	"testing"
	"time"

	mockthreatscan "scanrelay/pkg/threatscan/mock"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"
)

const (
	url        = "http://example.com"
	analysisID = "u-f1e2d3-1700000000"
)

func TestMain(m *testing.M) {
	_ = logger.Setup(logger.DevelopmentEnvironment, "")
	m.Run()
}

func newTestScanner(t *testing.T, opts scanner.Options) (*mockthreatscan.MockClient, scanner.Scanner) {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mockthreatscan.NewMockClient(ctrl)
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	s, err := scanner.New(client, opts)
	require.NoError(t, err)

	return client, s
}

func analysis(status domain.AnalysisStatus, attempt int) *threatscan.Analysis {
	return &threatscan.Analysis{
		Status: status,
		Raw: json.RawMessage(fmt.Sprintf(
			`{"data":{"id":%q,"attributes":{"status":%q,"attempt":%d}}}`, analysisID, status, attempt)),
	}
}

func upstreamErr(status int) error {
	return threatscan.StatusError("test", status, []byte(`{"error":{"code":"X"}}`))
}

func TestScanner_Scan_EmptyURL(t *testing.T) {
	// no expectations: any upstream call fails the test
	_, s := newTestScanner(t, scanner.Options{})

	res, err := s.Scan(context.Background(), "")
	require.Nil(t, res)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.Equal(t, scanner.MsgURLRequired, err.Error())
}

func TestScanner_Scan_MissingAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockthreatscan.NewMockClient(ctrl)
	s, err := scanner.New(client, scanner.Options{PollInterval: time.Millisecond})
	require.NoError(t, err)

	res, err := s.Scan(context.Background(), url)
	require.Nil(t, res)
	require.ErrorIs(t, err, serrors.ErrMisconfigured)
	require.Equal(t, scanner.MsgAPIKeyMissing, err.Error())
}

func TestScanner_Scan_SubmitErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   serrors.Kind
	}{
		{name: "unauthorized", status: 401, kind: serrors.ErrUnauthorized},
		{name: "rate limited", status: 429, kind: serrors.ErrRateLimited},
		{name: "server error", status: 503, kind: serrors.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, s := newTestScanner(t, scanner.Options{})
			client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{}, upstreamErr(tt.status))

			res, err := s.Scan(context.Background(), url)
			require.Nil(t, res)
			require.ErrorIs(t, err, tt.kind)

			var upstream *threatscan.UpstreamError
			require.ErrorAs(t, err, &upstream)
			require.Equal(t, tt.status, upstream.StatusCode)
		})
	}
}

func TestScanner_Scan_StopsOnCompletedAttempt(t *testing.T) {
	for k := 1; k <= scanner.DefaultPollAttempts; k++ {
		t.Run(fmt.Sprintf("completed on attempt %d", k), func(t *testing.T) {
			client, s := newTestScanner(t, scanner.Options{})
			client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)

			calls := make([]any, 0, k)
			for i := 1; i < k; i++ {
				calls = append(calls, client.EXPECT().Analysis(gomock.Any(), analysisID).
					Return(analysis(domain.AnalysisStatusQueued, i), nil))
			}
			completed := analysis(domain.AnalysisStatusCompleted, k)
			calls = append(calls, client.EXPECT().Analysis(gomock.Any(), analysisID).Return(completed, nil))
			gomock.InOrder(calls...)
			// no URLReport expectation: a fallback call fails the test

			res, err := s.Scan(context.Background(), url)
			require.NoError(t, err)
			require.Equal(t, domain.ResultSourceCompleted, res.Source)
			require.Equal(t, k, res.Attempts)
			require.Equal(t, analysisID, res.AnalysisID)
			require.JSONEq(t, string(completed.Raw), string(res.Payload))
		})
	}
}

func TestScanner_Scan_FallbackReportWins(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{})
	report := json.RawMessage(`{"data":{"id":"aHR0cDovL2V4YW1wbGUuY29t","type":"url"}}`)

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	client.EXPECT().Analysis(gomock.Any(), analysisID).
		Return(analysis(domain.AnalysisStatusInProgress, 0), nil).
		Times(scanner.DefaultPollAttempts)
	client.EXPECT().URLReport(gomock.Any(), url).Return(report, nil)

	res, err := s.Scan(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, domain.ResultSourceFallback, res.Source)
	require.Equal(t, scanner.DefaultPollAttempts, res.Attempts)
	require.JSONEq(t, string(report), string(res.Payload))
}

func TestScanner_Scan_StaleAnalysisWhenFallbackFails(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{})
	lastPoll := analysis(domain.AnalysisStatusQueued, scanner.DefaultPollAttempts)

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	gomock.InOrder(
		client.EXPECT().Analysis(gomock.Any(), analysisID).
			Return(analysis(domain.AnalysisStatusQueued, 1), nil).
			Times(scanner.DefaultPollAttempts-1),
		client.EXPECT().Analysis(gomock.Any(), analysisID).Return(lastPoll, nil),
	)
	client.EXPECT().URLReport(gomock.Any(), url).Return(nil, upstreamErr(404))

	res, err := s.Scan(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, domain.ResultSourceStale, res.Source)
	require.Equal(t, string(lastPoll.Raw), string(res.Payload))
}

func TestScanner_Scan_NoResultWhenNothingAvailable(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{})

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	client.EXPECT().Analysis(gomock.Any(), analysisID).Return(nil, nil).Times(scanner.DefaultPollAttempts)
	client.EXPECT().URLReport(gomock.Any(), url).Return(nil, errors.New("connection reset"))

	res, err := s.Scan(context.Background(), url)
	require.Nil(t, res)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.Equal(t, scanner.MsgNoAnalysisResults, err.Error())
}

func TestScanner_Scan_TransientPollErrorsAreRetried(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{})
	completed := analysis(domain.AnalysisStatusCompleted, 3)

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	gomock.InOrder(
		client.EXPECT().Analysis(gomock.Any(), analysisID).Return(nil, upstreamErr(502)),
		client.EXPECT().Analysis(gomock.Any(), analysisID).Return(nil, errors.New("i/o timeout")),
		client.EXPECT().Analysis(gomock.Any(), analysisID).Return(completed, nil),
	)

	res, err := s.Scan(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, domain.ResultSourceCompleted, res.Source)
	require.Equal(t, 3, res.Attempts)
}

func TestScanner_Scan_LastPollErrorPropagates(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{})
	rateLimited := upstreamErr(429)

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	gomock.InOrder(
		client.EXPECT().Analysis(gomock.Any(), analysisID).
			Return(analysis(domain.AnalysisStatusQueued, 1), nil).
			Times(scanner.DefaultPollAttempts-1),
		client.EXPECT().Analysis(gomock.Any(), analysisID).Return(nil, rateLimited),
	)
	// no URLReport expectation: a failing last attempt must not fall back

	res, err := s.Scan(context.Background(), url)
	require.Nil(t, res)
	require.ErrorIs(t, err, serrors.ErrRateLimited)
}

func TestScanner_Scan_CustomPollAttempts(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{PollAttempts: 2})

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	client.EXPECT().Analysis(gomock.Any(), analysisID).Return(analysis(domain.AnalysisStatusQueued, 1), nil).Times(2)
	client.EXPECT().URLReport(gomock.Any(), url).Return(json.RawMessage(`{}`), nil)

	res, err := s.Scan(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)
	require.Equal(t, domain.ResultSourceFallback, res.Source)
}

func TestScanner_Scan_CancelledWhilePolling(t *testing.T) {
	client, s := newTestScanner(t, scanner.Options{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	client.EXPECT().Analysis(gomock.Any(), analysisID).DoAndReturn(
		func(context.Context, string) (*threatscan.Analysis, error) {
			// the client went away while the first poll was in flight
			cancel()

			return analysis(domain.AnalysisStatusQueued, 1), nil
		})

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, url)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, serrors.ErrTimeout)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not abort after cancellation")
	}
}

func TestScanner_Scan_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	client, s := newTestScanner(t, scanner.Options{MeterProvider: mp})

	client.EXPECT().SubmitURL(gomock.Any(), url).Return(threatscan.SubmitRes{ID: analysisID}, nil)
	client.EXPECT().Analysis(gomock.Any(), analysisID).Return(analysis(domain.AnalysisStatusCompleted, 1), nil)

	_, err := s.Scan(context.Background(), url)
	require.NoError(t, err)
	_, err = s.Scan(context.Background(), "")
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "scanrelay.scans" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				source, _ := dp.Attributes.Value("source")
				counts[outcome.AsString()+"/"+source.AsString()] += dp.Value
			}
		}
	}

	require.Equal(t, map[string]int64{
		"ok/completed":     1,
		"bad_request/none": 1,
	}, counts)
}
