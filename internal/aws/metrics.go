package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsRecorder pushes submission counters to CloudWatch.
type MetricsRecorder struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

func NewMetricsRecorder(cw CloudWatchAPI, namespace string) *MetricsRecorder {
	return &MetricsRecorder{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// RecordSubmission emits Submissions=1 with an Outcome dimension
// (submitted, validation_failed, submit_failed, rejected_in_flight).
func (m *MetricsRecorder) RecordSubmission(ctx context.Context, outcome string) error {
	value := 1.0
	now := m.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(m.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("Submissions"),
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
				Timestamp:  &now,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("Outcome"), Value: awsString(outcome)},
				},
			},
		},
	}
	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
