package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// CloudWatchSampler reads fleet utilization from CloudWatch. The fleet
// ID is mapped to the auto scaling group name it was configured with.
type CloudWatchSampler struct {
	client     cloudwatchiface.CloudWatchAPI
	namespace  string
	metricName string
	groupNames map[string]string
}

type CloudWatchConfig struct {
	Namespace  string
	MetricName string
	// GroupNames maps fleet IDs to auto scaling group names.
	GroupNames map[string]string
}

func NewCloudWatchSampler(sess *session.Session, cfg CloudWatchConfig) *CloudWatchSampler {
	if cfg.Namespace == "" {
		cfg.Namespace = "AWS/EC2"
	}
	if cfg.MetricName == "" {
		cfg.MetricName = "CPUUtilization"
	}

	return &CloudWatchSampler{
		client:     cloudwatch.New(sess),
		namespace:  cfg.Namespace,
		metricName: cfg.MetricName,
		groupNames: cfg.GroupNames,
	}
}

func (s *CloudWatchSampler) Sample(ctx context.Context, fleetID string, windowSeconds int) (*models.UtilizationSample, error) {
	groupName, ok := s.groupNames[fleetID]
	if !ok {
		return nil, ErrFleetNotFound
	}

	// CloudWatch periods must be a multiple of 60.
	window := (time.Duration(windowSeconds) * time.Second).Truncate(time.Minute)
	if window < time.Minute {
		window = time.Minute
	}

	now := time.Now().UTC()
	input := &cloudwatch.GetMetricDataInput{
		MetricDataQueries: []*cloudwatch.MetricDataQuery{
			{
				Id: aws.String("util"),
				MetricStat: &cloudwatch.MetricStat{
					Metric: &cloudwatch.Metric{
						Namespace:  aws.String(s.namespace),
						MetricName: aws.String(s.metricName),
						Dimensions: []*cloudwatch.Dimension{
							{
								Name:  aws.String("AutoScalingGroupName"),
								Value: aws.String(groupName),
							},
						},
					},
					Period: aws.Int64(int64(window.Seconds())),
					Stat:   aws.String("Average"),
				},
				ReturnData: aws.Bool(true),
			},
		},
		StartTime: aws.Time(now.Add(-window)),
		EndTime:   aws.Time(now),
	}

	out, err := s.client.GetMetricDataWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSamplingFailed, err)
	}

	if len(out.MetricDataResults) == 0 || len(out.MetricDataResults[0].Values) == 0 {
		return nil, ErrNoDataAvailable
	}

	return &models.UtilizationSample{
		FleetID:   fleetID,
		Timestamp: now,
		Value:     aws.Float64Value(out.MetricDataResults[0].Values[0]),
	}, nil
}

func (s *CloudWatchSampler) HealthCheck(ctx context.Context) error {
	_, err := s.client.ListMetricsWithContext(ctx, &cloudwatch.ListMetricsInput{
		Namespace: aws.String(s.namespace),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSamplingFailed, err)
	}
	return nil
}

func (s *CloudWatchSampler) Close() error {
	return nil
}
