package budget

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/costexplorer"
	"github.com/aws/aws-sdk-go/service/costexplorer/costexploreriface"
)

// CostExplorerSource reads month-to-date unblended cost from AWS Cost
// Explorer. The period identifier is the calendar month (YYYY-MM).
type CostExplorerSource struct {
	client costexploreriface.CostExplorerAPI
	now    func() time.Time
}

func NewCostExplorerSource(p client.ConfigProvider) *CostExplorerSource {
	return &CostExplorerSource{
		client: costexplorer.New(p),
		now:    time.Now,
	}
}

func (s *CostExplorerSource) SpendToDate(ctx context.Context) (string, float64, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	// Cost Explorer treats End as exclusive and rejects Start == End,
	// so the first of the month queries through the next day.
	end := now.AddDate(0, 0, 1)

	out, err := s.client.GetCostAndUsageWithContext(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &costexplorer.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: aws.String(costexplorer.GranularityMonthly),
		Metrics:     []*string{aws.String("UnblendedCost")},
	})
	if err != nil {
		return "", 0, fmt.Errorf("cost explorer query: %w", err)
	}

	period := start.Format("2006-01")
	total := 0.0
	for _, result := range out.ResultsByTime {
		metric, ok := result.Total["UnblendedCost"]
		if !ok || metric.Amount == nil {
			continue
		}
		amount, err := strconv.ParseFloat(aws.StringValue(metric.Amount), 64)
		if err != nil {
			return "", 0, fmt.Errorf("parse cost amount %q: %w", aws.StringValue(metric.Amount), err)
		}
		total += amount
	}

	return period, total, nil
}
