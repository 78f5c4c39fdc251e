package capacity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/autoscaling"
	"github.com/aws/aws-sdk-go/service/autoscaling/autoscalingiface"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// ASGBackend drives EC2 Auto Scaling groups. One fleet maps to one
// group; the group's own min/max bounds are authoritative.
type ASGBackend struct {
	client     autoscalingiface.AutoScalingAPI
	groupNames map[string]string
}

func NewASGBackend(sess *session.Session, groupNames map[string]string) *ASGBackend {
	return &ASGBackend{
		client:     autoscaling.New(sess),
		groupNames: groupNames,
	}
}

func (b *ASGBackend) GetCapacity(ctx context.Context, fleetID string) (*models.FleetCapacity, error) {
	groupName, ok := b.groupNames[fleetID]
	if !ok {
		return nil, ErrFleetNotFound
	}

	out, err := b.client.DescribeAutoScalingGroupsWithContext(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []*string{aws.String(groupName)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %v", ErrRequestFailed, groupName, err)
	}
	if len(out.AutoScalingGroups) == 0 {
		return nil, ErrFleetNotFound
	}

	group := out.AutoScalingGroups[0]
	running := 0
	for _, inst := range group.Instances {
		if aws.StringValue(inst.LifecycleState) == autoscaling.LifecycleStateInService {
			running++
		}
	}

	return &models.FleetCapacity{
		FleetID: fleetID,
		Min:     int(aws.Int64Value(group.MinSize)),
		Max:     int(aws.Int64Value(group.MaxSize)),
		Desired: int(aws.Int64Value(group.DesiredCapacity)),
		Current: running,
	}, nil
}

func (b *ASGBackend) RequestDelta(ctx context.Context, fleetID string, delta int) error {
	if delta == 0 {
		return ErrInvalidDelta
	}

	cap, err := b.GetCapacity(ctx, fleetID)
	if err != nil {
		return err
	}

	return b.setDesired(ctx, fleetID, cap, cap.Desired+delta)
}

func (b *ASGBackend) SetDesired(ctx context.Context, fleetID string, value int) error {
	cap, err := b.GetCapacity(ctx, fleetID)
	if err != nil {
		return err
	}

	return b.setDesired(ctx, fleetID, cap, value)
}

func (b *ASGBackend) setDesired(ctx context.Context, fleetID string, cap *models.FleetCapacity, value int) error {
	clamped := cap.Clamp(value)
	if clamped != value {
		// Policy violation, corrected; never a hard failure.
		logger.WithFleet(fleetID).Warnf("Desired capacity %d outside [%d,%d], clamped to %d",
			value, cap.Min, cap.Max, clamped)
	}

	groupName := b.groupNames[fleetID]
	_, err := b.client.SetDesiredCapacityWithContext(ctx, &autoscaling.SetDesiredCapacityInput{
		AutoScalingGroupName: aws.String(groupName),
		DesiredCapacity:      aws.Int64(int64(clamped)),
		HonorCooldown:        aws.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("%w: set desired on %s: %v", ErrRequestFailed, groupName, err)
	}

	return nil
}

func (b *ASGBackend) Close() error {
	return nil
}
