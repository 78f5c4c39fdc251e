package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// S3Catalog lists a bucket page by page. Object age is derived from
// LastModified, which is also what the bucket lifecycle rules key on.
type S3Catalog struct {
	client s3iface.S3API
	now    func() time.Time
}

func NewS3Catalog(sess *session.Session) *S3Catalog {
	return &S3Catalog{
		client: s3.New(sess),
		now:    time.Now,
	}
}

func (c *S3Catalog) Walk(ctx context.Context, container string, fn func(obj models.CatalogObject) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
	}

	var walkErr error
	err := c.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				lastModified := aws.TimeValue(obj.LastModified)
				ageDays := int(c.now().UTC().Sub(lastModified).Hours() / 24)

				walkErr = fn(models.CatalogObject{
					Key:          aws.StringValue(obj.Key),
					AgeDays:      ageDays,
					SizeBytes:    aws.Int64Value(obj.Size),
					LastModified: lastModified,
				})
				if walkErr != nil {
					return false
				}
			}
			return true
		})
	if err != nil {
		return fmt.Errorf("%w: list %s: %v", ErrListFailed, container, err)
	}

	return walkErr
}

func (c *S3Catalog) Close() error {
	return nil
}
