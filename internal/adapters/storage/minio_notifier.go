package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"

	"recordpipeline/internal/ports"
	logger "recordpipeline/internal/shared/log"
)

// objectCreatedEvents is the notification filter for new blobs.
var objectCreatedEvents = []string{string(notification.ObjectCreatedAll)}

// MinIONotifier implements ports.ObjectNotifier on top of MinIO's
// bucket notification stream.
type MinIONotifier struct {
	client *minio.Client
}

func NewMinIONotifier(client *minio.Client) *MinIONotifier {
	return &MinIONotifier{client: client}
}

var _ ports.ObjectNotifier = (*MinIONotifier)(nil)

// Listen blocks until ctx is cancelled or the stream fails. Handler errors are
// logged and do not stop the stream. Every key is delivered; filtering is the
// handler's decision.
func (n *MinIONotifier) Listen(ctx context.Context, bucket string, handler ports.ObjectCreatedHandler) error {
	stream := n.client.ListenBucketNotification(ctx, bucket, "", "", objectCreatedEvents)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case info, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("notification stream for bucket %s closed", bucket)
			}
			if info.Err != nil {
				return fmt.Errorf("notification stream for bucket %s: %w", bucket, info.Err)
			}
			for _, evt := range ToObjectCreated(info.Records) {
				if err := handler(ctx, evt); err != nil {
					logger.Errorf(ctx, err, "Object-created handler failed for %s/%s", evt.Bucket, evt.Key)
				}
			}
		}
	}
}

// ToObjectCreated flattens S3-style notification records. Keys arrive
// URL-encoded and are decoded here.
func ToObjectCreated(records []notification.Event) []ports.ObjectCreated {
	out := make([]ports.ObjectCreated, 0, len(records))
	for _, rec := range records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		out = append(out, ports.ObjectCreated{
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
		})
	}
	return out
}
