package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"recordpipeline/internal/domain"
	"recordpipeline/internal/ports"
	logger "recordpipeline/internal/shared/log"
)

// ValidatorListener runs the validator once per new object in the raw
// bucket. Notifications only cover objects created while the stream is open,
// so every (re)connect is preceded by a catch-up pass over the bucket, and an
// optional periodic rescan retries objects whose validation failed.
type ValidatorListener struct {
	notifier ports.ObjectNotifier
	lister   ports.ObjectLister
	service  *domain.ValidatorService
	bucket   string

	rescanInterval time.Duration
	reconnectDelay time.Duration
}

type ValidatorListenerConfig struct {
	RawBucket string
	// RescanInterval of 0 limits catch-up to stream (re)connects.
	RescanInterval time.Duration
	ReconnectDelay time.Duration
}

func NewValidatorListener(
	notifier ports.ObjectNotifier,
	lister ports.ObjectLister,
	service *domain.ValidatorService,
	cfg ValidatorListenerConfig,
) *ValidatorListener {
	return &ValidatorListener{
		notifier:       notifier,
		lister:         lister,
		service:        service,
		bucket:         cfg.RawBucket,
		rescanInterval: cfg.RescanInterval,
		reconnectDelay: cfg.ReconnectDelay,
	}
}

// Run blocks until ctx is cancelled and then returns ctx.Err(). No suffix
// filter is applied here so that foreign objects are seen, logged and ignored
// by the validator.
func (l *ValidatorListener) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.follow(gctx) })
	if l.rescanInterval > 0 {
		g.Go(func() error { return l.rescan(gctx) })
	}
	return g.Wait()
}

func (l *ValidatorListener) follow(ctx context.Context) error {
	for {
		l.catchUp(ctx)

		logger.Infof(ctx, "Validator listening for new objects in %s", l.bucket)
		err := l.notifier.Listen(ctx, l.bucket, l.handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errors.New("notification stream ended")
		}
		logger.Errorf(ctx, err, "Lost notifications for %s, reconnecting in %s", l.bucket, l.reconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *ValidatorListener) rescan(ctx context.Context) error {
	ticker := time.NewTicker(l.rescanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.catchUp(ctx)
		}
	}
}

// catchUp validates every object currently in the raw bucket. Re-validating a
// key is harmless; a listing failure is left to the next pass.
func (l *ValidatorListener) catchUp(ctx context.Context) {
	keys, err := l.lister.List(ctx, l.bucket)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to list %s for catch-up", l.bucket)
		return
	}
	if len(keys) > 0 {
		logger.Infof(ctx, "Catching up on %d objects in %s", len(keys), l.bucket)
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		if err := l.handle(ctx, ports.ObjectCreated{Bucket: l.bucket, Key: key}); err != nil {
			logger.Errorf(ctx, err, "Catch-up validation failed for %s", key)
		}
	}
}

func (l *ValidatorListener) handle(ctx context.Context, evt ports.ObjectCreated) error {
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	logger.Infof(ctx, "Received object-created notification for %s/%s", evt.Bucket, evt.Key)

	result, err := l.service.Validate(ctx, evt.Bucket, evt.Key)
	if err != nil {
		return err
	}
	logger.Infof(ctx, "Validator outcome for %s: %s %s", evt.Key, result.Outcome, result.Reason)
	return nil
}

// TransformerListener runs the transformer once per validated event.
type TransformerListener struct {
	consumer ports.EventConsumer
	service  *domain.TransformerService
	tag      domain.EventTag
}

func NewTransformerListener(consumer ports.EventConsumer, service *domain.TransformerService, tag domain.EventTag) *TransformerListener {
	return &TransformerListener{consumer: consumer, service: service, tag: tag}
}

func (l *TransformerListener) Run(ctx context.Context) error {
	logger.Infof(ctx, "Transformer consuming %s/%s events", l.tag.Source, l.tag.DetailType)
	return l.consumer.Consume(ctx, l.handle)
}

func (l *TransformerListener) handle(ctx context.Context, key, value []byte) error {
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	logger.Infof(ctx, "Received validated event for %s", string(key))

	evt, err := domain.DecodeValidatedEvent(value, l.tag)
	if err != nil {
		logger.Error(ctx, err, "Transformer failed")
		return err
	}

	result, err := l.service.TransformRun(ctx, evt.ID, evt.Detail.Bucket, evt.Detail.Key)
	if err != nil {
		return err
	}
	logger.Infof(ctx, "Transformed %s in run %s", result.Key, result.RunID)
	return nil
}
