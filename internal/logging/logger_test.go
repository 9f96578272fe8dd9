package logging_test

import (
	"context"
	"testing"

	"enginefleet/internal/logging"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWithContextAndFromContext(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewDevelopmentLogger()

	ctx = logging.WithContext(ctx, logger)
	assert.Equal(t, logger, logging.FromContext(ctx))
}

func TestFromContextFallsBackWhenMissing(t *testing.T) {
	logger := logging.FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestFromContextNilContext(t *testing.T) {
	assert.NotNil(t, logging.FromContext(nil))
}

func TestWithComponent(t *testing.T) {
	ctx := logging.WithContext(context.Background(), logging.NewDevelopmentLogger())
	ctx = logging.WithComponent(ctx, "worker")

	logger := logging.FromContext(ctx)
	assert.NotNil(t, logger)
	logger.Info("tagged with component") // must not panic
}

func TestNewSelectsEncodingByEnv(t *testing.T) {
	prod := logging.New("production")
	dev := logging.New("development")
	assert.NotNil(t, prod)
	assert.NotNil(t, dev)
}

func TestWithFieldsAppends(t *testing.T) {
	ctx := logging.WithContext(context.Background(), logging.NewDevelopmentLogger())
	ctx = logging.WithFields(ctx, zap.String("job_id", "abc-123"))
	logging.FromContext(ctx).Info("has job_id field")
}
