package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 30, 0, 5, time.FixedZone("CLT", -3*3600))
	// 23:30 at -03:00 is the next day in UTC
	assert.Equal(t, "snapshots/2026/03/08/"+"1772937000000000005.json", SnapshotKey(at))
}

func TestPresignExpire(t *testing.T) {
	assert.Equal(t, 15*time.Minute, (&S3{}).PresignExpire())
	assert.Equal(t, 5*time.Minute, (&S3{cfg: S3Config{PresignExpireMinutes: 5}}).PresignExpire())
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"}, nil)
	assert.Error(t, err)
}
