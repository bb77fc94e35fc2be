package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := ConnectSQLite("file:database_migrate?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, model := range []interface{}{
		&models.Task{},
		&models.Submission{},
		&models.Notification{},
		&models.Reminder{},
		&models.ExamSubmission{},
	} {
		require.True(t, db.Migrator().HasTable(model))
	}
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	value, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", value)

	mr.Close()
	_, err = ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.Error(t, err)
}

func TestConnectorsRejectEmptyTargets(t *testing.T) {
	_, err := ConnectSQLite("")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "://bad")
	require.Error(t, err)
	_, err = ConnectNATS("", "grading")
	require.Error(t, err)
	_, err = ConnectPostgres("", PoolConfig{})
	require.Error(t, err)
}
