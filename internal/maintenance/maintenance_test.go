package maintenance

import (
	"testing"
	"time"

	"github.com/feedpipe/catalog-worker/internal/checkpoint"
	"github.com/stretchr/testify/require"
)

func TestStartAndShutdown(t *testing.T) {
	db, err := checkpoint.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	store := checkpoint.NewSQLStore(db, "sqlite3")

	require.NoError(t, Start(store, 10*time.Minute))
	Shutdown()
}
